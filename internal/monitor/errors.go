package monitor

import "errors"

// Sentinel errors used to classify failures across the pipeline.
var (
	ErrFetch          = errors.New("fetch failed")
	ErrExtractionMiss = errors.New("availability marker not found")
	ErrHistoryRead    = errors.New("history read failed")
	ErrHistoryWrite   = errors.New("history write failed")
	ErrNotification   = errors.New("notification failed")
	ErrNotConfigured  = errors.New("notifier not configured")
)
