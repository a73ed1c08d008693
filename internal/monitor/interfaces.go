package monitor

import (
	"context"
	"io"
	"time"
)

// Fetcher renders a URL and returns the final HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Extractor reads the availability count out of an HTML document.
type Extractor interface {
	Extract(html []byte) Reading
}

// HistoryStore persists the append-only observation log.
type HistoryStore interface {
	// LoadLast returns the most recent observation; ok is false when the log is empty.
	LoadLast(ctx context.Context) (obs Observation, ok bool, err error)
	Append(ctx context.Context, obs Observation) error
	List(ctx context.Context) ([]Observation, error)
}

// Notifier delivers a change message to subscribers.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces poll cycle IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Recorder receives poll metrics. Implementations must be safe to call from the poll goroutine.
type Recorder interface {
	ObservePoll(outcome Outcome, fetchDuration time.Duration)
	SetAvailable(count int)
	ObserveNotification(err error)
	ObserveHistoryWrite(err error)
}
