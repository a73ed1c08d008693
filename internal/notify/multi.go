// Package notify fans a change message out to every configured notifier.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/availmon/internal/monitor"
)

// Named pairs a notifier with a label used in error messages.
type Named struct {
	Name     string
	Notifier monitor.Notifier
}

// Multi calls every notifier in order and joins their errors.
type Multi struct {
	targets []Named
}

// NewMulti builds a Multi, skipping nil notifiers.
func NewMulti(targets ...Named) *Multi {
	kept := make([]Named, 0, len(targets))
	for _, t := range targets {
		if t.Notifier != nil {
			kept = append(kept, t)
		}
	}
	return &Multi{targets: kept}
}

// Len reports how many notifiers are wired.
func (m *Multi) Len() int {
	return len(m.targets)
}

// Notify delivers msg to every target. One failing target does not stop the others.
func (m *Multi) Notify(ctx context.Context, msg monitor.Message) error {
	if len(m.targets) == 0 {
		return fmt.Errorf("%w: no notifiers configured", monitor.ErrNotConfigured)
	}
	var errs []error
	for _, t := range m.targets {
		if err := t.Notifier.Notify(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}
