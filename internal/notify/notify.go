// Package notify delivers pump alerts to operator channels. Delivery
// is fire-and-forget from the pipeline's point of view: a failed send
// is logged by the caller, never retried across ticks.
package notify

import (
	"context"
	"errors"

	"pump-sentinel/internal/domain"
)

// Notifier delivers a formatted alert for a detected pump.
type Notifier interface {
	Notify(ctx context.Context, event *domain.PumpEvent) error
}

// Multi fans an alert out to several notifiers. Every notifier is
// attempted; failures are joined so the caller sees each one.
type Multi []Notifier

// Compile-time interface check.
var _ Notifier = (Multi)(nil)

// Notify sends the event to all notifiers.
func (m Multi) Notify(ctx context.Context, event *domain.PumpEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
