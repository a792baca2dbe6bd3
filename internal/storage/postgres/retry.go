package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"pump-sentinel/internal/observability"
	"pump-sentinel/internal/storage"
)

// Classifier decides whether an error is worth another attempt.
type Classifier func(error) bool

// Retry runs op up to 1+maxRetries times, sleeping backoff*attempt
// between attempts (linear). Only errors the classifier marks transient
// are retried; everything else propagates immediately.
func Retry(ctx context.Context, maxRetries int, backoff time.Duration, transient Classifier, op func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			observability.RecordDBRetry()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff * time.Duration(attempt)):
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !transient(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("retries exhausted after %d attempts: %w", maxRetries+1, lastErr)
}

// IsTransient classifies connection drops, timeouts, and pool
// exhaustion as retryable. Constraint violations, syntax errors, and
// caller cancellation are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, storage.ErrPoolExhausted) {
		return true
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exceptions. 57P01..57P03: server
		// shutdown / crash / cannot connect now.
		if strings.HasPrefix(pgErr.Code, "08") {
			return true
		}
		switch pgErr.Code {
		case "57P01", "57P02", "57P03":
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
