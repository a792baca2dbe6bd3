package postgres

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sentinel/internal/storage"
)

func TestRetry_SucceedsWithoutRetryOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, IsTransient, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ExhaustsOnPersistentTransientError(t *testing.T) {
	calls := 0
	transient := errors.New("transient")
	start := time.Now()

	err := Retry(context.Background(), 2, 10*time.Millisecond, func(error) bool { return true },
		func(context.Context) error {
			calls++
			return transient
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "retries exhausted after 3 attempts")
	assert.Equal(t, 3, calls)

	// Linear schedule: backoff*1 + backoff*2 = 30ms minimum.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	permanent := errors.New("syntax error")

	err := Retry(context.Background(), 3, time.Millisecond, func(error) bool { return false },
		func(context.Context) error {
			calls++
			return permanent
		})

	assert.ErrorIs(t, err, permanent)
	assert.NotContains(t, err.Error(), "retries exhausted")
	assert.Equal(t, 1, calls)
}

func TestRetry_RecoversMidway(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(error) bool { return true },
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_CancelledContextStopsBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := Retry(ctx, 5, time.Hour, func(error) bool { return true },
		func(context.Context) error {
			calls++
			cancel()
			return errors.New("transient")
		})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "connection reset" }
func (fakeNetError) Timeout() bool   { return false }
func (fakeNetError) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"pool exhausted", storage.ErrPoolExhausted, true},
		{"net error", fakeNetError{}, true},
		{"connection exception class", &pgconn.PgError{Code: "08006"}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"cannot connect now", &pgconn.PgError{Code: "57P03"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

var _ net.Error = fakeNetError{}
