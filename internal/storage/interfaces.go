package storage

import (
	"context"
	"time"

	"pump-sentinel/internal/domain"
)

// SnapshotStore provides access to snapshot_history storage.
// The store is the sole writer of snapshots; reads are pure projections
// and return empty slices for unknown symbols.
type SnapshotStore interface {
	// Append inserts a snapshot. A duplicate (symbol, observed_at) is a
	// silent no-op: the first write for that instant stands.
	Append(ctx context.Context, s *domain.Snapshot) error

	// RecentWindow retrieves the n most recent snapshots for a symbol,
	// newest first. Returns fewer than n when history is short.
	RecentWindow(ctx context.Context, symbol string, n int) ([]*domain.Snapshot, error)

	// DailyCloses retrieves the most recent n distinct calendar days'
	// last-observed price, newest first. One entry per day.
	DailyCloses(ctx context.Context, symbol string, n int) ([]*domain.DailyClose, error)

	// SinceTimestamp retrieves all snapshots observed at or after cutoff,
	// newest first.
	SinceTimestamp(ctx context.Context, symbol string, cutoff time.Time) ([]*domain.Snapshot, error)

	// Symbols lists all distinct symbols with stored history, sorted.
	Symbols(ctx context.Context) ([]string, error)
}

// PumpEventStore provides access to pump_events storage.
type PumpEventStore interface {
	// Insert adds a pump event. Straight insert, no read-modify-write.
	Insert(ctx context.Context, e *domain.PumpEvent) error

	// Recent retrieves the latest limit pump events, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.PumpEvent, error)
}

// PriceEventStore provides access to price_events (soft signal) storage.
type PriceEventStore interface {
	// Insert adds a price event. Straight insert, no read-modify-write.
	Insert(ctx context.Context, e *domain.PriceEvent) error

	// Recent retrieves the latest limit price events, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.PriceEvent, error)
}
