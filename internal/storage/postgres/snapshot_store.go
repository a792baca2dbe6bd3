package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Append inserts a snapshot. A duplicate (symbol, observed_at) is
// absorbed by the unique constraint: the first write stands.
func (s *SnapshotStore) Append(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO snapshot_history (symbol, price, volume, observed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, observed_at) DO NOTHING
	`

	if err := s.pool.Exec(ctx, query, snap.Symbol, snap.Price, snap.Volume, snap.ObservedAt); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

// RecentWindow retrieves the n most recent snapshots for a symbol, newest first.
func (s *SnapshotStore) RecentWindow(ctx context.Context, symbol string, n int) ([]*domain.Snapshot, error) {
	query := `
		SELECT symbol, price, volume, observed_at
		FROM snapshot_history
		WHERE symbol = $1
		ORDER BY observed_at DESC
		LIMIT $2
	`

	var snaps []*domain.Snapshot
	err := s.pool.Query(ctx, func(rows pgx.Rows) error {
		snaps = snaps[:0]
		var scanErr error
		snaps, scanErr = scanSnapshots(rows)
		return scanErr
	}, query, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("recent window: %w", err)
	}
	return snaps, nil
}

// DailyCloses retrieves the last observed price of the n most recent
// distinct calendar days, newest first.
func (s *SnapshotStore) DailyCloses(ctx context.Context, symbol string, n int) ([]*domain.DailyClose, error) {
	query := `
		SELECT day, price FROM (
			SELECT DISTINCT ON (observed_at::date) observed_at::date AS day, price
			FROM snapshot_history
			WHERE symbol = $1
			ORDER BY observed_at::date DESC, observed_at DESC
		) daily
		ORDER BY day DESC
		LIMIT $2
	`

	var closes []*domain.DailyClose
	err := s.pool.Query(ctx, func(rows pgx.Rows) error {
		closes = closes[:0]
		for rows.Next() {
			var c domain.DailyClose
			if err := rows.Scan(&c.Day, &c.Price); err != nil {
				return fmt.Errorf("scan daily close row: %w", err)
			}
			closes = append(closes, &c)
		}
		return nil
	}, query, symbol, n)
	if err != nil {
		return nil, fmt.Errorf("daily closes: %w", err)
	}
	return closes, nil
}

// SinceTimestamp retrieves all snapshots observed at or after cutoff, newest first.
func (s *SnapshotStore) SinceTimestamp(ctx context.Context, symbol string, cutoff time.Time) ([]*domain.Snapshot, error) {
	query := `
		SELECT symbol, price, volume, observed_at
		FROM snapshot_history
		WHERE symbol = $1 AND observed_at >= $2
		ORDER BY observed_at DESC
	`

	var snaps []*domain.Snapshot
	err := s.pool.Query(ctx, func(rows pgx.Rows) error {
		snaps = snaps[:0]
		var scanErr error
		snaps, scanErr = scanSnapshots(rows)
		return scanErr
	}, query, symbol, cutoff)
	if err != nil {
		return nil, fmt.Errorf("since timestamp: %w", err)
	}
	return snaps, nil
}

// Symbols lists all distinct symbols with stored history, sorted.
func (s *SnapshotStore) Symbols(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT symbol FROM snapshot_history ORDER BY symbol`

	var symbols []string
	err := s.pool.Query(ctx, func(rows pgx.Rows) error {
		symbols = symbols[:0]
		for rows.Next() {
			var sym string
			if err := rows.Scan(&sym); err != nil {
				return fmt.Errorf("scan symbol row: %w", err)
			}
			symbols = append(symbols, sym)
		}
		return nil
	}, query)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return symbols, nil
}

// scanSnapshots scans rows into a slice of Snapshot.
func scanSnapshots(rows pgx.Rows) ([]*domain.Snapshot, error) {
	var snaps []*domain.Snapshot

	for rows.Next() {
		var snap domain.Snapshot
		if err := rows.Scan(&snap.Symbol, &snap.Price, &snap.Volume, &snap.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snaps = append(snaps, &snap)
	}

	return snaps, nil
}
