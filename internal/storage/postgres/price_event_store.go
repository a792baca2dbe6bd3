package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// PriceEventStore implements storage.PriceEventStore using PostgreSQL.
type PriceEventStore struct {
	pool *Pool
}

// NewPriceEventStore creates a new PriceEventStore.
func NewPriceEventStore(pool *Pool) *PriceEventStore {
	return &PriceEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceEventStore = (*PriceEventStore)(nil)

// Insert adds a price (soft signal) event.
func (s *PriceEventStore) Insert(ctx context.Context, e *domain.PriceEvent) error {
	if e == nil || e.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO price_events (
			symbol, price_before, price_after, price_change_pct, volume_change_pct,
			price_ma, volume_ma, consecutive_up, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	err := s.pool.Exec(ctx, query,
		e.Symbol, e.PriceBefore, e.PriceAfter, e.PriceChangePct, e.VolumeChangePct,
		e.PriceMA, e.VolumeMA, e.ConsecutiveUp, e.ObservedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert price event: %w", err)
	}
	return nil
}

// Recent retrieves the latest limit price events, newest first.
func (s *PriceEventStore) Recent(ctx context.Context, limit int) ([]*domain.PriceEvent, error) {
	query := `
		SELECT symbol, price_before, price_after, price_change_pct, volume_change_pct,
		       price_ma, volume_ma, consecutive_up, observed_at
		FROM price_events
		ORDER BY observed_at DESC
		LIMIT $1
	`

	var events []*domain.PriceEvent
	err := s.pool.Query(ctx, func(rows pgx.Rows) error {
		events = events[:0]
		for rows.Next() {
			var e domain.PriceEvent
			err := rows.Scan(&e.Symbol, &e.PriceBefore, &e.PriceAfter,
				&e.PriceChangePct, &e.VolumeChangePct,
				&e.PriceMA, &e.VolumeMA, &e.ConsecutiveUp, &e.ObservedAt)
			if err != nil {
				return fmt.Errorf("scan price event row: %w", err)
			}
			events = append(events, &e)
		}
		return nil
	}, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent price events: %w", err)
	}
	return events, nil
}
