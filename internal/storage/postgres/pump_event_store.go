package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// PumpEventStore implements storage.PumpEventStore using PostgreSQL.
type PumpEventStore struct {
	pool *Pool
}

// NewPumpEventStore creates a new PumpEventStore.
func NewPumpEventStore(pool *Pool) *PumpEventStore {
	return &PumpEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PumpEventStore = (*PumpEventStore)(nil)

// Insert adds a pump event.
func (s *PumpEventStore) Insert(ctx context.Context, e *domain.PumpEvent) error {
	if e == nil || e.Symbol == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pump_events (
			symbol, price_before, price_after, price_change_pct, volume_change_pct, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	err := s.pool.Exec(ctx, query,
		e.Symbol, e.PriceBefore, e.PriceAfter, e.PriceChangePct, e.VolumeChangePct, e.ObservedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pump event: %w", err)
	}
	return nil
}

// Recent retrieves the latest limit pump events, newest first.
func (s *PumpEventStore) Recent(ctx context.Context, limit int) ([]*domain.PumpEvent, error) {
	query := `
		SELECT symbol, price_before, price_after, price_change_pct, volume_change_pct, observed_at
		FROM pump_events
		ORDER BY observed_at DESC
		LIMIT $1
	`

	var events []*domain.PumpEvent
	err := s.pool.Query(ctx, func(rows pgx.Rows) error {
		events = events[:0]
		for rows.Next() {
			var e domain.PumpEvent
			err := rows.Scan(&e.Symbol, &e.PriceBefore, &e.PriceAfter,
				&e.PriceChangePct, &e.VolumeChangePct, &e.ObservedAt)
			if err != nil {
				return fmt.Errorf("scan pump event row: %w", err)
			}
			events = append(events, &e)
		}
		return nil
	}, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent pump events: %w", err)
	}
	return events, nil
}
