package clickhouse

import (
	"context"
	"fmt"
	"time"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// PumpEventArchive implements storage.PumpEventStore on top of a
// ClickHouse MergeTree table. Inserts are append-only; MergeTree does
// not enforce uniqueness, so the archive may hold duplicates the
// primary store rejected.
type PumpEventArchive struct {
	conn *Conn
}

// NewPumpEventArchive creates a new PumpEventArchive.
func NewPumpEventArchive(conn *Conn) *PumpEventArchive {
	return &PumpEventArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.PumpEventStore = (*PumpEventArchive)(nil)

// Insert appends a pump event to the archive.
func (s *PumpEventArchive) Insert(ctx context.Context, e *domain.PumpEvent) error {
	if e == nil || e.Symbol == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pump_events (
			symbol, price_before, price_after, price_change_pct, volume_change_pct, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.Symbol, e.PriceBefore, e.PriceAfter,
		e.PriceChangePct, e.VolumeChangePct, e.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Recent retrieves the latest limit pump events, newest first.
func (s *PumpEventArchive) Recent(ctx context.Context, limit int) ([]*domain.PumpEvent, error) {
	query := `
		SELECT symbol, price_before, price_after, price_change_pct, volume_change_pct, observed_at
		FROM pump_events
		ORDER BY observed_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent pump events: %w", err)
	}
	defer rows.Close()

	return scanPumpEvents(rows)
}

// scanPumpEvents scans multiple rows.
func scanPumpEvents(rows chRows) ([]*domain.PumpEvent, error) {
	var events []*domain.PumpEvent

	for rows.Next() {
		var e domain.PumpEvent
		var observedAt time.Time

		err := rows.Scan(
			&e.Symbol, &e.PriceBefore, &e.PriceAfter,
			&e.PriceChangePct, &e.VolumeChangePct, &observedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan pump event row: %w", err)
		}

		e.ObservedAt = observedAt
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pump event rows: %w", err)
	}

	return events, nil
}

// PriceEventArchive implements storage.PriceEventStore on top of a
// ClickHouse MergeTree table.
type PriceEventArchive struct {
	conn *Conn
}

// NewPriceEventArchive creates a new PriceEventArchive.
func NewPriceEventArchive(conn *Conn) *PriceEventArchive {
	return &PriceEventArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceEventStore = (*PriceEventArchive)(nil)

// Insert appends a price event to the archive.
func (s *PriceEventArchive) Insert(ctx context.Context, e *domain.PriceEvent) error {
	if e == nil || e.Symbol == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_events (
			symbol, price_before, price_after, price_change_pct, volume_change_pct,
			price_ma, volume_ma, consecutive_up, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.Symbol, e.PriceBefore, e.PriceAfter,
		e.PriceChangePct, e.VolumeChangePct,
		e.PriceMA, e.VolumeMA, uint32(e.ConsecutiveUp), e.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Recent retrieves the latest limit price events, newest first.
func (s *PriceEventArchive) Recent(ctx context.Context, limit int) ([]*domain.PriceEvent, error) {
	query := `
		SELECT symbol, price_before, price_after, price_change_pct, volume_change_pct,
			price_ma, volume_ma, consecutive_up, observed_at
		FROM price_events
		ORDER BY observed_at DESC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent price events: %w", err)
	}
	defer rows.Close()

	var events []*domain.PriceEvent
	for rows.Next() {
		var e domain.PriceEvent
		var consecutiveUp uint32

		err := rows.Scan(
			&e.Symbol, &e.PriceBefore, &e.PriceAfter,
			&e.PriceChangePct, &e.VolumeChangePct,
			&e.PriceMA, &e.VolumeMA, &consecutiveUp, &e.ObservedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price event row: %w", err)
		}

		e.ConsecutiveUp = int(consecutiveUp)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price event rows: %w", err)
	}

	return events, nil
}
