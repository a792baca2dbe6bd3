package storage

import (
	"context"

	"github.com/rs/zerolog"

	"pump-sentinel/internal/domain"
)

// MirroredPumpEventStore writes every event to a primary store and
// best-effort to an archive. The primary's result decides the call;
// archive failures are logged and swallowed so an unreachable archive
// never blocks detection.
type MirroredPumpEventStore struct {
	primary PumpEventStore
	archive PumpEventStore
	log     zerolog.Logger
}

// NewMirroredPumpEventStore creates a mirroring decorator.
func NewMirroredPumpEventStore(primary, archive PumpEventStore, log zerolog.Logger) *MirroredPumpEventStore {
	return &MirroredPumpEventStore{primary: primary, archive: archive, log: log}
}

// Compile-time interface check.
var _ PumpEventStore = (*MirroredPumpEventStore)(nil)

// Insert writes to the primary, then mirrors to the archive.
func (s *MirroredPumpEventStore) Insert(ctx context.Context, e *domain.PumpEvent) error {
	if err := s.primary.Insert(ctx, e); err != nil {
		return err
	}
	if err := s.archive.Insert(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("symbol", e.Symbol).Msg("pump event archive insert failed")
	}
	return nil
}

// Recent reads from the primary only.
func (s *MirroredPumpEventStore) Recent(ctx context.Context, limit int) ([]*domain.PumpEvent, error) {
	return s.primary.Recent(ctx, limit)
}

// MirroredPriceEventStore is the price event counterpart of
// MirroredPumpEventStore.
type MirroredPriceEventStore struct {
	primary PriceEventStore
	archive PriceEventStore
	log     zerolog.Logger
}

// NewMirroredPriceEventStore creates a mirroring decorator.
func NewMirroredPriceEventStore(primary, archive PriceEventStore, log zerolog.Logger) *MirroredPriceEventStore {
	return &MirroredPriceEventStore{primary: primary, archive: archive, log: log}
}

// Compile-time interface check.
var _ PriceEventStore = (*MirroredPriceEventStore)(nil)

// Insert writes to the primary, then mirrors to the archive.
func (s *MirroredPriceEventStore) Insert(ctx context.Context, e *domain.PriceEvent) error {
	if err := s.primary.Insert(ctx, e); err != nil {
		return err
	}
	if err := s.archive.Insert(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("symbol", e.Symbol).Msg("price event archive insert failed")
	}
	return nil
}

// Recent reads from the primary only.
func (s *MirroredPriceEventStore) Recent(ctx context.Context, limit int) ([]*domain.PriceEvent, error) {
	return s.primary.Recent(ctx, limit)
}
