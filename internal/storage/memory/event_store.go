package memory

import (
	"context"
	"sort"
	"sync"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// PumpEventStore is an in-memory implementation of storage.PumpEventStore.
type PumpEventStore struct {
	mu     sync.RWMutex
	events []*domain.PumpEvent
}

// NewPumpEventStore creates a new in-memory pump event store.
func NewPumpEventStore() *PumpEventStore {
	return &PumpEventStore{}
}

// Compile-time interface check.
var _ storage.PumpEventStore = (*PumpEventStore)(nil)

// Insert adds a pump event.
func (s *PumpEventStore) Insert(_ context.Context, e *domain.PumpEvent) error {
	if e == nil || e.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.events = append(s.events, &eventCopy)
	return nil
}

// Recent retrieves the latest limit pump events, newest first.
func (s *PumpEventStore) Recent(_ context.Context, limit int) ([]*domain.PumpEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*domain.PumpEvent, 0, len(s.events))
	for _, e := range s.events {
		eventCopy := *e
		events = append(events, &eventCopy)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].ObservedAt.After(events[j].ObservedAt)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// PriceEventStore is an in-memory implementation of storage.PriceEventStore.
type PriceEventStore struct {
	mu     sync.RWMutex
	events []*domain.PriceEvent
}

// NewPriceEventStore creates a new in-memory price event store.
func NewPriceEventStore() *PriceEventStore {
	return &PriceEventStore{}
}

// Compile-time interface check.
var _ storage.PriceEventStore = (*PriceEventStore)(nil)

// Insert adds a price event.
func (s *PriceEventStore) Insert(_ context.Context, e *domain.PriceEvent) error {
	if e == nil || e.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.events = append(s.events, &eventCopy)
	return nil
}

// Recent retrieves the latest limit price events, newest first.
func (s *PriceEventStore) Recent(_ context.Context, limit int) ([]*domain.PriceEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*domain.PriceEvent, 0, len(s.events))
	for _, e := range s.events {
		eventCopy := *e
		events = append(events, &eventCopy)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].ObservedAt.After(events[j].ObservedAt)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
