// Package cache provides a read-through, TTL-bounded cache in front of
// a SnapshotStore. Its presence is an explicit construction choice of
// the caller, not an annotation on the store itself.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// SnapshotStore decorates an inner storage.SnapshotStore with a
// read-through cache. Reads are served from cache until the TTL
// expires; appending a symbol's snapshot invalidates that symbol's
// cached reads so a freshly written point is always visible. Every
// read returns a private copy, matching the backing stores.
type SnapshotStore struct {
	inner storage.SnapshotStore
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     any
	symbol    string
	expiresAt time.Time
}

// NewSnapshotStore creates a caching decorator with the given TTL.
func NewSnapshotStore(inner storage.SnapshotStore, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Append writes through to the inner store and invalidates the
// symbol's cached reads.
func (s *SnapshotStore) Append(ctx context.Context, snap *domain.Snapshot) error {
	if err := s.inner.Append(ctx, snap); err != nil {
		return err
	}

	s.mu.Lock()
	for key, e := range s.entries {
		if snap != nil && (e.symbol == snap.Symbol || e.symbol == "") {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
	return nil
}

// RecentWindow serves the window from cache when fresh.
func (s *SnapshotStore) RecentWindow(ctx context.Context, symbol string, n int) ([]*domain.Snapshot, error) {
	key := fmt.Sprintf("window|%s|%d", symbol, n)
	if v, ok := s.get(key); ok {
		return copySnapshots(v.([]*domain.Snapshot)), nil
	}

	snaps, err := s.inner.RecentWindow(ctx, symbol, n)
	if err != nil {
		return nil, err
	}
	s.put(key, symbol, snaps)
	return copySnapshots(snaps), nil
}

// DailyCloses serves daily closes from cache when fresh.
func (s *SnapshotStore) DailyCloses(ctx context.Context, symbol string, n int) ([]*domain.DailyClose, error) {
	key := fmt.Sprintf("daily|%s|%d", symbol, n)
	if v, ok := s.get(key); ok {
		return copyDailyCloses(v.([]*domain.DailyClose)), nil
	}

	closes, err := s.inner.DailyCloses(ctx, symbol, n)
	if err != nil {
		return nil, err
	}
	s.put(key, symbol, closes)
	return copyDailyCloses(closes), nil
}

// SinceTimestamp serves range reads from cache when fresh.
func (s *SnapshotStore) SinceTimestamp(ctx context.Context, symbol string, cutoff time.Time) ([]*domain.Snapshot, error) {
	key := fmt.Sprintf("since|%s|%d", symbol, cutoff.UnixNano())
	if v, ok := s.get(key); ok {
		return copySnapshots(v.([]*domain.Snapshot)), nil
	}

	snaps, err := s.inner.SinceTimestamp(ctx, symbol, cutoff)
	if err != nil {
		return nil, err
	}
	s.put(key, symbol, snaps)
	return copySnapshots(snaps), nil
}

// Symbols serves the symbol list from cache when fresh. The entry is
// invalidated by any append.
func (s *SnapshotStore) Symbols(ctx context.Context) ([]string, error) {
	const key = "symbols"
	if v, ok := s.get(key); ok {
		return append([]string(nil), v.([]string)...), nil
	}

	symbols, err := s.inner.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	s.put(key, "", symbols)
	return append([]string(nil), symbols...), nil
}

func (s *SnapshotStore) get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

func (s *SnapshotStore) put(key, symbol string, value any) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop expired entries so one-off range keys do not accumulate.
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}

	s.entries[key] = cacheEntry{value: value, symbol: symbol, expiresAt: now.Add(s.ttl)}
}

// copySnapshots clones a cached result so callers cannot mutate the
// cached slice or its elements.
func copySnapshots(snaps []*domain.Snapshot) []*domain.Snapshot {
	out := make([]*domain.Snapshot, len(snaps))
	for i, s := range snaps {
		c := *s
		out[i] = &c
	}
	return out
}

func copyDailyCloses(closes []*domain.DailyClose) []*domain.DailyClose {
	out := make([]*domain.DailyClose, len(closes))
	for i, dc := range closes {
		c := *dc
		out[i] = &c
	}
	return out
}
