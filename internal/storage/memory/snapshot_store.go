package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Snapshot // keyed by (symbol, observed_at)
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string]*domain.Snapshot),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// snapshotKey generates a unique key for a snapshot.
func snapshotKey(symbol string, observedAt time.Time) string {
	return fmt.Sprintf("%s|%d", symbol, observedAt.UnixNano())
}

// Append inserts a snapshot. A duplicate (symbol, observed_at) is a
// silent no-op: the first write stands.
func (s *SnapshotStore) Append(_ context.Context, snap *domain.Snapshot) error {
	if snap == nil || snap.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey(snap.Symbol, snap.ObservedAt)
	if _, exists := s.data[key]; exists {
		return nil
	}

	snapCopy := *snap
	s.data[key] = &snapCopy
	return nil
}

// RecentWindow retrieves the n most recent snapshots for a symbol, newest first.
func (s *SnapshotStore) RecentWindow(_ context.Context, symbol string, n int) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	snaps := s.collect(symbol)
	s.mu.RUnlock()

	sortNewestFirst(snaps)
	if len(snaps) > n {
		snaps = snaps[:n]
	}
	return snaps, nil
}

// DailyCloses retrieves the last observed price of the n most recent
// distinct calendar days, newest first.
func (s *SnapshotStore) DailyCloses(_ context.Context, symbol string, n int) ([]*domain.DailyClose, error) {
	s.mu.RLock()
	snaps := s.collect(symbol)
	s.mu.RUnlock()

	// Last snapshot of each calendar day wins.
	latest := make(map[string]*domain.Snapshot)
	for _, snap := range snaps {
		day := snap.ObservedAt.Format("2006-01-02")
		if cur, ok := latest[day]; !ok || snap.ObservedAt.After(cur.ObservedAt) {
			latest[day] = snap
		}
	}

	closes := make([]*domain.DailyClose, 0, len(latest))
	for day, snap := range latest {
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			return nil, fmt.Errorf("parse day key: %w", err)
		}
		closes = append(closes, &domain.DailyClose{Day: d, Price: snap.Price})
	}

	sort.Slice(closes, func(i, j int) bool {
		return closes[i].Day.After(closes[j].Day)
	})
	if len(closes) > n {
		closes = closes[:n]
	}
	return closes, nil
}

// SinceTimestamp retrieves all snapshots observed at or after cutoff, newest first.
func (s *SnapshotStore) SinceTimestamp(_ context.Context, symbol string, cutoff time.Time) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snaps []*domain.Snapshot
	for _, snap := range s.data {
		if snap.Symbol == symbol && !snap.ObservedAt.Before(cutoff) {
			snapCopy := *snap
			snaps = append(snaps, &snapCopy)
		}
	}

	sortNewestFirst(snaps)
	return snaps, nil
}

// Symbols lists all distinct symbols with stored history, sorted.
func (s *SnapshotStore) Symbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, snap := range s.data {
		seen[snap.Symbol] = struct{}{}
	}

	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// collect copies all snapshots for a symbol. Caller must hold the lock.
func (s *SnapshotStore) collect(symbol string) []*domain.Snapshot {
	var snaps []*domain.Snapshot
	for _, snap := range s.data {
		if snap.Symbol == symbol {
			snapCopy := *snap
			snaps = append(snaps, &snapCopy)
		}
	}
	return snaps
}

// sortNewestFirst orders snapshots by observation time descending.
func sortNewestFirst(snaps []*domain.Snapshot) {
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].ObservedAt.After(snaps[j].ObservedAt)
	})
}
