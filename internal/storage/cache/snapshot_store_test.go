package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
	"pump-sentinel/internal/storage/memory"
)

// countingStore counts reads passed through to the inner store.
type countingStore struct {
	storage.SnapshotStore
	mu    sync.Mutex
	reads int
}

func (c *countingStore) RecentWindow(ctx context.Context, symbol string, n int) ([]*domain.Snapshot, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.SnapshotStore.RecentWindow(ctx, symbol, n)
}

func (c *countingStore) Symbols(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.SnapshotStore.Symbols(ctx)
}

func (c *countingStore) readCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func seed(t *testing.T, store storage.SnapshotStore, symbol string, price float64, observedAt time.Time) {
	t.Helper()
	require.NoError(t, store.Append(context.Background(), &domain.Snapshot{
		Symbol:     symbol,
		Price:      price,
		Volume:     1,
		ObservedAt: observedAt,
	}))
}

func TestSnapshotStore_ServesRepeatReadsFromCache(t *testing.T) {
	inner := &countingStore{SnapshotStore: memory.NewSnapshotStore()}
	cached := NewSnapshotStore(inner, time.Minute)
	seed(t, inner, "BTCIDR", 100, time.Now())

	first, err := cached.RecentWindow(context.Background(), "BTCIDR", 5)
	require.NoError(t, err)
	second, err := cached.RecentWindow(context.Background(), "BTCIDR", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.readCount())
}

func TestSnapshotStore_ExpiresAfterTTL(t *testing.T) {
	inner := &countingStore{SnapshotStore: memory.NewSnapshotStore()}
	cached := NewSnapshotStore(inner, time.Minute)
	now := time.Now()
	cached.now = func() time.Time { return now }
	seed(t, inner, "BTCIDR", 100, now)

	_, err := cached.RecentWindow(context.Background(), "BTCIDR", 5)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = cached.RecentWindow(context.Background(), "BTCIDR", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.readCount())
}

func TestSnapshotStore_ReadsReturnPrivateCopies(t *testing.T) {
	inner := &countingStore{SnapshotStore: memory.NewSnapshotStore()}
	cached := NewSnapshotStore(inner, time.Minute)
	seed(t, inner, "BTCIDR", 100, time.Now())

	first, err := cached.RecentWindow(context.Background(), "BTCIDR", 5)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Mutating a returned element must not leak into later reads.
	first[0].Price = -1
	first[0] = nil

	second, err := cached.RecentWindow(context.Background(), "BTCIDR", 5)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.InDelta(t, 100.0, second[0].Price, 1e-9)
	assert.Equal(t, 1, inner.readCount())

	symbols, err := cached.Symbols(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"BTCIDR"}, symbols)
	symbols[0] = "XXXIDR"

	symbols, err = cached.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCIDR"}, symbols)
}

func TestSnapshotStore_AppendInvalidatesSymbol(t *testing.T) {
	inner := &countingStore{SnapshotStore: memory.NewSnapshotStore()}
	cached := NewSnapshotStore(inner, time.Minute)
	base := time.Now()
	seed(t, inner, "BTCIDR", 100, base)

	window, err := cached.RecentWindow(context.Background(), "BTCIDR", 5)
	require.NoError(t, err)
	require.Len(t, window, 1)

	// A freshly appended point must be visible on the next read.
	require.NoError(t, cached.Append(context.Background(), &domain.Snapshot{
		Symbol:     "BTCIDR",
		Price:      110,
		Volume:     1,
		ObservedAt: base.Add(10 * time.Second),
	}))

	window, err = cached.RecentWindow(context.Background(), "BTCIDR", 5)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.InDelta(t, 110.0, window[0].Price, 1e-9)
}

func TestSnapshotStore_AppendKeepsOtherSymbolsCached(t *testing.T) {
	inner := &countingStore{SnapshotStore: memory.NewSnapshotStore()}
	cached := NewSnapshotStore(inner, time.Minute)
	base := time.Now()
	seed(t, inner, "BTCIDR", 100, base)
	seed(t, inner, "ETHIDR", 50, base)

	_, err := cached.RecentWindow(context.Background(), "ETHIDR", 5)
	require.NoError(t, err)
	readsAfterFill := inner.readCount()

	require.NoError(t, cached.Append(context.Background(), &domain.Snapshot{
		Symbol:     "BTCIDR",
		Price:      110,
		Volume:     1,
		ObservedAt: base.Add(10 * time.Second),
	}))

	_, err = cached.RecentWindow(context.Background(), "ETHIDR", 5)
	require.NoError(t, err)
	assert.Equal(t, readsAfterFill, inner.readCount())
}

func TestSnapshotStore_AppendInvalidatesSymbolList(t *testing.T) {
	inner := &countingStore{SnapshotStore: memory.NewSnapshotStore()}
	cached := NewSnapshotStore(inner, time.Minute)
	seed(t, inner, "BTCIDR", 100, time.Now())

	symbols, err := cached.Symbols(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"BTCIDR"}, symbols)

	require.NoError(t, cached.Append(context.Background(), &domain.Snapshot{
		Symbol:     "ETHIDR",
		Price:      50,
		Volume:     1,
		ObservedAt: time.Now(),
	}))

	symbols, err = cached.Symbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCIDR", "ETHIDR"}, symbols)
}
