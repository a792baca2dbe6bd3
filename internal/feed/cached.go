package feed

import (
	"context"
	"sync"
	"time"

	"pump-sentinel/internal/domain"
)

// CachedSource serves a previously fetched batch until the TTL
// expires. The ticker board is treated as a pure function of time, so
// callers inside one tick interval share a single upstream request.
type CachedSource struct {
	inner Source
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	batch     []domain.Quote
	fetchedAt time.Time
}

// NewCachedSource wraps a source with a TTL cache.
func NewCachedSource(inner Source, ttl time.Duration) *CachedSource {
	return &CachedSource{inner: inner, ttl: ttl, now: time.Now}
}

// Compile-time interface check.
var _ Source = (*CachedSource)(nil)

// FetchAll returns the cached batch when fresh, otherwise refetches.
// A failed refetch does not serve stale data; the error propagates so
// the tick degrades explicitly.
func (c *CachedSource) FetchAll(ctx context.Context) ([]domain.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.batch != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.batch, nil
	}

	batch, err := c.inner.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	c.batch = batch
	c.fetchedAt = c.now()
	return batch, nil
}
