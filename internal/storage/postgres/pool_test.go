package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sentinel/internal/storage"
)

func TestPool_Health(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	assert.NoError(t, pool.Health(context.Background()))
}

func TestPool_ExhaustionFailFast(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	pool.policy = AcquireFailFast
	pool.connectTimeout = time.Second

	// Shrink the pool to a single connection and hold it.
	reconfigureSingleConn(t, pool)
	held, err := pool.pool.Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	start := time.Now()
	_, _, err = pool.acquire(context.Background())
	assert.ErrorIs(t, err, storage.ErrPoolExhausted)

	// Bounded by the connect timeout, never an indefinite hang.
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPool_ExhaustionFallback(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	pool.policy = AcquireFallback
	pool.connectTimeout = time.Second

	reconfigureSingleConn(t, pool)
	held, err := pool.pool.Acquire(context.Background())
	require.NoError(t, err)
	defer held.Release()

	conn, release, err := pool.acquire(context.Background())
	require.NoError(t, err)
	defer release()

	// The fallback connection is live and usable.
	tag, err := conn.Exec(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.NotEmpty(t, tag.String())
}

// reconfigureSingleConn rebuilds the embedded pgx pool with MaxConns=1.
func reconfigureSingleConn(t *testing.T, p *Pool) {
	t.Helper()

	dsn := p.connCfg.ConnString()
	p.pool.Close()

	cfg := DefaultConfig(dsn)
	cfg.MinConns = 1
	cfg.MaxConns = 1
	cfg.ConnectTimeout = time.Second

	rebuilt, err := NewPool(context.Background(), cfg)
	require.NoError(t, err)
	p.pool = rebuilt.pool
	p.connCfg = rebuilt.connCfg
}
