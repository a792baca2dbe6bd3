package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.TickInterval)
	assert.Equal(t, 10, cfg.WindowSize)
	assert.Equal(t, 3, cfg.MinConsecutiveUp)
	assert.Equal(t, "postgres", cfg.StorageBackend)
	assert.Equal(t, int32(1), cfg.PoolMinConns)
	assert.Equal(t, int32(5), cfg.PoolMaxConns)
	assert.Equal(t, "failfast", cfg.AcquirePolicy)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "30s")
	t.Setenv("WINDOW_SIZE", "20")
	t.Setenv("PRICE_THRESHOLD_PCT", "2.5")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("POOL_MAX_CONNS", "10")
	t.Setenv("ACQUIRE_POLICY", "fallback")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.TickInterval)
	assert.Equal(t, 20, cfg.WindowSize)
	assert.InDelta(t, 2.5, cfg.PriceThresholdPct, 1e-9)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, int32(10), cfg.PoolMaxConns)
	assert.Equal(t, "fallback", cfg.AcquirePolicy)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "not-a-duration")
	t.Setenv("WINDOW_SIZE", "plenty")
	t.Setenv("PRICE_THRESHOLD_PCT", "high")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.TickInterval)
	assert.Equal(t, 10, cfg.WindowSize)
	assert.InDelta(t, 1.0, cfg.PriceThresholdPct, 1e-9)
}
