package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

func TestPumpEventStore_InsertAndRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPumpEventStore(pool)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := store.Insert(ctx, &domain.PumpEvent{
			Symbol:          "BTCIDR",
			PriceBefore:     100,
			PriceAfter:      130,
			PriceChangePct:  30,
			VolumeChangePct: 60,
			ObservedAt:      base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	events, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, base.Add(2*time.Minute), events[0].ObservedAt)
	assert.InDelta(t, 30.0, events[0].PriceChangePct, 1e-9)
	assert.InDelta(t, 100.0, events[0].PriceBefore, 1e-9)
}

func TestPumpEventStore_InsertRejectsInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPumpEventStore(pool)
	err := store.Insert(context.Background(), &domain.PumpEvent{Symbol: ""})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestPriceEventStore_InsertAndRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPriceEventStore(pool)
	observedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := store.Insert(ctx, &domain.PriceEvent{
		Symbol:          "BTCIDR",
		PriceBefore:     100,
		PriceAfter:      110,
		PriceChangePct:  10,
		VolumeChangePct: 8,
		PriceMA:         104,
		VolumeMA:        120,
		ConsecutiveUp:   3,
		ObservedAt:      observedAt,
	})
	require.NoError(t, err)

	events, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.InDelta(t, 104.0, events[0].PriceMA, 1e-9)
	assert.InDelta(t, 120.0, events[0].VolumeMA, 1e-9)
	assert.Equal(t, 3, events[0].ConsecutiveUp)
	assert.Equal(t, observedAt, events[0].ObservedAt)
}
