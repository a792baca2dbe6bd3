package memory

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
	store := NewPumpEventStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Insert(ctx, &domain.PumpEvent{
			Symbol:     "BTCIDR",
			ObservedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	events, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, base.Add(2*time.Minute), events[0].ObservedAt)
}

func TestPumpEventStore_InsertRejectsInvalidInput(t *testing.T) {
	store := NewPumpEventStore()
	assert.ErrorIs(t, store.Insert(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(context.Background(), &domain.PumpEvent{}), storage.ErrInvalidInput)
}

func TestPriceEventStore_InsertAndRecent(t *testing.T) {
	store := NewPriceEventStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.PriceEvent{
		Symbol:        "BTCIDR",
		PriceMA:       104,
		VolumeMA:      120,
		ConsecutiveUp: 3,
		ObservedAt:    time.Now(),
	}))

	events, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].ConsecutiveUp)
}

func TestPumpEventStore_InsertCopies(t *testing.T) {
	store := NewPumpEventStore()
	ctx := context.Background()

	event := &domain.PumpEvent{Symbol: "BTCIDR", PriceAfter: 130, ObservedAt: time.Now()}
	require.NoError(t, store.Insert(ctx, event))
	event.PriceAfter = 999

	events, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 130.0, events[0].PriceAfter, 1e-9)
}
