package stream

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pump-sentinel/internal/domain"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub.ServeWS())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(v))
}

func TestHub_BroadcastsToSubscriber(t *testing.T) {
	hub := NewHub(10, zerolog.Nop())
	conn := dialHub(t, hub)

	var history historyMessage
	readMessage(t, conn, &history)
	assert.Equal(t, "history", history.Type)
	assert.Empty(t, history.Alerts)

	// The writer goroutine drains a buffered channel, so the broadcast
	// does not race with the subscription established above.
	err := hub.Notify(context.Background(), &domain.PumpEvent{
		Symbol:          "BTCIDR",
		PriceBefore:     100,
		PriceAfter:      130,
		PriceChangePct:  30,
		VolumeChangePct: 60,
		ObservedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	var alert AlertMessage
	readMessage(t, conn, &alert)
	assert.Equal(t, "pump", alert.Type)
	assert.Equal(t, "BTCIDR", alert.Symbol)
	assert.InDelta(t, 30.0, alert.PriceChangePct, 1e-9)
}

func TestHub_ReplaysHistoryOnConnect(t *testing.T) {
	hub := NewHub(10, zerolog.Nop())

	require.NoError(t, hub.Notify(context.Background(), &domain.PumpEvent{Symbol: "BTCIDR"}))
	require.NoError(t, hub.Notify(context.Background(), &domain.PumpEvent{Symbol: "ETHIDR"}))

	conn := dialHub(t, hub)
	var history historyMessage
	readMessage(t, conn, &history)
	require.Len(t, history.Alerts, 2)
	assert.Equal(t, "BTCIDR", history.Alerts[0].Symbol)
	assert.Equal(t, "ETHIDR", history.Alerts[1].Symbol)
}

func TestHub_HistoryBounded(t *testing.T) {
	hub := NewHub(2, zerolog.Nop())

	for _, sym := range []string{"AIDR", "BIDR", "CIDR"} {
		require.NoError(t, hub.Notify(context.Background(), &domain.PumpEvent{Symbol: sym}))
	}

	history := hub.snapshotHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "BIDR", history[0].Symbol)
	assert.Equal(t, "CIDR", history[1].Symbol)
}
