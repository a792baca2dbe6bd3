// Package stream fans detected pump alerts out to websocket
// subscribers, typically an operator dashboard. The hub keeps a short
// replay history so a freshly connected client sees recent alerts.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/notify"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

// AlertMessage is the wire form of a pump alert.
type AlertMessage struct {
	Type            string    `json:"type"`
	Symbol          string    `json:"symbol"`
	PriceBefore     float64   `json:"price_before"`
	PriceAfter      float64   `json:"price_after"`
	PriceChangePct  float64   `json:"price_change_pct"`
	VolumeChangePct float64   `json:"volume_change_pct"`
	ObservedAt      time.Time `json:"observed_at"`
}

type historyMessage struct {
	Type   string         `json:"type"`
	Alerts []AlertMessage `json:"alerts"`
}

type client struct {
	conn *websocket.Conn
	out  chan any
	done chan struct{}
}

// Hub broadcasts pump alerts to connected websocket clients. A slow
// client drops messages rather than blocking the pipeline.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	history []AlertMessage
	limit   int
	log     zerolog.Logger
}

// NewHub creates a hub keeping at most limit alerts for replay.
func NewHub(limit int, log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		history: make([]AlertMessage, 0, limit),
		limit:   limit,
		log:     log.With().Str("component", "stream").Logger(),
	}
}

// Compile-time interface check.
var _ notify.Notifier = (*Hub)(nil)

// Notify converts the event to its wire form, records it in the
// replay history, and broadcasts it. Always succeeds: a hub with no
// subscribers is not an error.
func (h *Hub) Notify(_ context.Context, event *domain.PumpEvent) error {
	msg := AlertMessage{
		Type:            "pump",
		Symbol:          event.Symbol,
		PriceBefore:     event.PriceBefore,
		PriceAfter:      event.PriceAfter,
		PriceChangePct:  event.PriceChangePct,
		VolumeChangePct: event.VolumeChangePct,
		ObservedAt:      event.ObservedAt,
	}

	h.mu.Lock()
	h.history = append(h.history, msg)
	if h.limit > 0 && len(h.history) > h.limit {
		h.history = h.history[len(h.history)-h.limit:]
	}
	h.mu.Unlock()

	h.broadcast(msg)
	return nil
}

func (h *Hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- v:
		default:
		}
	}
}

func (h *Hub) snapshotHistory() []AlertMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	alerts := make([]AlertMessage, len(h.history))
	copy(alerts, h.history)
	return alerts
}

// ServeWS upgrades the request and streams alerts until the client
// disconnects.
func (h *Hub) ServeWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		cl := &client{conn: conn, out: make(chan any, 256), done: make(chan struct{})}
		h.mu.Lock()
		h.clients[cl] = struct{}{}
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			delete(h.clients, cl)
			h.mu.Unlock()
			close(cl.done)
		}()

		// writer
		go func() {
			ping := time.NewTicker(45 * time.Second)
			defer ping.Stop()
			for {
				select {
				case v := <-cl.out:
					_ = conn.WriteJSON(v)
				case <-ping.C:
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				case <-cl.done:
					return
				}
			}
		}()

		// Replay history on connect, even when empty.
		select {
		case cl.out <- historyMessage{Type: "history", Alerts: h.snapshotHistory()}:
		default:
		}

		// reader: only pongs and close frames are expected.
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
