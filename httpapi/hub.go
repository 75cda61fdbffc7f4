package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/scheduler"
	"github.com/gorilla/websocket"
)

// Event is one message pushed to websocket subscribers.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type fillEvent struct {
	Order broker.Order `json:"order"`
	Trade broker.Trade `json:"trade"`
}

// Hub fans engine and tick events out to websocket clients. Slow clients
// drop events instead of blocking the publisher.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub(origin string, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:  log,
		subs: make(map[chan Event]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// PublishTick is registered with Poller.OnTick.
func (h *Hub) PublishTick(res scheduler.TickResult) {
	h.Publish(Event{Type: "tick", Data: res})
}

func (h *Hub) OnOrderFilled(o broker.Order, t broker.Trade) {
	h.Publish(Event{Type: "fill", Data: fillEvent{Order: o, Trade: t}})
}

func (h *Hub) OnTradeClosed(t broker.Trade) {
	h.Publish(Event{Type: "close", Data: t})
}

// ServeHTTP upgrades to a websocket and streams every event published
// after the handshake completes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sub := h.Subscribe()
	defer h.Unsubscribe(sub)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "" || origin == "*" {
		return true
	}
	return strings.EqualFold(r.Header.Get("Origin"), origin)
}
