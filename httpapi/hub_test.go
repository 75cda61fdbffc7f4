package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/internal/logging"
	"github.com/dyglo/trading-line-sub000/quotes"
	"github.com/dyglo/trading-line-sub000/scheduler"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, base, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(base, "http") + "/v1/ws"
	hdr := http.Header{}
	if origin != "" {
		hdr.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, hdr)
}

func readEvent(t *testing.T, conn *websocket.Conn) rawEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt rawEvent
	require.NoError(t, conn.ReadJSON(&evt))
	return evt
}

func TestHubStreamsFillsAndCloses(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	f.cache.Set(quotes.Quote{Symbol: "BTCUSD", Price: 60_000})

	conn, _, err := dial(t, f.srv.URL, "")
	require.NoError(t, err)
	defer conn.Close()

	code, body := f.do(t, http.MethodPost, "/v1/orders", `{"symbol":"BTCUSD","side":"SHORT","quantity":"0.5"}`)
	require.Equal(t, http.StatusCreated, code, string(body))

	evt := readEvent(t, conn)
	require.Equal(t, "fill", evt.Type)
	var fill fillEvent
	require.NoError(t, json.Unmarshal(evt.Data, &fill))
	assert.Equal(t, broker.Filled, fill.Order.Status)
	assert.Equal(t, 60_000.0, fill.Trade.AvgPrice)
	assert.Equal(t, 0.5, fill.Trade.Units)

	f.cache.Set(quotes.Quote{Symbol: "BTCUSD", Price: 59_000})
	code, body = f.do(t, http.MethodPost, "/v1/trades/"+fill.Trade.ID+"/close", "")
	require.Equal(t, http.StatusOK, code, string(body))

	evt = readEvent(t, conn)
	require.Equal(t, "close", evt.Type)
	var closed broker.Trade
	require.NoError(t, json.Unmarshal(evt.Data, &closed))
	assert.Equal(t, fill.Trade.ID, closed.ID)
	assert.InDelta(t, 500.0, closed.PnL, 1e-9)
}

func TestHubStreamsTicks(t *testing.T) {
	t.Parallel()
	f := newFixture(t, map[string]float64{"AAPL": 190})
	f.engine.Track("AAPL")

	p := scheduler.New(f.engine, f.cache, scheduler.WithLogger(logging.Discard()))
	p.OnTick(f.hub.PublishTick)

	conn, _, err := dial(t, f.srv.URL, "")
	require.NoError(t, err)
	defer conn.Close()

	_, ok := p.Tick(context.Background())
	require.True(t, ok)

	evt := readEvent(t, conn)
	require.Equal(t, "tick", evt.Type)
	var res scheduler.TickResult
	require.NoError(t, json.Unmarshal(evt.Data, &res))
	assert.Equal(t, []string{"AAPL"}, res.Symbols)
	assert.Equal(t, 10_000.0, res.Account.Equity)

	px, ok := f.cache.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, 190.0, px)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(NewRouter(RouterDeps{
		Hub:    NewHub("https://desk.example", logging.Discard()),
		Origin: "https://desk.example",
		Logger: logging.Discard(),
	}))
	defer srv.Close()

	_, resp, err := dial(t, srv.URL, "https://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, srv.URL, "https://desk.example")
	require.NoError(t, err)
	conn.Close()
}

func TestHubPublishNeverBlocks(t *testing.T) {
	t.Parallel()
	h := NewHub("*", logging.Discard())
	sub := h.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			h.Publish(Event{Type: "tick", Data: i})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Equal(t, cap(sub), len(sub))

	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	_, open := <-sub
	assert.False(t, open)
}
