// Package httpapi exposes the paper-trading engine over JSON and a
// websocket event stream.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/quotes"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine is the part of *sim.Engine the API serves.
type Engine interface {
	GetAccount(ctx context.Context) (broker.Account, error)
	PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error)
	CancelOrder(orderID string) bool
	CloseTrade(ctx context.Context, tradeID string, reason broker.CloseReason) error
	Orders() []broker.Order
	Trades() []broker.Trade
	Order(orderID string) (broker.Order, bool)
	Trade(tradeID string) (broker.Trade, bool)
	UnrealizedPnL(t broker.Trade) float64
	Track(symbols ...string)
	Untrack(symbol string)
	Symbols() []string
}

// Quotes is the part of *quotes.Cache the API serves.
type Quotes interface {
	Quote(symbol string) (quotes.Quote, bool)
	Snapshot() map[string]quotes.Quote
}

type RouterDeps struct {
	Engine Engine
	Quotes Quotes
	Hub    *Hub
	Origin string
	Logger *slog.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	a := &api{engine: d.Engine, quotes: d.Quotes, log: d.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors(d.Origin))
	r.Use(requestLogger(d.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/account", a.account)

		r.Get("/orders", a.listOrders)
		r.Post("/orders", a.placeOrder)
		r.Get("/orders/{id}", a.getOrder)
		r.Delete("/orders/{id}", a.cancelOrder)

		r.Get("/trades", a.listTrades)
		r.Get("/trades/{id}", a.getTrade)
		r.Post("/trades/{id}/close", a.closeTrade)

		r.Get("/quotes", a.listQuotes)
		r.Get("/quotes/{symbol}", a.getQuote)

		r.Get("/instruments", a.listInstruments)
		r.Get("/instruments/{symbol}", a.getInstrument)

		r.Get("/symbols", a.listSymbols)
		r.Put("/symbols/{symbol}", a.trackSymbol)
		r.Delete("/symbols/{symbol}", a.untrackSymbol)

		if d.Hub != nil {
			r.Get("/ws", d.Hub.ServeHTTP)
		}
	})
	return r
}

func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed := origin
			if allowed == "" {
				allowed = "*"
			}
			if allowed == "*" {
				if o := r.Header.Get("Origin"); o != "" {
					allowed = o
				}
			}
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("took", time.Since(start)),
			)
		})
	}
}
