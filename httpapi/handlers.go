package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/market"
	"github.com/dyglo/trading-line-sub000/quotes"
	"github.com/dyglo/trading-line-sub000/sim"
	"github.com/go-chi/chi/v5"
)

type api struct {
	engine Engine
	quotes Quotes
	log    *slog.Logger
}

// Numeric fields are decimal strings, e.g. "0.5" or "1.08450".
type placeOrderRequest struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	Quantity   string `json:"quantity"`
	Sizing     string `json:"sizing"`
	LimitPrice string `json:"limit_price"`
	StopPrice  string `json:"stop_price"`
	TakeProfit string `json:"take_profit"`
	StopLoss   string `json:"stop_loss"`
}

func (req placeOrderRequest) toBroker() (broker.OrderRequest, error) {
	side, err := broker.ParseSide(req.Side)
	if err != nil {
		return broker.OrderRequest{}, err
	}
	typ := broker.Market
	if strings.TrimSpace(req.Type) != "" {
		if typ, err = broker.ParseOrderType(req.Type); err != nil {
			return broker.OrderRequest{}, err
		}
	}
	sizing, err := broker.ParseSizingMode(req.Sizing)
	if err != nil {
		return broker.OrderRequest{}, err
	}

	out := broker.OrderRequest{Symbol: req.Symbol, Side: side, Type: typ, Sizing: sizing}

	qty, err := parseAmount("quantity", req.Quantity)
	if err != nil {
		return broker.OrderRequest{}, err
	}
	if qty != nil {
		out.Quantity = *qty
	}

	fields := []struct {
		name string
		raw  string
		dst  **float64
	}{
		{"limit_price", req.LimitPrice, &out.LimitPrice},
		{"stop_price", req.StopPrice, &out.StopPrice},
		{"take_profit", req.TakeProfit, &out.TakeProfit},
		{"stop_loss", req.StopLoss, &out.StopLoss},
	}
	for _, f := range fields {
		v, err := parseAmount(f.name, f.raw)
		if err != nil {
			return broker.OrderRequest{}, err
		}
		*f.dst = v
	}
	return out, nil
}

type closeTradeRequest struct {
	Reason string `json:"reason"`
}

// tradeView adds the live unrealized P&L to open trades.
type tradeView struct {
	broker.Trade
	UnrealizedPnL *float64 `json:"unrealized_pnl,omitempty"`
}

func (a *api) view(t broker.Trade) tradeView {
	v := tradeView{Trade: t}
	if t.Open() {
		u := a.engine.UnrealizedPnL(t)
		v.UnrealizedPnL = &u
	}
	return v
}

func (a *api) account(w http.ResponseWriter, r *http.Request) {
	acct, err := a.engine.GetAccount(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (a *api) listOrders(w http.ResponseWriter, r *http.Request) {
	status := broker.OrderStatus(strings.ToUpper(r.URL.Query().Get("status")))
	out := make([]broker.Order, 0)
	for _, o := range a.engine.Orders() {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) placeOrder(w http.ResponseWriter, r *http.Request) {
	var body placeOrderRequest
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := body.toBroker()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	o, err := a.engine.PlaceOrder(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (a *api) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := a.engine.Order(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *api) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := a.engine.Order(id); !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	cancelled := a.engine.CancelOrder(id)
	o, _ := a.engine.Order(id)
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": cancelled, "order": o})
}

func (a *api) listTrades(w http.ResponseWriter, r *http.Request) {
	state := strings.ToLower(r.URL.Query().Get("state"))
	out := make([]tradeView, 0)
	for _, t := range a.engine.Trades() {
		switch {
		case state == "open" && !t.Open():
			continue
		case state == "closed" && t.Open():
			continue
		}
		out = append(out, a.view(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getTrade(w http.ResponseWriter, r *http.Request) {
	t, ok := a.engine.Trade(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	writeJSON(w, http.StatusOK, a.view(t))
}

func (a *api) closeTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := a.engine.Trade(id); !ok {
		writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	var body closeTradeRequest
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reason := broker.CloseReason(strings.ToUpper(strings.TrimSpace(body.Reason)))
	if reason != "" && !reason.Valid() {
		writeError(w, http.StatusBadRequest, "unknown close reason")
		return
	}
	if err := a.engine.CloseTrade(r.Context(), id, reason); err != nil {
		a.fail(w, err)
		return
	}
	t, _ := a.engine.Trade(id)
	writeJSON(w, http.StatusOK, a.view(t))
}

func (a *api) listQuotes(w http.ResponseWriter, r *http.Request) {
	snap := a.quotes.Snapshot()
	out := make([]quotes.Quote, 0, len(snap))
	for _, q := range snap {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getQuote(w http.ResponseWriter, r *http.Request) {
	q, ok := a.quotes.Quote(chi.URLParam(r, "symbol"))
	if !ok {
		writeError(w, http.StatusNotFound, "no quote cached")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *api) listInstruments(w http.ResponseWriter, r *http.Request) {
	list := market.Instruments()
	if c := r.URL.Query().Get("category"); c != "" {
		cat, err := market.ParseCategory(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filtered := list[:0]
		for _, inst := range list {
			if inst.Category == cat {
				filtered = append(filtered, inst)
			}
		}
		list = filtered
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *api) getInstrument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, market.Resolve(chi.URLParam(r, "symbol")))
}

func (a *api) listSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.engine.Symbols())
}

func (a *api) trackSymbol(w http.ResponseWriter, r *http.Request) {
	a.engine.Track(chi.URLParam(r, "symbol"))
	writeJSON(w, http.StatusOK, a.engine.Symbols())
}

func (a *api) untrackSymbol(w http.ResponseWriter, r *http.Request) {
	a.engine.Untrack(chi.URLParam(r, "symbol"))
	writeJSON(w, http.StatusOK, a.engine.Symbols())
}

// fail maps engine errors to status codes.
func (a *api) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sim.ErrInvalidOrder):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sim.ErrCloseUnpriced):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		a.log.Error("request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
