// Package sim is the simulated order book, position ledger and account.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/internal/id"
	"github.com/dyglo/trading-line-sub000/journal"
	"github.com/dyglo/trading-line-sub000/market"
)

// Quotes is the price cache the engine reads from. *quotes.Cache
// implements it.
type Quotes interface {
	Get(symbol string) (float64, bool)
	// Refresh may fall back to a placeholder price.
	Refresh(ctx context.Context, symbol string) (float64, error)
	// Fetch fails when the source fails.
	Fetch(ctx context.Context, symbol string) (float64, error)
}

// BalanceSource supplies a starting balance. ok is false when it has none.
type BalanceSource interface {
	LatestBalance(ctx context.Context) (float64, bool, error)
}

// Listener is notified of fills and closes. Calls happen after the engine
// lock is released, so a listener may call back into the engine.
type Listener interface {
	OnOrderFilled(o broker.Order, t broker.Trade)
	OnTradeClosed(t broker.Trade)
}

// Engine owns all simulated trading state. Every mutation runs under mu
// and never does I/O while holding it: prices are fetched before the lock
// is taken, journal writes and listener calls happen after it is released.
type Engine struct {
	mu       sync.Mutex
	acct     broker.Account
	quotes   Quotes
	ids      *id.Generator
	now      func() time.Time
	log      *slog.Logger
	journal  journal.Journal
	listener Listener

	orders   map[string]*broker.Order
	orderSeq []string
	trades   map[string]*broker.Trade
	tradeSeq []string
	tracked  map[string]struct{}
}

type Option func(*Engine)

func WithJournal(j journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDs(g *id.Generator) Option {
	return func(e *Engine) { e.ids = g }
}

func NewEngine(acct broker.Account, q Quotes, opts ...Option) *Engine {
	if acct.Currency == "" {
		acct.Currency = "USD"
	}
	acct.Equity = acct.Balance

	e := &Engine{
		acct:    acct,
		quotes:  q,
		ids:     id.NewGenerator(),
		now:     time.Now,
		log:     slog.Default(),
		journal: journal.Nop{},
		orders:  make(map[string]*broker.Order),
		trades:  make(map[string]*broker.Trade),
		tracked: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

var _ broker.Broker = (*Engine)(nil)

// SetListener sets an optional listener for fills and closes.
func (e *Engine) SetListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

func (e *Engine) GetAccount(ctx context.Context) (broker.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.acct, nil
}

// PlaceOrder validates and records an order. MARKET orders fill before
// PlaceOrder returns, at the cached price or, when the symbol has never
// been priced, at a freshly refreshed one. LIMIT and STOP orders stay OPEN
// until CheckAndExecuteOrders sees their trigger.
func (e *Engine) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.Order, error) {
	if err := validateRequest(req); err != nil {
		return broker.Order{}, err
	}

	inst := market.Resolve(req.Symbol)

	sizing := req.Sizing
	if sizing == "" {
		sizing = broker.Units
		if inst.Forex != nil {
			sizing = broker.Lots
		}
	}
	units := req.Quantity
	if sizing == broker.Lots {
		units = req.Quantity * inst.ContractSize
	}

	var fillPrice float64
	if req.Type == broker.Market {
		px, ok := e.quotes.Get(inst.Symbol)
		if !ok {
			var err error
			px, err = e.quotes.Refresh(ctx, inst.Symbol)
			if err != nil {
				return broker.Order{}, fmt.Errorf("place order: price %s: %w", inst.Symbol, err)
			}
		}
		fillPrice = px
	}

	e.mu.Lock()

	now := e.now()
	o := &broker.Order{
		ID:         e.ids.New(),
		Symbol:     inst.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		Units:      units,
		Sizing:     sizing,
		LimitPrice: clonePtr(req.LimitPrice),
		StopPrice:  clonePtr(req.StopPrice),
		TakeProfit: clonePtr(req.TakeProfit),
		StopLoss:   clonePtr(req.StopLoss),
		Status:     broker.Open,
		CreatedAt:  now,
		Instrument: inst,
	}
	e.orders[o.ID] = o
	e.orderSeq = append(e.orderSeq, o.ID)

	var ev events
	if o.Type == broker.Market {
		t := e.fillLocked(o, fillPrice, now)
		ev.filled = append(ev.filled, fill{order: cloneOrder(o), trade: cloneTrade(t)})
		e.recalcLocked()
		ev.equity = e.snapshotLocked(now)
	}
	out := cloneOrder(o)
	listener := e.listener

	e.mu.Unlock()

	e.log.Info("order placed",
		slog.String("order_id", out.ID),
		slog.String("symbol", out.Symbol),
		slog.String("side", string(out.Side)),
		slog.String("type", string(out.Type)),
		slog.Float64("units", out.Units),
	)
	e.publish(listener, ev)
	return out, nil
}

// CancelOrder moves an OPEN order to CANCELLED. It reports false and
// changes nothing when the order is unknown or already terminal.
func (e *Engine) CancelOrder(orderID string) bool {
	e.mu.Lock()
	o, ok := e.orders[orderID]
	if !ok || o.Status != broker.Open {
		e.mu.Unlock()
		return false
	}
	o.Status = broker.Cancelled
	e.mu.Unlock()

	e.log.Info("order cancelled", slog.String("order_id", orderID))
	return true
}

// CheckAndExecuteOrders fills every OPEN order whose trigger is met by the
// cached price of its symbol, in creation order. Fills happen at the
// observed price. Orders for unpriced symbols are skipped.
func (e *Engine) CheckAndExecuteOrders() []broker.Trade {
	e.mu.Lock()

	now := e.now()
	var ev events
	var filled []broker.Trade
	for _, oid := range e.orderSeq {
		o := e.orders[oid]
		if o.Status != broker.Open {
			continue
		}
		px, ok := e.quotes.Get(o.Symbol)
		if !ok || !orderTriggered(o, px) {
			continue
		}
		t := e.fillLocked(o, px, now)
		ev.filled = append(ev.filled, fill{order: cloneOrder(o), trade: cloneTrade(t)})
		filled = append(filled, cloneTrade(t))
	}
	listener := e.listener

	e.mu.Unlock()

	e.publish(listener, ev)
	return filled
}

// CloseTrade closes an open trade at the current price. Closing a missing
// or already closed trade is a no-op. When the symbol has no cached price
// one is fetched; if that fails the trade stays open and the error wraps
// ErrCloseUnpriced.
func (e *Engine) CloseTrade(ctx context.Context, tradeID string, reason broker.CloseReason) error {
	if reason == "" {
		reason = broker.Manual
	}
	if !reason.Valid() {
		return fmt.Errorf("close trade: unknown reason %q", reason)
	}

	e.mu.Lock()
	t, ok := e.trades[tradeID]
	if !ok || !t.Open() {
		e.mu.Unlock()
		return nil
	}
	sym := t.Symbol
	e.mu.Unlock()

	px, ok := e.quotes.Get(sym)
	if !ok {
		var err error
		px, err = e.quotes.Fetch(ctx, sym)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCloseUnpriced, sym, err)
		}
	}

	e.mu.Lock()

	// A tick may have closed it while we were fetching.
	t, ok = e.trades[tradeID]
	if !ok || !t.Open() {
		e.mu.Unlock()
		return nil
	}
	now := e.now()
	e.closeLocked(t, px, reason, now)
	e.recalcLocked()

	ev := events{
		closed: []broker.Trade{cloneTrade(t)},
		equity: e.snapshotLocked(now),
	}
	listener := e.listener

	e.mu.Unlock()

	e.publish(listener, ev)
	return nil
}

// CloseAll closes every open trade manually. Trades that cannot be priced
// stay open and their errors are joined.
func (e *Engine) CloseAll(ctx context.Context) error {
	var errs []error
	for _, t := range e.Trades() {
		if !t.Open() {
			continue
		}
		if err := e.CloseTrade(ctx, t.ID, broker.Manual); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CheckStopLossAndTakeProfit closes every open trade whose take-profit or
// stop-loss is hit by its symbol's cached price.
func (e *Engine) CheckStopLossAndTakeProfit() []broker.Trade {
	e.mu.Lock()

	now := e.now()
	var closed []broker.Trade
	for _, tid := range e.tradeSeq {
		t := e.trades[tid]
		if !t.Open() {
			continue
		}
		px, ok := e.quotes.Get(t.Symbol)
		if !ok {
			continue
		}
		reason, hit := exitReason(t, px)
		if !hit {
			continue
		}
		e.closeLocked(t, px, reason, now)
		closed = append(closed, cloneTrade(t))
	}
	if len(closed) > 0 {
		e.recalcLocked()
	}
	ev := events{closed: closed}
	listener := e.listener

	e.mu.Unlock()

	e.publish(listener, ev)
	return closed
}

// RecalcEquity recomputes equity from the balance and every open trade,
// valuing trades with no cached price at their entry price, and journals
// the result.
func (e *Engine) RecalcEquity() broker.Account {
	e.mu.Lock()
	e.recalcLocked()
	acct := e.acct
	snap := e.snapshotLocked(e.now())
	e.mu.Unlock()

	e.publish(nil, events{equity: snap})
	return acct
}

// Reset drops all orders and trades and restarts the account at balance.
func (e *Engine) Reset(balance float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.orders = make(map[string]*broker.Order)
	e.orderSeq = nil
	e.trades = make(map[string]*broker.Trade)
	e.tradeSeq = nil
	e.acct.Balance = balance
	e.acct.Equity = balance
}

// SeedBalance sets the balance from src, keeping orders and trades.
// The balance is left alone when src has none.
func (e *Engine) SeedBalance(ctx context.Context, src BalanceSource) error {
	bal, ok, err := src.LatestBalance(ctx)
	if err != nil {
		return fmt.Errorf("seed balance: %w", err)
	}
	if !ok {
		return nil
	}

	e.mu.Lock()
	e.acct.Balance = bal
	e.recalcLocked()
	e.mu.Unlock()

	e.log.Info("balance seeded", slog.Float64("balance", bal))
	return nil
}

// Track adds symbols to the set polled even without orders or trades.
func (e *Engine) Track(symbols ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range symbols {
		if sym := market.Canonical(s); sym != "" {
			e.tracked[sym] = struct{}{}
		}
	}
}

func (e *Engine) Untrack(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.tracked, market.Canonical(symbol))
}

func (e *Engine) Tracked() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sortedKeys(e.tracked)
}

// Symbols is the sorted union of tracked symbols, symbols of OPEN orders
// and symbols of open trades: everything a tick has to refresh.
func (e *Engine) Symbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	set := make(map[string]struct{}, len(e.tracked))
	for s := range e.tracked {
		set[s] = struct{}{}
	}
	for _, o := range e.orders {
		if o.Status == broker.Open {
			set[o.Symbol] = struct{}{}
		}
	}
	for _, t := range e.trades {
		if t.Open() {
			set[t.Symbol] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// Orders returns copies of all orders in creation order.
func (e *Engine) Orders() []broker.Order {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]broker.Order, 0, len(e.orderSeq))
	for _, oid := range e.orderSeq {
		out = append(out, cloneOrder(e.orders[oid]))
	}
	return out
}

// Trades returns copies of all trades, open and closed, in fill order.
func (e *Engine) Trades() []broker.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]broker.Trade, 0, len(e.tradeSeq))
	for _, tid := range e.tradeSeq {
		out = append(out, cloneTrade(e.trades[tid]))
	}
	return out
}

func (e *Engine) Order(orderID string) (broker.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[orderID]
	if !ok {
		return broker.Order{}, false
	}
	return cloneOrder(o), true
}

func (e *Engine) Trade(tradeID string) (broker.Trade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.trades[tradeID]
	if !ok {
		return broker.Trade{}, false
	}
	return cloneTrade(t), true
}

// UnrealizedPnL values an open trade at the cached price (or its entry
// price when unpriced). Closed trades report their realized P&L.
func (e *Engine) UnrealizedPnL(t broker.Trade) float64 {
	if !t.Open() {
		return t.PnL
	}
	px, ok := e.quotes.Get(t.Symbol)
	if !ok {
		px = t.AvgPrice
	}
	return ComputePnL(t, px, e.quotes)
}

func (e *Engine) fillLocked(o *broker.Order, price float64, at time.Time) *broker.Trade {
	o.Status = broker.Filled
	filledAt := at
	o.FilledAt = &filledAt

	t := &broker.Trade{
		ID:         e.ids.New(),
		OrderID:    o.ID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Units:      o.Units,
		Instrument: o.Instrument,
		AvgPrice:   price,
		OpenedAt:   at,
		TakeProfit: clonePtr(o.TakeProfit),
		StopLoss:   clonePtr(o.StopLoss),
	}
	if o.Instrument.Forex != nil && o.Instrument.ContractSize > 0 {
		t.Lots = o.Units / o.Instrument.ContractSize
	}

	e.trades[t.ID] = t
	e.tradeSeq = append(e.tradeSeq, t.ID)
	return t
}

// closeLocked fixes the close fields of t and folds its P&L into the
// balance in the same step.
func (e *Engine) closeLocked(t *broker.Trade, price float64, reason broker.CloseReason, at time.Time) {
	pnl := ComputePnL(*t, price, e.quotes)

	closedAt := at
	t.ClosedAt = &closedAt
	t.ClosePrice = price
	t.CloseReason = reason
	t.PnL = pnl

	e.acct.Balance += pnl
}

func (e *Engine) recalcLocked() {
	equity := e.acct.Balance

	for _, tid := range e.tradeSeq {
		t := e.trades[tid]
		if !t.Open() {
			continue
		}
		px, ok := e.quotes.Get(t.Symbol)
		if !ok {
			px = t.AvgPrice
		}
		equity += ComputePnL(*t, px, e.quotes)
	}

	e.acct.Equity = equity
}

func (e *Engine) snapshotLocked(at time.Time) *journal.EquitySnapshot {
	return &journal.EquitySnapshot{
		Time:    at,
		Balance: e.acct.Balance,
		Equity:  e.acct.Equity,
	}
}

type fill struct {
	order broker.Order
	trade broker.Trade
}

// events collects what a locked section produced, to be published after
// the lock is released.
type events struct {
	filled []fill
	closed []broker.Trade
	equity *journal.EquitySnapshot
}

func (e *Engine) publish(l Listener, ev events) {
	for _, f := range ev.filled {
		e.log.Info("order filled",
			slog.String("order_id", f.order.ID),
			slog.String("trade_id", f.trade.ID),
			slog.String("symbol", f.trade.Symbol),
			slog.Float64("price", f.trade.AvgPrice),
		)
		if l != nil {
			l.OnOrderFilled(f.order, f.trade)
		}
	}

	for _, t := range ev.closed {
		e.log.Info("trade closed",
			slog.String("trade_id", t.ID),
			slog.String("symbol", t.Symbol),
			slog.String("reason", string(t.CloseReason)),
			slog.Float64("price", t.ClosePrice),
			slog.Float64("pnl", t.PnL),
		)
		if err := e.journal.RecordTrade(tradeRecord(t)); err != nil {
			e.log.Warn("journal trade failed", slog.String("trade_id", t.ID), slog.Any("error", err))
		}
		if l != nil {
			l.OnTradeClosed(t)
		}
	}

	if ev.equity != nil {
		if err := e.journal.RecordEquity(*ev.equity); err != nil {
			e.log.Warn("journal equity failed", slog.Any("error", err))
		}
	}
}

func tradeRecord(t broker.Trade) journal.TradeRecord {
	rec := journal.TradeRecord{
		TradeID:    t.ID,
		OrderID:    t.OrderID,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		Units:      t.Units,
		Lots:       t.Lots,
		EntryPrice: t.AvgPrice,
		ExitPrice:  t.ClosePrice,
		OpenTime:   t.OpenedAt,
		RealizedPL: t.PnL,
		Reason:     string(t.CloseReason),
	}
	if t.ClosedAt != nil {
		rec.CloseTime = *t.ClosedAt
	}
	return rec
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
