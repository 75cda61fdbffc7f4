package sim

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/internal/logging"
	"github.com/dyglo/trading-line-sub000/journal"
	"github.com/dyglo/trading-line-sub000/market"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

// fakeQuotes is a map-backed price cache. upstream holds what a fetch
// would return; fail makes every fetch fail.
type fakeQuotes struct {
	mu       sync.Mutex
	px       map[string]float64
	upstream map[string]float64
	fail     bool
	fetches  int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{px: map[string]float64{}, upstream: map[string]float64{}}
}

func (f *fakeQuotes) Get(symbol string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	px, ok := f.px[symbol]
	return px, ok
}

func (f *fakeQuotes) set(symbol string, px float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.px[symbol] = px
}

func (f *fakeQuotes) del(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.px, symbol)
}

func (f *fakeQuotes) Fetch(_ context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	px, ok := f.upstream[symbol]
	if f.fail || !ok {
		return 0, errUpstream
	}
	f.px[symbol] = px
	return px, nil
}

func (f *fakeQuotes) Refresh(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if px, err := f.Fetch(ctx, symbol); err == nil {
		return px, nil
	}
	px := market.FallbackPrice(market.Resolve(symbol))
	f.set(symbol, px)
	return px, nil
}

type testJournal struct {
	mu     sync.Mutex
	trades []journal.TradeRecord
	equity []journal.EquitySnapshot
}

func (j *testJournal) RecordTrade(rec journal.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, rec)
	return nil
}

func (j *testJournal) RecordEquity(rec journal.EquitySnapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.equity = append(j.equity, rec)
	return nil
}

func (j *testJournal) Close() error { return nil }

func (j *testJournal) tradeCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.trades)
}

func newEngine(t *testing.T, balance float64) (*Engine, *fakeQuotes, *testJournal) {
	t.Helper()
	q := newFakeQuotes()
	j := &testJournal{}
	acct := broker.Account{ID: "acct-1", Currency: "USD", Balance: balance}
	e := NewEngine(acct, q, WithJournal(j), WithLogger(logging.Discard()))
	return e, q, j
}

func f64(v float64) *float64 { return &v }

func openMarket(t *testing.T, e *Engine, symbol string, side broker.Side, qty float64, tp, sl *float64) broker.Trade {
	t.Helper()
	o, err := e.PlaceOrder(context.Background(), broker.OrderRequest{
		Symbol:     symbol,
		Side:       side,
		Type:       broker.Market,
		Quantity:   qty,
		TakeProfit: tp,
		StopLoss:   sl,
	})
	require.NoError(t, err)
	require.Equal(t, broker.Filled, o.Status)

	trades := e.Trades()
	require.NotEmpty(t, trades)
	tr := trades[len(trades)-1]
	require.Equal(t, o.ID, tr.OrderID)
	return tr
}

func account(t *testing.T, e *Engine) broker.Account {
	t.Helper()
	acct, err := e.GetAccount(context.Background())
	require.NoError(t, err)
	return acct
}
