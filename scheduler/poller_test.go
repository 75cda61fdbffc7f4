package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder logs every call a tick makes, in order.
type recorder struct {
	mu      sync.Mutex
	symbols []string
	calls   []string
	fail    map[string]bool
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) Symbols() []string {
	r.add("symbols")
	return r.symbols
}

func (r *recorder) CheckAndExecuteOrders() []broker.Trade {
	r.add("orders")
	return []broker.Trade{{ID: "filled"}}
}

func (r *recorder) CheckStopLossAndTakeProfit() []broker.Trade {
	r.add("sltp")
	return nil
}

func (r *recorder) RecalcEquity() broker.Account {
	r.add("equity")
	return broker.Account{Balance: 100, Equity: 110}
}

func (r *recorder) Refresh(ctx context.Context, symbol string) (float64, error) {
	if r.started != nil {
		r.once.Do(func() { close(r.started) })
	}
	if r.block != nil {
		<-r.block
	}
	r.add("refresh:" + symbol)
	if r.fail[symbol] {
		return 0, errors.New("boom")
	}
	return 1, nil
}

func newPoller(r *recorder, opts ...Option) *Poller {
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return New(r, r, opts...)
}

func TestTickOrdering(t *testing.T) {
	t.Parallel()

	r := &recorder{symbols: []string{"AAPL", "EURUSD", "ZZZZ"}, fail: map[string]bool{"ZZZZ": true}}
	p := newPoller(r)

	res, ran := p.Tick(context.Background())
	require.True(t, ran)

	calls := r.log()
	require.Len(t, calls, 1+3+3)
	assert.Equal(t, "symbols", calls[0])
	assert.ElementsMatch(t, []string{"refresh:AAPL", "refresh:EURUSD", "refresh:ZZZZ"}, calls[1:4])
	assert.Equal(t, []string{"orders", "sltp", "equity"}, calls[4:], "fills, then exits, then equity")

	assert.Equal(t, []string{"AAPL", "EURUSD", "ZZZZ"}, res.Symbols)
	require.Len(t, res.Filled, 1)
	assert.Empty(t, res.Closed)
	assert.Equal(t, 110.0, res.Account.Equity)
}

func TestTickCoalesces(t *testing.T) {
	t.Parallel()

	r := &recorder{
		symbols: []string{"AAPL"},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	p := newPoller(r)

	first := make(chan bool, 1)
	go func() {
		_, ran := p.Tick(context.Background())
		first <- ran
	}()
	<-r.started

	_, ran := p.Tick(context.Background())
	assert.False(t, ran, "overlapping tick is skipped")

	close(r.block)
	assert.True(t, <-first)

	_, ran = p.Tick(context.Background())
	assert.True(t, ran, "next tick runs once the previous one is done")
}

type gauge struct {
	cur, max atomic.Int32
}

func (g *gauge) Refresh(context.Context, string) (float64, error) {
	n := g.cur.Add(1)
	for {
		m := g.max.Load()
		if n <= m || g.max.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	g.cur.Add(-1)
	return 1, nil
}

func TestTickBoundsConcurrency(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	for i := 0; i < 12; i++ {
		r.symbols = append(r.symbols, string(rune('A'+i)))
	}
	g := &gauge{}
	p := New(r, g, WithLogger(logging.Discard()), WithMaxConcurrent(3))

	_, ran := p.Tick(context.Background())
	require.True(t, ran)
	assert.LessOrEqual(t, g.max.Load(), int32(3))
	assert.Greater(t, g.max.Load(), int32(0))
}

func TestTickNotifiesObservers(t *testing.T) {
	t.Parallel()

	r := &recorder{symbols: []string{"AAPL"}}
	p := newPoller(r)

	var got []TickResult
	p.OnTick(func(res TickResult) { got = append(got, res) })
	p.OnTick(func(res TickResult) { got = append(got, res) })

	p.Tick(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, got[0], got[1])
}

func TestRunTicksUntilCancelled(t *testing.T) {
	t.Parallel()

	r := &recorder{symbols: []string{"AAPL"}}
	p := newPoller(r, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int32
	p.OnTick(func(TickResult) {
		if ticks.Add(1) == 3 {
			cancel()
		}
	})

	err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, ticks.Load(), int32(3))
}

func TestRunRejectsZeroInterval(t *testing.T) {
	t.Parallel()

	p := newPoller(&recorder{}, WithInterval(0))
	assert.Error(t, p.Run(context.Background()))
}

type panicky struct{}

func (panicky) Refresh(_ context.Context, symbol string) (float64, error) {
	if symbol == "ZZZZ" {
		panic("source exploded")
	}
	return 1, nil
}

func TestTickSurvivesRefreshPanic(t *testing.T) {
	t.Parallel()

	r := &recorder{symbols: []string{"AAPL", "ZZZZ"}}
	p := New(r, panicky{}, WithLogger(logging.Discard()))

	var res TickResult
	var ran bool
	require.NotPanics(t, func() { res, ran = p.Tick(context.Background()) })
	require.True(t, ran)
	assert.Equal(t, []string{"symbols", "orders", "sltp", "equity"}, r.log())
	assert.Equal(t, 110.0, res.Account.Equity)

	_, ran = p.Tick(context.Background())
	assert.True(t, ran, "busy flag is released after a panicking refresh")
}
