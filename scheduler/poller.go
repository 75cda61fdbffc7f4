// Package scheduler drives the periodic refresh-and-recompute tick.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dyglo/trading-line-sub000/broker"
	"golang.org/x/sync/errgroup"
)

// Engine is the part of *sim.Engine a tick drives.
type Engine interface {
	Symbols() []string
	CheckAndExecuteOrders() []broker.Trade
	CheckStopLossAndTakeProfit() []broker.Trade
	RecalcEquity() broker.Account
}

// Refresher is the part of *quotes.Cache a tick drives.
type Refresher interface {
	Refresh(ctx context.Context, symbol string) (float64, error)
}

// TickResult summarizes one completed tick.
type TickResult struct {
	Time    time.Time      `json:"time"`
	Symbols []string       `json:"symbols"`
	Filled  []broker.Trade `json:"filled,omitempty"`
	Closed  []broker.Trade `json:"closed,omitempty"`
	Account broker.Account `json:"account"`
}

type Poller struct {
	engine        Engine
	quotes        Refresher
	interval      time.Duration
	maxConcurrent int
	log           *slog.Logger
	now           func() time.Time

	busy atomic.Bool

	mu        sync.Mutex
	observers []func(TickResult)
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithMaxConcurrent bounds the refreshes in flight during one tick.
func WithMaxConcurrent(n int) Option {
	return func(p *Poller) { p.maxConcurrent = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.log = l }
}

func New(engine Engine, quotes Refresher, opts ...Option) *Poller {
	p := &Poller{
		engine:        engine,
		quotes:        quotes,
		interval:      5 * time.Second,
		maxConcurrent: 8,
		log:           slog.Default(),
		now:           time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// OnTick registers fn to be called after every completed tick.
func (p *Poller) OnTick(fn func(TickResult)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

// Tick refreshes every relevant symbol, then fills triggered orders,
// then applies take-profit and stop-loss, then recomputes equity. It
// returns false without doing anything if another tick is still running.
func (p *Poller) Tick(ctx context.Context) (TickResult, bool) {
	if !p.busy.CompareAndSwap(false, true) {
		p.log.Debug("tick skipped: previous tick still running")
		return TickResult{}, false
	}
	defer p.busy.Store(false)

	start := p.now()
	symbols := p.engine.Symbols()

	var g errgroup.Group
	if p.maxConcurrent > 0 {
		g.SetLimit(p.maxConcurrent)
	}
	for _, sym := range symbols {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("quote refresh panic recovered", slog.String("symbol", sym), slog.Any("panic", r))
				}
			}()
			if _, err := p.quotes.Refresh(ctx, sym); err != nil {
				p.log.Warn("quote refresh failed", slog.String("symbol", sym), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()

	res := TickResult{Time: start, Symbols: symbols}
	res.Filled = p.engine.CheckAndExecuteOrders()
	res.Closed = p.engine.CheckStopLossAndTakeProfit()
	res.Account = p.engine.RecalcEquity()

	p.log.Debug("tick",
		slog.Int("symbols", len(symbols)),
		slog.Int("filled", len(res.Filled)),
		slog.Int("closed", len(res.Closed)),
		slog.Float64("equity", res.Account.Equity),
		slog.Duration("took", p.now().Sub(start)),
	)

	p.mu.Lock()
	observers := append([]func(TickResult){}, p.observers...)
	p.mu.Unlock()
	for _, fn := range observers {
		fn(res)
	}
	return res, true
}

// Run ticks once immediately and then every interval until ctx is done.
// Each tick runs in its own goroutine, so a slow tick makes later ones
// skip rather than queue. Run waits for the running tick before returning.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	launch := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("tick panic recovered", slog.Any("panic", r))
				}
			}()
			p.Tick(ctx)
		}()
	}

	launch()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info("poller started", slog.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			p.log.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			launch()
		}
	}
}
