package quotes

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dyglo/trading-line-sub000/market"
	"golang.org/x/sync/singleflight"
)

type entry struct {
	quote Quote
	seq   uint64
}

// Cache maps symbols to their last known quote.
//
// Reads never block on the network. Concurrent fetches for one symbol share
// a single upstream call, and every fetch is stamped with a sequence number
// taken when it starts so a slow response cannot overwrite a newer one.
type Cache struct {
	src     Source
	log     *slog.Logger
	now     func() time.Time
	timeout time.Duration

	seq    atomic.Uint64
	flight singleflight.Group

	mu      sync.RWMutex
	entries map[string]entry
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) { c.log = l }
}

// WithClock overrides time.Now for stamping quotes.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithFetchTimeout bounds each upstream call. Zero means no extra bound.
func WithFetchTimeout(d time.Duration) CacheOption {
	return func(c *Cache) { c.timeout = d }
}

// NewCache returns an empty cache backed by src.
func NewCache(src Source, opts ...CacheOption) *Cache {
	c := &Cache{
		src:     src,
		log:     slog.Default(),
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached price for symbol. ok is false when the price is
// unknown, which is different from a zero price.
func (c *Cache) Get(symbol string) (float64, bool) {
	q, ok := c.Quote(symbol)
	return q.Price, ok
}

// Quote returns the full cached quote for symbol.
func (c *Cache) Quote(symbol string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[market.Canonical(symbol)]
	return e.quote, ok
}

// Snapshot copies every cached quote, keyed by symbol.
func (c *Cache) Snapshot() map[string]Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Quote, len(c.entries))
	for k, e := range c.entries {
		out[k] = e.quote
	}
	return out
}

// Symbols lists the cached symbols in sorted order.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Set writes q unconditionally (it takes a fresh sequence number).
func (c *Cache) Set(q Quote) {
	q.Symbol = market.Canonical(q.Symbol)
	if q.Time.IsZero() {
		q.Time = c.now()
	}
	c.store(q, c.seq.Add(1), false)
}

// Fetch asks the source for a fresh quote, caches it and returns the
// freshest cached price. Source failures are returned to the caller.
func (c *Cache) Fetch(ctx context.Context, symbol string) (float64, error) {
	sym := market.Canonical(symbol)

	ch := c.flight.DoChan(sym, func() (any, error) {
		seq := c.seq.Add(1)

		fctx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, c.timeout)
			defer cancel()
		}

		q, err := c.src.FetchQuote(fctx, market.Resolve(sym))
		if err != nil {
			return nil, err
		}
		if q.Price <= 0 || math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
			return nil, fmt.Errorf("%w: price %v", ErrBadQuote, q.Price)
		}
		q.Symbol = sym
		q.Fallback = false
		if q.Time.IsZero() {
			q.Time = c.now()
		}
		if got := c.store(q, seq, false); !got.Fallback {
			return got, nil
		}
		return q, nil
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return 0, fmt.Errorf("fetch %s: %w", sym, res.Err)
		}
		return res.Val.(Quote).Price, nil
	}
}

// Refresh is Fetch for background polling: when the source fails and the
// symbol has never been priced, the category's placeholder price is cached
// instead. An existing price is kept as-is. Only context errors are returned.
func (c *Cache) Refresh(ctx context.Context, symbol string) (float64, error) {
	px, err := c.Fetch(ctx, symbol)
	if err == nil {
		return px, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, ctxErr
	}

	inst := market.Resolve(symbol)
	fb := Quote{
		Symbol:   inst.Symbol,
		Price:    market.FallbackPrice(inst),
		Time:     c.now(),
		Fallback: true,
	}
	got := c.store(fb, 0, true)
	if got.Fallback {
		c.log.Warn("quote fetch failed, using fallback price",
			slog.String("symbol", inst.Symbol),
			slog.String("category", inst.Category.String()),
			slog.Float64("price", got.Price),
			slog.Any("error", err),
		)
	} else {
		c.log.Debug("quote fetch failed, keeping last price",
			slog.String("symbol", inst.Symbol),
			slog.Any("error", err),
		)
	}
	return got.Price, nil
}

// store writes q unless a write with a higher sequence already landed, or
// onlyIfAbsent is set and the symbol already has a quote. A real quote
// always replaces a placeholder. It returns the quote that is cached
// afterwards.
//
// Placeholders are stored with sequence 0 so any fetch in flight when
// they land still wins.
func (c *Cache) store(q Quote, seq uint64, onlyIfAbsent bool) Quote {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[q.Symbol]
	if ok && !(cur.quote.Fallback && !q.Fallback) && (onlyIfAbsent || cur.seq > seq) {
		return cur.quote
	}
	c.entries[q.Symbol] = entry{quote: q, seq: seq}
	return q
}
