package quotes

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/dyglo/trading-line-sub000/market"
	"github.com/shopspring/decimal"
)

// WalkSource is an offline source: every fetch moves the symbol's price by
// a normally distributed step of Volatility (a fraction of the price).
// The same seed yields the same path.
type WalkSource struct {
	mu    sync.Mutex
	rng   *rand.Rand
	vol   float64
	now   func() time.Time
	price map[string]float64
}

// NewWalkSource starts every symbol at its category fallback price unless
// it is listed in start.
func NewWalkSource(seed int64, volatility float64, start map[string]float64) *WalkSource {
	w := &WalkSource{
		rng:   rand.New(rand.NewSource(seed)),
		vol:   volatility,
		now:   time.Now,
		price: make(map[string]float64, len(start)),
	}
	for sym, px := range start {
		w.price[market.Canonical(sym)] = px
	}
	return w
}

// SetPrice moves the walk for symbol to px; the next fetch steps from there.
func (w *WalkSource) SetPrice(symbol string, px float64) {
	w.mu.Lock()
	w.price[market.Canonical(symbol)] = px
	w.mu.Unlock()
}

func (w *WalkSource) FetchQuote(ctx context.Context, inst market.Instrument) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	px, ok := w.price[inst.Symbol]
	if !ok {
		px = market.FallbackPrice(inst)
	}
	next := px * (1 + w.vol*w.rng.NormFloat64())
	if next <= 0 {
		next = px / 2
	}
	if r := roundPrice(inst, next); r > 0 {
		next = r
	}
	w.price[inst.Symbol] = next

	return Quote{Symbol: inst.Symbol, Price: next, Time: w.now()}, nil
}

// roundPrice trims a walked price to the precision the instrument trades at.
func roundPrice(inst market.Instrument, px float64) float64 {
	places := int32(2)
	if inst.Forex != nil {
		places = 5
		if inst.Forex.Quote == "JPY" {
			places = 3
		}
	}
	return decimal.NewFromFloat(px).Round(places).InexactFloat64()
}
