package sim

import (
	"testing"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/market"
	"github.com/stretchr/testify/assert"
)

type rates map[string]float64

func (r rates) Get(symbol string) (float64, bool) {
	px, ok := r[symbol]
	return px, ok
}

func trade(symbol string, side broker.Side, units, avg float64) broker.Trade {
	inst := market.Resolve(symbol)
	t := broker.Trade{Symbol: inst.Symbol, Side: side, Units: units, AvgPrice: avg, Instrument: inst}
	if inst.Forex != nil {
		t.Lots = units / inst.ContractSize
	}
	return t
}

func TestComputePnL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		trade broker.Trade
		price float64
		rates rates
		want  float64
	}{
		{"forex_one_lot_long", trade("EURUSD", broker.Long, 100_000, 1.1000), 1.1050, nil, 500},
		{"forex_one_lot_short", trade("EURUSD", broker.Short, 100_000, 1.1000), 1.1050, nil, -500},
		{"forex_mini_lot", trade("GBPUSD", broker.Long, 10_000, 1.2500), 1.2480, nil, -20},
		{"forex_base_usd", trade("USDJPY", broker.Long, 100_000, 150.00), 150.50, nil, 100_000 * 0.5 / 150.50},
		{"forex_cross_converted", trade("EURGBP", broker.Long, 100_000, 0.8600), 0.8610, rates{"GBPUSD": 1.25}, 125},
		{"forex_cross_inverse_rate", trade("EURJPY", broker.Short, 100_000, 162.00), 161.00, rates{"USDJPY": 150}, 100_000 / 150.0},
		{"forex_cross_parity", trade("EURGBP", broker.Long, 100_000, 0.8600), 0.8610, nil, 100},
		{"stock_long", trade("AAPL", broker.Long, 10, 189.70), 195.70, nil, 60},
		{"stock_short", trade("AAPL", broker.Short, 10, 189.70), 195.70, nil, -60},
		{"crypto_fractional", trade("BTCUSD", broker.Long, 0.5, 50_000), 52_000, nil, 1_000},
		{"unchanged_price", trade("EURUSD", broker.Long, 100_000, 1.1), 1.1, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ComputePnL(tt.trade, tt.price, tt.rates)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestComputePnLForexUsesPipMath(t *testing.T) {
	t.Parallel()

	// pipDiff=50, pipValueUsd=10, lots=1
	tr := trade("EURUSD", broker.Long, 100_000, 1.1000)
	pipDiff := (1.1050 - 1.1000) / tr.Instrument.Forex.PipPrecision
	pipValue := market.PipValueUSD(tr.Instrument, 1.1050, nil)

	assert.InDelta(t, 50, pipDiff, 1e-9)
	assert.InDelta(t, 10, pipValue, 1e-9)
	assert.InDelta(t, 500, ComputePnL(tr, 1.1050, nil), 1e-6)
}
