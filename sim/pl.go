package sim

import (
	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/market"
)

// ComputePnL is the profit or loss of t, in USD, if it were closed at price.
// It is used for both unrealized and realized P&L.
//
// Forex trades are valued by pips: the pip difference times the USD value
// of a pip times the lot count. When the quote currency is neither USD nor
// convertible through rates, a pip is valued at parity (see
// market.QuoteToUSD). Everything else is (price - avg) * units.
func ComputePnL(t broker.Trade, price float64, rates market.RateLookup) float64 {
	sign := t.Side.Sign()
	inst := t.Instrument

	fx := inst.Forex
	if fx == nil {
		return (price - t.AvgPrice) * sign * t.Units
	}
	if fx.PipPrecision <= 0 || inst.ContractSize <= 0 {
		return 0
	}

	pipDiff := (price - t.AvgPrice) / fx.PipPrecision
	pipValue := market.PipValueUSD(inst, price, rates)
	lots := t.Units / inst.ContractSize

	return pipDiff * pipValue * lots * sign
}
