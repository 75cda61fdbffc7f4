package market

// RateLookup is a synchronous best-effort price lookup, satisfied by the
// quote cache.
type RateLookup interface {
	Get(symbol string) (float64, bool)
}

// QuoteToUSD returns how many USD one unit of ccy is worth, using whatever
// pair is cached: CCYUSD directly or the inverse of USDCCY.
// ok is false when neither is known; the rate is then 1.0 (parity).
func QuoteToUSD(ccy string, rates RateLookup) (rate float64, ok bool) {
	if ccy == "USD" {
		return 1.0, true
	}
	if rates != nil {
		if px, found := rates.Get(ccy + "USD"); found && px > 0 {
			return px, true
		}
		if px, found := rates.Get("USD" + ccy); found && px > 0 {
			return 1.0 / px, true
		}
	}
	return 1.0, false
}

// PipValueUSD is the USD value of a one-pip move on one lot at price.
// It is zero for anything that is not a forex pair.
func PipValueUSD(inst Instrument, price float64, rates RateLookup) float64 {
	fx := inst.Forex
	if fx == nil {
		return 0
	}

	perLot := inst.ContractSize * fx.PipPrecision

	switch {
	case fx.Quote == "USD":
		return perLot
	case fx.Base == "USD":
		if price <= 0 {
			return 0
		}
		return perLot / price
	default:
		rate, _ := QuoteToUSD(fx.Quote, rates)
		return perLot * rate
	}
}
