package sim

import "github.com/dyglo/trading-line-sub000/broker"

func hitStopLoss(t *broker.Trade, price float64) bool {
	if t.StopLoss == nil {
		return false
	}
	if t.Side == broker.Long {
		return price <= *t.StopLoss
	}
	return price >= *t.StopLoss
}

func hitTakeProfit(t *broker.Trade, price float64) bool {
	if t.TakeProfit == nil {
		return false
	}
	if t.Side == broker.Long {
		return price >= *t.TakeProfit
	}
	return price <= *t.TakeProfit
}

// exitReason picks the automatic close reason for t at price, if any.
// Take-profit is checked first and wins when a gap crosses both levels.
func exitReason(t *broker.Trade, price float64) (broker.CloseReason, bool) {
	switch {
	case hitTakeProfit(t, price):
		return broker.TakeProfit, true
	case hitStopLoss(t, price):
		return broker.StopLoss, true
	}
	return "", false
}

// orderTriggered reports whether a pending LIMIT or STOP order fills at price.
func orderTriggered(o *broker.Order, price float64) bool {
	switch o.Type {
	case broker.Limit:
		if o.LimitPrice == nil {
			return false
		}
		if o.Side == broker.Long {
			return price <= *o.LimitPrice
		}
		return price >= *o.LimitPrice
	case broker.Stop:
		if o.StopPrice == nil {
			return false
		}
		if o.Side == broker.Long {
			return price >= *o.StopPrice
		}
		return price <= *o.StopPrice
	case broker.Market:
	}
	return false
}
