package sim

import (
	"math"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/market"
)

func validateRequest(req broker.OrderRequest) error {
	if market.Canonical(req.Symbol) == "" {
		return &ValidationError{Field: "symbol", Reason: "is required"}
	}
	if !req.Side.Valid() {
		return &ValidationError{Field: "side", Reason: "must be LONG or SHORT"}
	}
	if !req.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "must be MARKET, LIMIT or STOP"}
	}
	if req.Sizing != "" && !req.Sizing.Valid() {
		return &ValidationError{Field: "sizing", Reason: "must be UNITS or LOTS"}
	}
	if !positive(req.Quantity) {
		return &ValidationError{Field: "quantity", Reason: "must be a positive number"}
	}

	prices := []struct {
		field string
		v     *float64
	}{
		{"limit_price", req.LimitPrice},
		{"stop_price", req.StopPrice},
		{"take_profit", req.TakeProfit},
		{"stop_loss", req.StopLoss},
	}
	for _, p := range prices {
		if p.v != nil && !positive(*p.v) {
			return &ValidationError{Field: p.field, Reason: "must be a positive number"}
		}
	}

	switch req.Type {
	case broker.Limit:
		if req.LimitPrice == nil {
			return &ValidationError{Field: "limit_price", Reason: "is required for LIMIT orders"}
		}
	case broker.Stop:
		if req.StopPrice == nil {
			return &ValidationError{Field: "stop_price", Reason: "is required for STOP orders"}
		}
	case broker.Market:
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
