package sim

import (
	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/market"
)

// Copies handed out by the engine share no pointers with its state.

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInstrument(inst market.Instrument) market.Instrument {
	inst.Forex = clonePtr(inst.Forex)
	return inst
}

func cloneOrder(o *broker.Order) broker.Order {
	c := *o
	c.LimitPrice = clonePtr(o.LimitPrice)
	c.StopPrice = clonePtr(o.StopPrice)
	c.TakeProfit = clonePtr(o.TakeProfit)
	c.StopLoss = clonePtr(o.StopLoss)
	c.FilledAt = clonePtr(o.FilledAt)
	c.Instrument = cloneInstrument(o.Instrument)
	return c
}

func cloneTrade(t *broker.Trade) broker.Trade {
	c := *t
	c.TakeProfit = clonePtr(t.TakeProfit)
	c.StopLoss = clonePtr(t.StopLoss)
	c.ClosedAt = clonePtr(t.ClosedAt)
	c.Instrument = cloneInstrument(t.Instrument)
	return c
}
