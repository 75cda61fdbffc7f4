// Package broker defines the orders, trades and account the simulator
// trades with, and the interface it exposes to callers.
package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dyglo/trading-line-sub000/market"
)

type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (Order, error)
	CancelOrder(id string) bool
	CloseTrade(ctx context.Context, id string, reason CloseReason) error
	Orders() []Order
	Trades() []Trade
}

// Side is the direction of an order or trade.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Sign is +1 for LONG and -1 for SHORT.
func (s Side) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

func (s Side) Valid() bool { return s == Long || s == Short }

type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
	Stop   OrderType = "STOP"
)

func (t OrderType) Valid() bool { return t == Market || t == Limit || t == Stop }

// OrderStatus moves OPEN -> FILLED or OPEN -> CANCELLED, never back.
type OrderStatus string

const (
	Open      OrderStatus = "OPEN"
	Filled    OrderStatus = "FILLED"
	Cancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Terminal() bool { return s == Filled || s == Cancelled }

// SizingMode says how OrderRequest.Quantity is expressed.
type SizingMode string

const (
	Units SizingMode = "UNITS"
	Lots  SizingMode = "LOTS"
)

func (m SizingMode) Valid() bool { return m == Units || m == Lots }

type CloseReason string

const (
	Manual     CloseReason = "MANUAL"
	TakeProfit CloseReason = "TAKE_PROFIT"
	StopLoss   CloseReason = "STOP_LOSS"
)

func (r CloseReason) Valid() bool { return r == Manual || r == TakeProfit || r == StopLoss }

// ParseSide accepts LONG/SHORT and the BUY/SELL aliases, in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return Long, nil
	case "SHORT", "SELL":
		return Short, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

func ParseOrderType(s string) (OrderType, error) {
	t := OrderType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown order type %q", s)
	}
	return t, nil
}

// ParseSizingMode parses UNITS or LOTS; the empty string is allowed and
// leaves the choice to the engine.
func ParseSizingMode(s string) (SizingMode, error) {
	m := SizingMode(strings.ToUpper(strings.TrimSpace(s)))
	if m == "" || m.Valid() {
		return m, nil
	}
	return "", fmt.Errorf("unknown sizing mode %q", s)
}

// OrderRequest is what a caller submits. Optional prices are nil when unset.
type OrderRequest struct {
	Symbol     string     `json:"symbol"`
	Side       Side       `json:"side"`
	Type       OrderType  `json:"type"`
	Quantity   float64    `json:"quantity"`
	Sizing     SizingMode `json:"sizing,omitempty"`
	LimitPrice *float64   `json:"limit_price,omitempty"`
	StopPrice  *float64   `json:"stop_price,omitempty"`
	TakeProfit *float64   `json:"take_profit,omitempty"`
	StopLoss   *float64   `json:"stop_loss,omitempty"`
}

// Order is a request accepted by the engine. Units is Quantity converted
// to base units; it is fixed at creation.
type Order struct {
	ID         string            `json:"id"`
	Symbol     string            `json:"symbol"`
	Side       Side              `json:"side"`
	Type       OrderType         `json:"type"`
	Quantity   float64           `json:"quantity"`
	Units      float64           `json:"units"`
	Sizing     SizingMode        `json:"sizing"`
	LimitPrice *float64          `json:"limit_price,omitempty"`
	StopPrice  *float64          `json:"stop_price,omitempty"`
	TakeProfit *float64          `json:"take_profit,omitempty"`
	StopLoss   *float64          `json:"stop_loss,omitempty"`
	Status     OrderStatus       `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	FilledAt   *time.Time        `json:"filled_at,omitempty"`
	Instrument market.Instrument `json:"instrument"`
}

// Trade is a filled position. Once ClosedAt is set, the close fields are
// never written again.
type Trade struct {
	ID         string            `json:"id"`
	OrderID    string            `json:"order_id"`
	Symbol     string            `json:"symbol"`
	Side       Side              `json:"side"`
	Units      float64           `json:"units"`
	Lots       float64           `json:"lots,omitempty"`
	Instrument market.Instrument `json:"instrument"`
	AvgPrice   float64           `json:"avg_price"`
	PnL        float64           `json:"pnl"`
	OpenedAt   time.Time         `json:"opened_at"`
	TakeProfit *float64          `json:"take_profit,omitempty"`
	StopLoss   *float64          `json:"stop_loss,omitempty"`

	ClosedAt    *time.Time  `json:"closed_at,omitempty"`
	ClosePrice  float64     `json:"close_price,omitempty"`
	CloseReason CloseReason `json:"close_reason,omitempty"`
}

func (t Trade) Open() bool { return t.ClosedAt == nil }

// Account is the simulated cash account. Balance only changes when trades
// close; Equity is Balance plus the unrealized P&L of open trades.
type Account struct {
	ID       string  `json:"id"`
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
}

func (a Account) UnrealizedPnL() float64 { return a.Equity - a.Balance }
