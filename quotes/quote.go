// Package quotes holds the process-wide last-price cache and the upstream
// sources that fill it.
package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/dyglo/trading-line-sub000/market"
)

var (
	// ErrUpstream wraps any failure reported by a quote provider.
	ErrUpstream = errors.New("quote provider error")
	// ErrNoSource means no source is registered for an instrument's provider.
	ErrNoSource = errors.New("no quote source for provider")
	// ErrBadQuote is returned for non-positive or non-finite prices.
	ErrBadQuote = errors.New("invalid quote")
)

// Quote is one price observation. Only Price is required; the 24h fields
// are display extras some providers fill in.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	High24h       *float64  `json:"high_24h,omitempty"`
	Low24h        *float64  `json:"low_24h,omitempty"`
	Volume24h     *float64  `json:"volume_24h,omitempty"`
	ChangePercent *float64  `json:"change_percent,omitempty"`
	Time          time.Time `json:"time"`
	Fallback      bool      `json:"fallback,omitempty"`
}

// Source fetches a fresh quote for an instrument.
type Source interface {
	FetchQuote(ctx context.Context, inst market.Instrument) (Quote, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, inst market.Instrument) (Quote, error)

func (f SourceFunc) FetchQuote(ctx context.Context, inst market.Instrument) (Quote, error) {
	return f(ctx, inst)
}

func ptr(v float64) *float64 { return &v }
