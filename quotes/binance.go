package quotes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dyglo/trading-line-sub000/market"
	"github.com/shopspring/decimal"
)

// BinanceSource reads the public 24h ticker of a Binance compatible API.
type BinanceSource struct {
	BaseURL string // e.g. https://api.binance.com
	HTTP    *http.Client
}

// Binance sends every number as a string.
type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	PriceChangePercent string `json:"priceChangePercent"`
	CloseTime          int64  `json:"closeTime"`
}

func (s *BinanceSource) FetchQuote(ctx context.Context, inst market.Instrument) (Quote, error) {
	var t binanceTicker
	opts := map[string]string{"symbol": inst.ProviderSymbol}
	if err := getJSON(ctx, s.HTTP, s.BaseURL, "/api/v3/ticker/24hr", opts, &t); err != nil {
		return Quote{}, fmt.Errorf("binance %s: %w", inst.ProviderSymbol, err)
	}

	last, err := decimal.NewFromString(t.LastPrice)
	if err != nil {
		return Quote{}, fmt.Errorf("binance %s: %w: lastPrice %q", inst.ProviderSymbol, ErrUpstream, t.LastPrice)
	}

	q := Quote{Symbol: inst.Symbol, Price: last.InexactFloat64()}
	if t.CloseTime > 0 {
		q.Time = time.UnixMilli(t.CloseTime).UTC()
	}
	q.High24h = optionalDecimal(t.HighPrice)
	q.Low24h = optionalDecimal(t.LowPrice)
	q.Volume24h = optionalDecimal(t.Volume)
	q.ChangePercent = optionalDecimal(t.PriceChangePercent)
	return q, nil
}

func optionalDecimal(s string) *float64 {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return ptr(d.InexactFloat64())
}
