package quotes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dyglo/trading-line-sub000/market"
)

// YahooSource reads the chart endpoint of a Yahoo Finance compatible API.
type YahooSource struct {
	BaseURL string // e.g. https://query1.finance.yahoo.com
	HTTP    *http.Client
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta yahooMeta `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooMeta struct {
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	DayHigh            float64 `json:"regularMarketDayHigh"`
	DayLow             float64 `json:"regularMarketDayLow"`
	Volume             float64 `json:"regularMarketVolume"`
	PreviousClose      float64 `json:"chartPreviousClose"`
	MarketTime         int64   `json:"regularMarketTime"`
}

func (s *YahooSource) FetchQuote(ctx context.Context, inst market.Instrument) (Quote, error) {
	var body yahooChart
	path := "/v8/finance/chart/" + inst.ProviderSymbol
	opts := map[string]string{"interval": "1d", "range": "1d"}
	if err := getJSON(ctx, s.HTTP, s.BaseURL, path, opts, &body); err != nil {
		return Quote{}, fmt.Errorf("yahoo %s: %w", inst.ProviderSymbol, err)
	}
	if e := body.Chart.Error; e != nil {
		return Quote{}, fmt.Errorf("yahoo %s: %w: %s: %s", inst.ProviderSymbol, ErrUpstream, e.Code, e.Description)
	}
	if len(body.Chart.Result) == 0 {
		return Quote{}, fmt.Errorf("yahoo %s: %w: empty result", inst.ProviderSymbol, ErrUpstream)
	}

	m := body.Chart.Result[0].Meta
	q := Quote{Symbol: inst.Symbol, Price: m.RegularMarketPrice}
	if m.MarketTime > 0 {
		q.Time = time.Unix(m.MarketTime, 0).UTC()
	}
	if m.DayHigh > 0 {
		q.High24h = ptr(m.DayHigh)
	}
	if m.DayLow > 0 {
		q.Low24h = ptr(m.DayLow)
	}
	if m.Volume > 0 {
		q.Volume24h = ptr(m.Volume)
	}
	if m.PreviousClose > 0 {
		q.ChangePercent = ptr((m.RegularMarketPrice - m.PreviousClose) / m.PreviousClose * 100)
	}
	return q, nil
}
