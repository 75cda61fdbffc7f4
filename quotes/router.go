package quotes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dyglo/trading-line-sub000/market"
)

// Router sends each instrument to the source registered for its provider.
type Router map[market.Provider]Source

func (r Router) FetchQuote(ctx context.Context, inst market.Instrument) (Quote, error) {
	src, ok := r[inst.Provider]
	if !ok || src == nil {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoSource, inst.Provider)
	}
	return src.FetchQuote(ctx, inst)
}

// NewHTTPRouter wires the Yahoo and Binance sources to one shared client.
func NewHTTPRouter(yahooURL, binanceURL string, client *http.Client) Router {
	return Router{
		market.Yahoo:   &YahooSource{BaseURL: yahooURL, HTTP: client},
		market.Binance: &BinanceSource{BaseURL: binanceURL, HTTP: client},
	}
}
