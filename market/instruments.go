// market/instruments.go
package market

import (
	"fmt"
	"sort"
	"strings"
)

// Category is the asset class of an instrument.
type Category int

const (
	Stocks Category = iota
	Forex
	Crypto
	Commodities
	Indices
)

var categoryNames = [...]string{
	Stocks:      "stocks",
	Forex:       "forex",
	Crypto:      "crypto",
	Commodities: "commodities",
	Indices:     "indices",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseCategory parses a category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// Provider identifies the upstream quote source an instrument is routed to.
type Provider int

const (
	Yahoo Provider = iota
	Binance
)

func (p Provider) String() string {
	switch p {
	case Yahoo:
		return "yahoo"
	case Binance:
		return "binance"
	default:
		return fmt.Sprintf("Provider(%d)", int(p))
	}
}

func (p Provider) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Provider) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "yahoo":
		*p = Yahoo
	case "binance":
		*p = Binance
	default:
		return fmt.Errorf("unknown provider %q", string(b))
	}
	return nil
}

const (
	// StandardLot is the number of base-currency units in one forex lot.
	StandardLot = 100_000

	pipDefault = 0.0001
	pipJPY     = 0.01
)

// ForexPair carries the fields only forex instruments have.
type ForexPair struct {
	Base         string  `json:"base"`
	Quote        string  `json:"quote"`
	PipPrecision float64 `json:"pip_precision"`
}

// Instrument is the trading metadata derived from a symbol.
// Forex is non-nil iff Category == Forex.
type Instrument struct {
	Symbol         string     `json:"symbol"`
	Category       Category   `json:"category"`
	Provider       Provider   `json:"provider"`
	ProviderSymbol string     `json:"provider_symbol"`
	ContractSize   float64    `json:"contract_size"`
	Forex          *ForexPair `json:"forex,omitempty"`
}

// QuoteCurrency is the currency prices are expressed in.
// Everything that is not a forex pair is quoted in USD.
func (i Instrument) QuoteCurrency() string {
	if i.Forex != nil {
		return i.Forex.Quote
	}
	return "USD"
}

// entry is a lookup-table row. Only the fields that differ from the
// category defaults are set.
type entry struct {
	category       Category
	providerSymbol string
}

var table = map[string]entry{
	// stocks
	"AAPL":  {Stocks, "AAPL"},
	"MSFT":  {Stocks, "MSFT"},
	"GOOGL": {Stocks, "GOOGL"},
	"AMZN":  {Stocks, "AMZN"},
	"TSLA":  {Stocks, "TSLA"},
	"NVDA":  {Stocks, "NVDA"},
	"META":  {Stocks, "META"},
	"NFLX":  {Stocks, "NFLX"},
	"AMD":   {Stocks, "AMD"},
	"JPM":   {Stocks, "JPM"},

	// forex
	"EURUSD": {Forex, "EURUSD=X"},
	"GBPUSD": {Forex, "GBPUSD=X"},
	"USDJPY": {Forex, "JPY=X"},
	"AUDUSD": {Forex, "AUDUSD=X"},
	"NZDUSD": {Forex, "NZDUSD=X"},
	"USDCAD": {Forex, "CAD=X"},
	"USDCHF": {Forex, "CHF=X"},
	"EURGBP": {Forex, "EURGBP=X"},
	"EURJPY": {Forex, "EURJPY=X"},
	"GBPJPY": {Forex, "GBPJPY=X"},

	// crypto
	"BTCUSD":  {Crypto, "BTCUSDT"},
	"ETHUSD":  {Crypto, "ETHUSDT"},
	"SOLUSD":  {Crypto, "SOLUSDT"},
	"XRPUSD":  {Crypto, "XRPUSDT"},
	"BNBUSD":  {Crypto, "BNBUSDT"},
	"ADAUSD":  {Crypto, "ADAUSDT"},
	"DOGEUSD": {Crypto, "DOGEUSDT"},

	// commodities
	"XAUUSD": {Commodities, "GC=F"},
	"XAGUSD": {Commodities, "SI=F"},
	"USOIL":  {Commodities, "CL=F"},
	"UKOIL":  {Commodities, "BZ=F"},
	"NATGAS": {Commodities, "NG=F"},
	"COPPER": {Commodities, "HG=F"},

	// indices
	"US500":  {Indices, "^GSPC"},
	"SPX500": {Indices, "^GSPC"},
	"NAS100": {Indices, "^NDX"},
	"US30":   {Indices, "^DJI"},
	"GER40":  {Indices, "^GDAXI"},
	"UK100":  {Indices, "^FTSE"},
	"JPN225": {Indices, "^N225"},
}

// Resolve classifies a symbol and derives its trading metadata.
//
// It never fails: a lookup-table hit wins, a bare six-letter symbol is read
// as a forex pair, and anything else is treated as a USD-quoted stock.
func Resolve(symbol string) Instrument {
	sym := Canonical(symbol)

	if e, ok := table[sym]; ok {
		return build(sym, e.category, e.providerSymbol)
	}
	if looksLikePair(sym) {
		return build(sym, Forex, sym+"=X")
	}
	return build(sym, Stocks, sym)
}

// Canonical is the normalized form of a symbol used as a map key everywhere.
func Canonical(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func build(sym string, cat Category, providerSymbol string) Instrument {
	inst := Instrument{
		Symbol:         sym,
		Category:       cat,
		Provider:       Yahoo,
		ProviderSymbol: providerSymbol,
		ContractSize:   1,
	}

	switch cat {
	case Forex:
		base, quote := sym[:3], sym[3:6]
		pip := pipDefault
		if quote == "JPY" {
			pip = pipJPY
		}
		inst.ContractSize = StandardLot
		inst.Forex = &ForexPair{Base: base, Quote: quote, PipPrecision: pip}
	case Crypto:
		inst.Provider = Binance
	case Stocks, Commodities, Indices:
	}
	return inst
}

func looksLikePair(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// Instruments lists every symbol in the lookup table, resolved and sorted.
func Instruments() []Instrument {
	out := make([]Instrument, 0, len(table))
	for sym := range table {
		out = append(out, Resolve(sym))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// FallbackPrice is the static placeholder used when no quote can be fetched.
func FallbackPrice(inst Instrument) float64 {
	switch inst.Category {
	case Forex:
		if inst.Forex != nil && inst.Forex.Quote == "JPY" {
			return 150
		}
		return 1.0
	case Crypto:
		return 50_000
	case Commodities:
		return 2_000
	case Indices:
		return 15_000
	case Stocks:
		return 150
	}
	return 150
}
