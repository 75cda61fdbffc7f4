package market

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		symbol       string
		category     Category
		provider     Provider
		providerSym  string
		contractSize float64
		base, quote  string
		pip          float64
	}{
		{"known_stock", "AAPL", Stocks, Yahoo, "AAPL", 1, "", "", 0},
		{"lowercase_trimmed", "  aapl ", Stocks, Yahoo, "AAPL", 1, "", "", 0},
		{"known_forex", "EURUSD", Forex, Yahoo, "EURUSD=X", StandardLot, "EUR", "USD", 0.0001},
		{"jpy_pip", "USDJPY", Forex, Yahoo, "JPY=X", StandardLot, "USD", "JPY", 0.01},
		{"inferred_forex", "AUDCAD", Forex, Yahoo, "AUDCAD=X", StandardLot, "AUD", "CAD", 0.0001},
		{"inferred_jpy", "CADJPY", Forex, Yahoo, "CADJPY=X", StandardLot, "CAD", "JPY", 0.01},
		{"crypto_usdt_routing", "BTCUSD", Crypto, Binance, "BTCUSDT", 1, "", "", 0},
		{"commodity_table_beats_inference", "XAUUSD", Commodities, Yahoo, "GC=F", 1, "", "", 0},
		{"index", "US500", Indices, Yahoo, "^GSPC", 1, "", "", 0},
		{"unknown_default", "ZZZZ", Stocks, Yahoo, "ZZZZ", 1, "", "", 0},
		{"six_with_digit_not_pair", "ABC123", Stocks, Yahoo, "ABC123", 1, "", "", 0},
		{"empty", "", Stocks, Yahoo, "", 1, "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Resolve(tt.symbol)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.provider, got.Provider)
			assert.Equal(t, tt.providerSym, got.ProviderSymbol)
			assert.Equal(t, tt.contractSize, got.ContractSize)

			if tt.category != Forex {
				assert.Nil(t, got.Forex)
				assert.Equal(t, "USD", got.QuoteCurrency())
				return
			}
			require.NotNil(t, got.Forex)
			assert.Equal(t, tt.base, got.Forex.Base)
			assert.Equal(t, tt.quote, got.Forex.Quote)
			assert.Equal(t, tt.pip, got.Forex.PipPrecision)
			assert.Equal(t, tt.quote, got.QuoteCurrency())
		})
	}
}

func TestResolveDeterministic(t *testing.T) {
	t.Parallel()

	for _, sym := range []string{"EURUSD", "eurusd", "ZZZZ", "BTCUSD", "GBPNZD"} {
		a, b := Resolve(sym), Resolve(sym)
		assert.Equal(t, a, b, sym)
	}
}

func TestInstrumentsSortedAndResolved(t *testing.T) {
	t.Parallel()

	list := Instruments()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		prev, cur := list[i-1], list[i]
		ordered := prev.Category < cur.Category ||
			(prev.Category == cur.Category && prev.Symbol < cur.Symbol)
		assert.True(t, ordered, "%s before %s", prev.Symbol, cur.Symbol)
	}
	for _, inst := range list {
		assert.Equal(t, Resolve(inst.Symbol), inst)
	}
}

func TestFallbackPrice(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 150.0, FallbackPrice(Resolve("ZZZZ")))
	assert.Equal(t, 1.0, FallbackPrice(Resolve("EURUSD")))
	assert.Equal(t, 150.0, FallbackPrice(Resolve("USDJPY")))
	assert.Equal(t, 50_000.0, FallbackPrice(Resolve("BTCUSD")))
	assert.Equal(t, 2_000.0, FallbackPrice(Resolve("XAUUSD")))
	assert.Equal(t, 15_000.0, FallbackPrice(Resolve("NAS100")))
}

func TestCategoryText(t *testing.T) {
	t.Parallel()

	for _, c := range []Category{Stocks, Forex, Crypto, Commodities, Indices} {
		got, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	_, err := ParseCategory("bonds")
	assert.Error(t, err)

	b, err := json.Marshal(Resolve("EURUSD"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"category":"forex"`)
	assert.Contains(t, string(b), `"provider":"yahoo"`)

	var back Instrument
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Resolve("EURUSD"), back)

	var p Provider
	assert.Error(t, p.UnmarshalText([]byte("bloomberg")))
}
