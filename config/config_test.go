package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.Equal(t, 100000.0, cfg.Account.Balance)
	assert.Equal(t, "http", cfg.Quotes.Source)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"missing currency", func(c *Config) { c.Account.Currency = "" }, "account.currency is required"},
		{"non usd currency", func(c *Config) { c.Account.Currency = "EUR" }, "account.currency must be USD"},
		{"negative balance", func(c *Config) { c.Account.Balance = -1000 }, "account.balance must be positive"},
		{"unknown source", func(c *Config) { c.Quotes.Source = "carrier-pigeon" }, "quotes.source must be"},
		{"http source without urls", func(c *Config) { c.Quotes.YahooURL = "" }, "quotes.yahoo_url and quotes.binance_url"},
		{"walk source needs no urls", func(c *Config) {
			c.Quotes.Source = "walk"
			c.Quotes.YahooURL, c.Quotes.BinanceURL = "", ""
		}, ""},
		{"negative volatility", func(c *Config) {
			c.Quotes.Source = "walk"
			c.Quotes.Volatility = -1
		}, "quotes.volatility"},
		{"bad poll interval", func(c *Config) { c.Quotes.PollInterval = "soon" }, "quotes.poll_interval"},
		{"zero poll interval", func(c *Config) { c.Quotes.PollInterval = "0s" }, "quotes.poll_interval must be positive"},
		{"bad timeout", func(c *Config) { c.Quotes.Timeout = "later" }, "quotes.timeout"},
		{"zero concurrency", func(c *Config) { c.Quotes.MaxConcurrent = 0 }, "quotes.max_concurrent must be positive"},
		{"blank symbol", func(c *Config) { c.Symbols = []string{"AAPL", "  "} }, "symbols: empty symbol"},
		{"bad journal type", func(c *Config) { c.Journal.Type = "paper" }, "journal.type must be"},
		{"csv without files", func(c *Config) {
			c.Journal = JournalConfig{Type: "csv", TradesFile: "trades.csv"}
		}, "journal trades_file and equity_file required"},
		{"sqlite without path", func(c *Config) { c.Journal.DBPath = "" }, "journal db_path required"},
		{"no journal", func(c *Config) { c.Journal = JournalConfig{Type: "none"} }, ""},
		{"empty journal type means none", func(c *Config) { c.Journal = JournalConfig{} }, ""},
		{"missing http addr", func(c *Config) { c.HTTP.Addr = "" }, "http.addr is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
		{"yml format", ".yml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Symbols = []string{"USDJPY", "XAUUSD"}
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Account, loaded.Account)
			assert.Equal(t, cfg.Quotes, loaded.Quotes)
			assert.Equal(t, cfg.Symbols, loaded.Symbols)
			assert.Equal(t, cfg.Journal, loaded.Journal)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  balance: 2500\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, cfg.Account.Balance)
	assert.Equal(t, "USD", cfg.Account.Currency)
	assert.Equal(t, "5s", cfg.Quotes.PollInterval)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PAPERTRADER_BALANCE":      "5000.5",
		"PAPERTRADER_QUOTE_SOURCE": "walk",
		"PAPERTRADER_HTTP_ADDR":    ":9090",
		"PAPERTRADER_DB":           "/tmp/pt.sqlite",
		"PAPERTRADER_LOG_LEVEL":    "debug",
	}
	cfg := Default()
	cfg.Journal = JournalConfig{Type: "none"}

	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, 5000.5, cfg.Account.Balance)
	assert.Equal(t, "walk", cfg.Quotes.Source)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, JournalConfig{Type: "sqlite", DBPath: "/tmp/pt.sqlite"}, cfg.Journal)
	assert.Equal(t, "debug", cfg.Logging.Level)

	bad := func(k string) string {
		if k == "PAPERTRADER_BALANCE" {
			return "lots"
		}
		return ""
	}
	assert.Error(t, Default().ApplyEnv(bad))
}

func TestDurations(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1h", time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"2s", 2 * time.Second, false},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			q := QuotesConfig{PollInterval: tt.in, Timeout: tt.in}
			d, err := q.PollDuration()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, d)

			to, err := q.TimeoutDuration()
			assert.NoError(t, err)
			assert.Equal(t, tt.want, to)
		})
	}

	d, err := QuotesConfig{}.TimeoutDuration()
	assert.NoError(t, err)
	assert.Zero(t, d)
}
