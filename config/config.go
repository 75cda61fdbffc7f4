package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dyglo/trading-line-sub000/market"
	"gopkg.in/yaml.v3"
)

// Config represents the complete paper-trading configuration
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Quotes  QuotesConfig  `json:"quotes" yaml:"quotes"`
	Symbols []string      `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	HTTP    HTTPConfig    `json:"http" yaml:"http"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// AccountConfig seeds the simulated account
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// QuotesConfig controls where quotes come from and how often they are polled
type QuotesConfig struct {
	Source        string  `json:"source" yaml:"source"` // "http" or "walk"
	YahooURL      string  `json:"yahoo_url,omitempty" yaml:"yahoo_url,omitempty"`
	BinanceURL    string  `json:"binance_url,omitempty" yaml:"binance_url,omitempty"`
	Timeout       string  `json:"timeout" yaml:"timeout"`             // e.g. "10s"
	PollInterval  string  `json:"poll_interval" yaml:"poll_interval"` // e.g. "5s"
	MaxConcurrent int     `json:"max_concurrent" yaml:"max_concurrent"`
	Seed          int64   `json:"seed,omitempty" yaml:"seed,omitempty"`             // walk source only
	Volatility    float64 `json:"volatility,omitempty" yaml:"volatility,omitempty"` // walk source only
}

// PollDuration parses PollInterval.
func (q QuotesConfig) PollDuration() (time.Duration, error) {
	return time.ParseDuration(q.PollInterval)
}

// TimeoutDuration parses Timeout; an empty value means no client timeout.
func (q QuotesConfig) TimeoutDuration() (time.Duration, error) {
	if q.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(q.Timeout)
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"; empty means none
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// HTTPConfig configures the JSON/websocket API
type HTTPConfig struct {
	Addr   string `json:"addr" yaml:"addr"`
	Origin string `json:"origin,omitempty" yaml:"origin,omitempty"`
}

// LoggingConfig configures slog output and file rotation
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	Format     string `json:"format,omitempty" yaml:"format,omitempty"` // "text" or "json"
	File       string `json:"file,omitempty" yaml:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML), applies
// environment overrides and validates the result.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from PAPERTRADER_* variables. getenv is
// os.Getenv outside of tests.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PAPERTRADER_BALANCE"); v != "" {
		bal, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PAPERTRADER_BALANCE: %w", err)
		}
		c.Account.Balance = bal
	}
	if v := getenv("PAPERTRADER_QUOTE_SOURCE"); v != "" {
		c.Quotes.Source = v
	}
	if v := getenv("PAPERTRADER_YAHOO_URL"); v != "" {
		c.Quotes.YahooURL = v
	}
	if v := getenv("PAPERTRADER_BINANCE_URL"); v != "" {
		c.Quotes.BinanceURL = v
	}
	if v := getenv("PAPERTRADER_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := getenv("PAPERTRADER_DB"); v != "" {
		c.Journal.Type = "sqlite"
		c.Journal.DBPath = v
	}
	if v := getenv("PAPERTRADER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Currency != "USD" {
		return fmt.Errorf("account.currency must be USD (P&L is computed in USD)")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}

	switch c.Quotes.Source {
	case "http":
		if c.Quotes.YahooURL == "" || c.Quotes.BinanceURL == "" {
			return fmt.Errorf("quotes.yahoo_url and quotes.binance_url are required for http source")
		}
	case "walk":
		if c.Quotes.Volatility < 0 {
			return fmt.Errorf("quotes.volatility must not be negative")
		}
	default:
		return fmt.Errorf("quotes.source must be 'http' or 'walk'")
	}

	poll, err := c.Quotes.PollDuration()
	if err != nil {
		return fmt.Errorf("quotes.poll_interval: %w", err)
	}
	if poll <= 0 {
		return fmt.Errorf("quotes.poll_interval must be positive")
	}
	timeout, err := c.Quotes.TimeoutDuration()
	if err != nil {
		return fmt.Errorf("quotes.timeout: %w", err)
	}
	if timeout < 0 {
		return fmt.Errorf("quotes.timeout must not be negative")
	}
	if c.Quotes.MaxConcurrent <= 0 {
		return fmt.Errorf("quotes.max_concurrent must be positive")
	}

	for _, s := range c.Symbols {
		if market.Canonical(s) == "" {
			return fmt.Errorf("symbols: empty symbol")
		}
	}

	switch c.Journal.Type {
	case "none", "":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "PAPER-001",
			Currency: "USD",
			Balance:  100_000,
		},
		Quotes: QuotesConfig{
			Source:        "http",
			YahooURL:      "https://query1.finance.yahoo.com",
			BinanceURL:    "https://api.binance.com",
			Timeout:       "10s",
			PollInterval:  "5s",
			MaxConcurrent: 8,
			Volatility:    0.001,
		},
		Symbols: []string{"AAPL", "EURUSD", "BTCUSD"},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./papertrader.sqlite",
		},
		HTTP: HTTPConfig{
			Addr:   "127.0.0.1:8080",
			Origin: "*",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
