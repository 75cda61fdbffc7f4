package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dyglo/trading-line-sub000/config"
	"github.com/dyglo/trading-line-sub000/internal/logging"
	"github.com/dyglo/trading-line-sub000/quotes"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "papertrader",
	Short: "A paper-trading order and position engine",
	Long: `Papertrader simulates a trading account against live or generated quotes.

It provides tools for:
  - Placing MARKET, LIMIT and STOP orders with take-profit and stop-loss
  - Marking open trades to market on a polling schedule
  - Forex lot sizing with USD pip values
  - A JSON and websocket API over the running engine
  - SQLite or CSV trade and equity journals`,
	SilenceUsage: true,
}

var (
	configPath string
	logLevel   string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML or JSON); defaults plus PAPERTRADER_* env when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

// loadConfig reads --config, or starts from the defaults when no file is
// given. Environment overrides apply either way.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		c, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	} else {
		cfg = config.Default()
		if err := cfg.ApplyEnv(os.Getenv); err != nil {
			return nil, fmt.Errorf("environment override: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as slog's default.
func newLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	log, closer := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(log)
	return log, closer
}

func buildSource(cfg *config.Config) (quotes.Source, error) {
	switch cfg.Quotes.Source {
	case "http":
		timeout, err := cfg.Quotes.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		return quotes.NewHTTPRouter(cfg.Quotes.YahooURL, cfg.Quotes.BinanceURL, &http.Client{Timeout: timeout}), nil
	case "walk":
		seed := cfg.Quotes.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return quotes.NewWalkSource(seed, cfg.Quotes.Volatility, nil), nil
	default:
		return nil, fmt.Errorf("unknown quote source %q", cfg.Quotes.Source)
	}
}

func buildCache(cfg *config.Config, log *slog.Logger) (*quotes.Cache, error) {
	src, err := buildSource(cfg)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Quotes.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	return quotes.NewCache(src, quotes.WithLogger(log), quotes.WithFetchTimeout(timeout)), nil
}
