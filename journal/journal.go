// Package journal persists closed trades and equity snapshots.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dyglo/trading-line-sub000/config"
)

var ErrNotFound = errors.New("not found")

// TradeRecord is a closed trade as written to the journal.
type TradeRecord struct {
	TradeID    string
	OrderID    string
	Symbol     string
	Side       string
	Units      float64
	Lots       float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// EquitySnapshot is the account state after an equity recomputation.
type EquitySnapshot struct {
	Time    time.Time
	Balance float64
	Equity  float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error      { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }

// FixedBalance is a balance source that always answers with the configured
// starting balance.
type FixedBalance float64

func (f FixedBalance) LatestBalance(context.Context) (float64, bool, error) {
	return float64(f), true, nil
}

// Open builds the journal selected by cfg.
func Open(cfg config.JournalConfig) (Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLite(cfg.DBPath)
	case "csv":
		return NewCSV(cfg.TradesFile, cfg.EquityFile)
	case "none", "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}
