package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/internal/logging"
	"github.com/dyglo/trading-line-sub000/journal"
	"github.com/dyglo/trading-line-sub000/quotes"
	"github.com/dyglo/trading-line-sub000/scheduler"
	"github.com/dyglo/trading-line-sub000/sim"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run an offline simulation on random-walk quotes",
	Long: `Run a short simulation without any network access.

Quotes come from a seeded random walk, so the same seed replays the same
session. The demo:
  1. Buys 10 AAPL at market with a take-profit and stop-loss 1% away
  2. Places a EURUSD LIMIT buy for 1 lot a few pips under the market
  3. Sells 0.01 BTCUSD with a STOP entry below the market
  4. Ticks the poller and prints every fill, close and the final account

Trades and equity are written to CSV files in --dir.

Example:
  papertrader demo --seed 7 --ticks 200`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

var (
	demoSeed  int64
	demoTicks int
	demoVol   float64
	demoDir   string
)

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().Int64Var(&demoSeed, "seed", 42, "random walk seed")
	demoCmd.Flags().IntVar(&demoTicks, "ticks", 100, "number of poller ticks to run")
	demoCmd.Flags().Float64Var(&demoVol, "volatility", 0.002, "per-tick price volatility (fraction of price)")
	demoCmd.Flags().StringVar(&demoDir, "dir", ".", "directory for demo-trades.csv and demo-equity.csv")
}

type demoPrinter struct{}

func (demoPrinter) OnOrderFilled(o broker.Order, t broker.Trade) {
	fmt.Printf("  FILL   %-5s %-6s %-7s units=%-8g @ %g\n", o.Type, o.Side, t.Symbol, t.Units, t.AvgPrice)
}

func (demoPrinter) OnTradeClosed(t broker.Trade) {
	fmt.Printf("  CLOSE  %-12s %-7s @ %g  P/L $%.2f\n", t.CloseReason, t.Symbol, t.ClosePrice, t.PnL)
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Println("=== Paper Trading Demo ===")
	fmt.Println()

	j, err := journal.NewCSV(filepath.Join(demoDir, "demo-trades.csv"), filepath.Join(demoDir, "demo-equity.csv"))
	if err != nil {
		return err
	}
	defer j.Close()

	log := logging.Discard()
	src := quotes.NewWalkSource(demoSeed, demoVol, map[string]float64{
		"AAPL":   189.70,
		"EURUSD": 1.0850,
		"BTCUSD": 60_000,
	})
	cache := quotes.NewCache(src, quotes.WithLogger(log))

	engine := sim.NewEngine(broker.Account{ID: "DEMO-001", Balance: 100_000}, cache,
		sim.WithJournal(j), sim.WithLogger(log))
	engine.SetListener(demoPrinter{})
	engine.Track("AAPL", "EURUSD", "BTCUSD")

	poller := scheduler.New(engine, cache, scheduler.WithLogger(log))
	if _, ok := poller.Tick(ctx); !ok {
		return fmt.Errorf("initial tick did not run")
	}

	aapl, _ := cache.Get("AAPL")
	eur, _ := cache.Get("EURUSD")
	btc, _ := cache.Get("BTCUSD")
	fmt.Printf("Opening prices: AAPL %.2f  EURUSD %.5f  BTCUSD %.2f\n\n", aapl, eur, btc)

	reqs := []broker.OrderRequest{
		{
			Symbol: "AAPL", Side: broker.Long, Type: broker.Market, Quantity: 10,
			TakeProfit: ptr(aapl * 1.01), StopLoss: ptr(aapl * 0.99),
		},
		{
			Symbol: "EURUSD", Side: broker.Long, Type: broker.Limit, Quantity: 1, Sizing: broker.Lots,
			LimitPrice: ptr(eur - 0.0005), TakeProfit: ptr(eur + 0.0030), StopLoss: ptr(eur - 0.0040),
		},
		{
			Symbol: "BTCUSD", Side: broker.Short, Type: broker.Stop, Quantity: 0.01,
			StopPrice: ptr(btc * 0.995), TakeProfit: ptr(btc * 0.98), StopLoss: ptr(btc * 1.01),
		},
	}
	fmt.Println("Orders:")
	for _, req := range reqs {
		o, err := engine.PlaceOrder(ctx, req)
		if err != nil {
			return fmt.Errorf("place %s: %w", req.Symbol, err)
		}
		fmt.Printf("  PLACED %-5s %-6s %-7s qty=%g (%s) -> %s\n", o.Type, o.Side, o.Symbol, o.Quantity, o.Sizing, o.Status)
	}
	fmt.Println()

	fmt.Printf("Running %d ticks...\n", demoTicks)
	for i := 0; i < demoTicks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		poller.Tick(ctx)
	}

	acct := engine.RecalcEquity()
	fmt.Println()
	fmt.Println("Open trades:")
	open := 0
	for _, t := range engine.Trades() {
		if !t.Open() {
			continue
		}
		open++
		fmt.Printf("  %-6s %-7s units=%-8g avg=%g  unrealized $%.2f\n", t.Side, t.Symbol, t.Units, t.AvgPrice, engine.UnrealizedPnL(t))
	}
	if open == 0 {
		fmt.Println("  (none)")
	}

	fmt.Printf("\nFinal account:\n")
	fmt.Printf("  Balance: $%.2f\n", acct.Balance)
	fmt.Printf("  Equity:  $%.2f\n", acct.Equity)
	fmt.Printf("  Realized P/L: $%.2f\n", acct.Balance-100_000)
	fmt.Printf("\n✓ Trades and equity written to %s\n", demoDir)
	return nil
}

func ptr(v float64) *float64 { return &v }
