package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyglo/trading-line-sub000/broker"
	"github.com/dyglo/trading-line-sub000/httpapi"
	"github.com/dyglo/trading-line-sub000/journal"
	"github.com/dyglo/trading-line-sub000/scheduler"
	"github.com/dyglo/trading-line-sub000/sim"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine, the poller and the HTTP API",
	Long: `Start the paper-trading engine with quotes polled on a schedule and the
JSON/websocket API listening on http.addr.

The starting balance comes from the journal's latest equity snapshot when
a SQLite journal has one, otherwise from account.balance.

Example:
  papertrader run -c papertrader.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runCloseOnExit bool
	runAddr        string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runCloseOnExit, "close-on-exit", false, "close every open trade at the last price before exiting")
	runCmd.Flags().StringVar(&runAddr, "addr", "", "override http.addr")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runAddr != "" {
		cfg.HTTP.Addr = runAddr
	}

	log, closer := newLogger(cfg)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := buildCache(cfg, log)
	if err != nil {
		return fmt.Errorf("quote source: %w", err)
	}

	j, err := journal.Open(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	engine := sim.NewEngine(broker.Account{
		ID:       cfg.Account.ID,
		Currency: cfg.Account.Currency,
		Balance:  cfg.Account.Balance,
	}, cache, sim.WithJournal(j), sim.WithLogger(log))

	if src, ok := j.(sim.BalanceSource); ok {
		if err := engine.SeedBalance(ctx, src); err != nil {
			log.Warn("starting from configured balance", slog.Any("error", err))
		}
	}
	engine.Track(cfg.Symbols...)

	interval, err := cfg.Quotes.PollDuration()
	if err != nil {
		return fmt.Errorf("poll interval: %w", err)
	}
	poller := scheduler.New(engine, cache,
		scheduler.WithInterval(interval),
		scheduler.WithMaxConcurrent(cfg.Quotes.MaxConcurrent),
		scheduler.WithLogger(log),
	)

	hub := httpapi.NewHub(cfg.HTTP.Origin, log)
	engine.SetListener(hub)
	poller.OnTick(hub.PublishTick)

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Engine: engine,
		Quotes: cache,
		Hub:    hub,
		Origin: cfg.HTTP.Origin,
		Logger: log,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	acct, _ := engine.GetAccount(ctx)
	fmt.Printf("Paper trading account %s: $%.2f %s\n", acct.ID, acct.Balance, acct.Currency)
	fmt.Printf("  Quotes: %s every %s\n", cfg.Quotes.Source, interval)
	fmt.Printf("  Tracking: %v\n", engine.Tracked())
	fmt.Printf("  API: http://%s/v1\n", cfg.HTTP.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := poller.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("http listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()

	if runCloseOnExit {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := engine.CloseAll(closeCtx); err != nil {
			log.Warn("some trades left open", slog.Any("error", err))
		}
	}

	acct = engine.RecalcEquity()
	fmt.Printf("\nStopped. Balance $%.2f, equity $%.2f\n", acct.Balance, acct.Equity)
	return runErr
}
