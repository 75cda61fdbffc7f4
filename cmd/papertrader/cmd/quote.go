package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote SYMBOL...",
	Short: "Fetch current quotes from the configured source",
	Long: `Fetch one quote per symbol from quotes.source. Symbols that cannot be
priced are reported instead of falling back to a placeholder price.

Example:
  papertrader quote AAPL EURUSD BTCUSD`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closer := newLogger(cfg)
	defer closer.Close()

	cache, err := buildCache(cfg, log)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tPRICE\tCHANGE %\tTIME")

	var errs []error
	for _, sym := range args {
		if _, err := cache.Fetch(cmd.Context(), sym); err != nil {
			errs = append(errs, err)
			fmt.Fprintf(tw, "%s\t-\t-\t%v\n", sym, err)
			continue
		}
		q, _ := cache.Quote(sym)
		change := "-"
		if q.ChangePercent != nil {
			change = fmt.Sprintf("%+.2f", *q.ChangePercent)
		}
		fmt.Fprintf(tw, "%s\t%g\t%s\t%s\n", q.Symbol, q.Price, change, q.Time.Format(time.RFC3339))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
