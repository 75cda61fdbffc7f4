package cmd

import (
	"fmt"
	"time"

	"github.com/dyglo/trading-line-sub000/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display trade journal records from the SQLite database.

Subcommands:
  trade    - Get details of a specific trade by ID
  today    - List trades closed today
  day      - List trades closed on a specific day
  summary  - Win/loss statistics over a date range

Examples:
  papertrader journal trade <trade-id>
  papertrader journal today
  papertrader journal day 2026-01-15
  papertrader journal summary --from 2026-01-01 --to 2026-01-31`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize closed trades and equity between two days",
	Args:  cobra.NoArgs,
	RunE:  runJournalSummary,
}

var (
	journalDBPath string
	summaryFrom   string
	summaryTo     string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalSummaryCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./papertrader.sqlite", "path to SQLite journal DB")
	journalSummaryCmd.Flags().StringVar(&summaryFrom, "from", "", "first day, YYYY-MM-DD (default: 30 days ago)")
	journalSummaryCmd.Flags().StringVar(&summaryTo, "to", "", "last day, YYYY-MM-DD (default: today)")
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	fmt.Println(journal.FormatTradeOrg(rec))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return printDay(time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return printDay(args[0])
}

func printDay(day string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	fmt.Println(journal.FormatTradesOrg(recs))
	return nil
}

func runJournalSummary(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	now := time.Now().In(time.Local)
	if summaryTo == "" {
		summaryTo = now.Format("2006-01-02")
	}
	if summaryFrom == "" {
		summaryFrom = now.AddDate(0, 0, -30).Format("2006-01-02")
	}
	start, _, err := dayBounds(time.Local, summaryFrom)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	_, end, err := dayBounds(time.Local, summaryTo)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("--to is before --from")
	}

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	equity, err := j.ListEquityBetween(start, end)
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	s := journal.Summarize(recs)
	fmt.Printf("Trades %s .. %s\n", summaryFrom, summaryTo)
	fmt.Printf("  Closed: %d (%d wins, %d losses)\n", s.Trades, s.Wins, s.Losses)
	fmt.Printf("  Net P/L: $%.2f (gross +$%.2f / -$%.2f)\n", s.NetPL, s.GrossProfit, s.GrossLoss)
	if s.ProfitFactor > 0 {
		fmt.Printf("  Profit factor: %.2f\n", s.ProfitFactor)
	}
	if len(equity) > 0 {
		first, last := equity[0], equity[len(equity)-1]
		fmt.Printf("  Equity: $%.2f -> $%.2f (%d snapshots)\n", first.Equity, last.Equity, len(equity))
	}
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
