package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dyglo/trading-line-sub000/market"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [SYMBOL...]",
	Short: "Show how symbols are classified and routed",
	Long: `Print the category, quote provider, provider symbol and contract size
for each symbol. Unknown symbols are classified the same way the engine
classifies them.

Examples:
  papertrader resolve EURUSD usdjpy US500 ZZZZ
  papertrader resolve --list`,
	RunE: runResolve,
}

var resolveList bool

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().BoolVarP(&resolveList, "list", "l", false, "list every known instrument")
}

func runResolve(cmd *cobra.Command, args []string) error {
	var insts []market.Instrument
	switch {
	case resolveList:
		insts = market.Instruments()
	case len(args) == 0:
		return fmt.Errorf("give at least one symbol or --list")
	default:
		for _, a := range args {
			insts = append(insts, market.Resolve(a))
		}
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tCATEGORY\tPROVIDER\tPROVIDER SYMBOL\tCONTRACT\tPIP")
	for _, inst := range insts {
		pip := "-"
		if inst.Forex != nil {
			pip = fmt.Sprintf("%g", inst.Forex.PipPrecision)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g\t%s\n",
			inst.Symbol, inst.Category, inst.Provider, inst.ProviderSymbol, inst.ContractSize, pip)
	}
	return tw.Flush()
}
