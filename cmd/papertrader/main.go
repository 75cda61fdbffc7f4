package main

import (
	"os"

	"github.com/dyglo/trading-line-sub000/cmd/papertrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
