// Command lab backtests and optimizes trading strategies.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.4.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lab",
		Short:         "Strategy backtesting and parameter optimization",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to lab.yaml (defaults when empty)")
	root.PersistentFlags().String("log-level", "", "Override log level (trace|debug|info|warn|error)")
	root.PersistentFlags().Bool("log-pretty", false, "Human-readable console logs")
	root.PersistentFlags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running")

	root.AddCommand(
		newBacktestCmd(),
		newOptimizeCmd(),
		newStrategyCmd(),
		newBarsCmd(),
		newReportCmd(),
	)
	return root
}
