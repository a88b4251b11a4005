package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"strategy-lab/internal/backtest"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/reporting"
)

func newBacktestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest a strategy over historical bars",
		Long:  "Runs one backtest per execution scenario, stores each report and prints a summary",
		RunE:  runBacktest,
	}
	addStrategyFlags(cmd)
	cmd.Flags().StringSlice("scenarios", nil, "Execution scenarios (optimistic,realistic,pessimistic,degraded|all)")
	cmd.Flags().StringArray("param", nil, "Parameter override name=value (repeatable)")
	cmd.Flags().Bool("trades", false, "Print the trade list as CSV after the summary")
	return cmd
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return couldNotStart(err)
	}
	defer a.Close()

	cfg, err := a.strategyFromFlags(ctx, cmd)
	if err != nil {
		return couldNotStart(err)
	}
	rawParams, _ := cmd.Flags().GetStringArray("param")
	candidate, err := parseParams(rawParams)
	if err != nil {
		return couldNotStart(err)
	}
	ids, _ := cmd.Flags().GetStringSlice("scenarios")
	scenarios, err := parseScenarios(ids)
	if err != nil {
		return couldNotStart(err)
	}
	series, err := a.seriesFor(ctx, cmd, cfg)
	if err != nil {
		return couldNotStart(err)
	}

	runner := backtest.NewRunner(backtest.Options{
		Logger:  &a.logger,
		Metrics: a.metrics,
		Sink:    a.repo,
	})
	reports, err := runner.RunScenarios(ctx, *cfg, candidate, series, a.capitalFromFlags(cmd), scenarios)
	if err != nil {
		return couldNotStart(err)
	}

	out := cmd.OutOrStdout()
	for _, r := range reports {
		for _, w := range r.Warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s (%s): %s\n", r.ID, r.Scenario, w)
		}
	}

	format, _ := cmd.Flags().GetString("format")
	if err := writeBacktests(out, format, reports); err != nil {
		return err
	}

	if withTrades, _ := cmd.Flags().GetBool("trades"); withTrades {
		for _, r := range reports {
			fmt.Fprintf(out, "\n# trades %s (%s)\n", r.ID, r.Scenario)
			fmt.Fprint(out, reporting.RenderTradesCSV(r.Trades))
		}
	}
	return nil
}

func writeBacktests(w io.Writer, format string, reports []*domain.BacktestReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case "csv":
		summary := reporting.NewGenerator(nil).FromBacktests(reports)
		_, err := fmt.Fprint(w, reporting.RenderBacktestCSV(summary.Backtests))
		return err
	case "markdown", "":
		summary := reporting.NewGenerator(nil).FromBacktests(reports)
		_, err := fmt.Fprint(w, reporting.RenderMarkdown(summary))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
