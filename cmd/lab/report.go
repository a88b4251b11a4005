package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"strategy-lab/internal/reporting"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render stored backtest and optimization results",
	}

	backtestCmd := &cobra.Command{
		Use:   "backtest [ID...]",
		Short: "Summarize stored backtest reports (all when no ID is given)",
		RunE:  runReportBacktest,
	}
	optimizationCmd := &cobra.Command{
		Use:   "optimization [RUN_ID]",
		Short: "Render a stored optimization run (list run IDs when none is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReportOptimization,
	}
	optimizationCmd.Flags().Int("top", 0, "Leaderboard rows (all when 0)")

	for _, c := range []*cobra.Command{backtestCmd, optimizationCmd} {
		c.Flags().String("format", "markdown", "Output format (markdown|csv)")
	}

	cmd.AddCommand(backtestCmd, optimizationCmd)
	return cmd
}

func runReportBacktest(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ids := args
	if len(ids) == 0 {
		if ids, err = a.repo.ListBacktests(cmd.Context()); err != nil {
			return err
		}
	}

	r, err := reporting.NewGenerator(a.repo).GenerateBacktests(cmd.Context(), ids...)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format == "csv" {
		fmt.Fprint(cmd.OutOrStdout(), reporting.RenderBacktestCSV(r.Backtests))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), reporting.RenderMarkdown(r))
	return nil
}

func runReportOptimization(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 0 {
		ids, err := a.repo.ListOptimizations(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}

	top, _ := cmd.Flags().GetInt("top")
	r, err := reporting.NewGenerator(a.repo).GenerateOptimization(cmd.Context(), args[0], top)
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	if format == "csv" {
		fmt.Fprint(cmd.OutOrStdout(), reporting.RenderLeaderboardCSV(r.Optimization.Leaderboard))
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), reporting.RenderMarkdown(r))
	return nil
}
