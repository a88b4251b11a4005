package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"strategy-lab/internal/config"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/optimizer"
	"strategy-lab/internal/reporting"
	"strategy-lab/internal/simulation"
)

const progressInterval = 2 * time.Second

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search a parameter space for the best strategy parameters",
		Long: `Evaluates candidates from a parameter space with grid, random, genetic or
bayesian search, filters them through risk constraints and ranks the survivors.
Ctrl-C stops the search and keeps the results evaluated so far.`,
		RunE: runOptimize,
	}
	addStrategyFlags(cmd)
	cmd.Flags().String("space-file", "", "Parameter space YAML (space, settings, constraints)")
	cmd.Flags().String("algorithm", "", "Search algorithm (grid|random|genetic|bayesian)")
	cmd.Flags().Int("parallelism", 0, "Concurrent evaluations")
	cmd.Flags().Int("top", 0, "Leaderboard size")
	cmd.Flags().Int64("seed", 0, "Search seed")
	cmd.Flags().Int("budget", 0, "Sample budget for random and bayesian search")
	cmd.Flags().Int("population", 0, "Genetic population size")
	cmd.Flags().Int("generations", 0, "Genetic generations")
	_ = cmd.MarkFlagRequired("space-file")
	return cmd
}

func runOptimize(cmd *cobra.Command, _ []string) error {
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
	spacePath, _ := cmd.Flags().GetString("space-file")
	file, err := config.LoadOptimization(spacePath)
	if err != nil {
		return couldNotStart(err)
	}
	settings := a.settingsFromFlags(cmd, file)
	limits := file.Constraints
	if limits == nil {
		limits = a.cfg.Optimizer.Constraints
	}

	series, err := a.seriesFor(ctx, cmd, cfg)
	if err != nil {
		return couldNotStart(err)
	}

	sim := simulation.New(simulation.Options{
		InitialCapital: a.capitalFromFlags(cmd),
		Scenario:       domain.ScenarioConfigRealistic,
		Logger:         &a.logger,
	})
	opt := optimizer.New(optimizer.NewSimulationEvaluator(sim, series), optimizer.Options{
		Logger:  &a.logger,
		Metrics: a.metrics,
	})

	done := make(chan struct{})
	go a.reportProgress(opt, done)
	res, err := opt.Run(ctx, *cfg, file.Space, limits, settings)
	close(done)
	if err != nil {
		return couldNotStart(err)
	}

	run := res.Record(cfg.Name, file.Space, settings, limits)
	// Interrupted runs are still saved
	if err := a.repo.SaveOptimization(context.WithoutCancel(ctx), run); err != nil {
		a.logger.Warn().Err(err).Str("run_id", run.RunID).Msg("failed to persist optimization run")
	}
	if res.State == optimizer.StateStopped {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: search stopped after %d of %d candidates\n", res.Progress.Completed, res.Progress.Total)
	}

	format, _ := cmd.Flags().GetString("format")
	return writeOptimization(cmd.OutOrStdout(), format, run, settings.TopN)
}

// settingsFromFlags layers config defaults, the space file and flags.
func (a *app) settingsFromFlags(cmd *cobra.Command, file *config.OptimizationFile) domain.OptimizationSettings {
	settings := a.cfg.Optimizer.Settings
	if file.Settings.Algorithm != "" {
		settings = file.Settings
	}

	flags := cmd.Flags()
	if flags.Changed("algorithm") {
		settings.Algorithm, _ = flags.GetString("algorithm")
	}
	if flags.Changed("parallelism") {
		settings.Parallelism, _ = flags.GetInt("parallelism")
	}
	if flags.Changed("top") {
		settings.TopN, _ = flags.GetInt("top")
	}
	if flags.Changed("seed") {
		settings.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("budget") {
		settings.SampleBudget, _ = flags.GetInt("budget")
	}
	if flags.Changed("population") {
		settings.PopulationSize, _ = flags.GetInt("population")
	}
	if flags.Changed("generations") {
		settings.Generations, _ = flags.GetInt("generations")
	}
	return settings.WithDefaults()
}

func (a *app) reportProgress(opt *optimizer.Optimizer, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p := opt.Progress()
			ev := a.logger.Info().
				Str("state", string(p.State)).
				Int("completed", p.Completed).
				Int("total", p.Total).
				Int("rejected", p.Rejected)
			if p.Generations > 0 {
				ev = ev.Int("generation", p.Generation).Int("generations", p.Generations)
			}
			if best := opt.Leaderboard(1); len(best) == 1 {
				ev = ev.Float64("best_return_pct", best[0].Metrics.TotalReturnPercent)
			}
			ev.Msg("optimization progress")
		}
	}
}

func writeOptimization(w io.Writer, format string, run *domain.OptimizationRun, topN int) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	case "csv":
		summary := reporting.NewGenerator(nil).FromOptimization(run, topN)
		_, err := fmt.Fprint(w, reporting.RenderLeaderboardCSV(summary.Optimization.Leaderboard))
		return err
	case "markdown", "":
		summary := reporting.NewGenerator(nil).FromOptimization(run, topN)
		_, err := fmt.Fprint(w, reporting.RenderMarkdown(summary))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
