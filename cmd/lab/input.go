package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"strategy-lab/internal/config"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/marketdata"
	"strategy-lab/internal/storage"
)

// syntheticStartMs is the open time of the first generated bar.
const syntheticStartMs = 1_700_000_000_000

// addStrategyFlags registers the flags that select a strategy and its data.
func addStrategyFlags(cmd *cobra.Command) {
	cmd.Flags().String("strategy-file", "", "Strategy YAML file")
	cmd.Flags().String("strategy", "", "Name of a saved strategy (instead of --strategy-file)")
	cmd.Flags().StringSlice("symbols", nil, "Override the strategy's symbols")
	cmd.Flags().Float64("capital", 0, "Initial capital (config default when 0)")
	cmd.Flags().Int64("from", 0, "Range start, Unix ms")
	cmd.Flags().Int64("to", math.MaxInt64, "Range end, Unix ms")
	cmd.Flags().Int("synthetic-bars", 1000, "Bars per symbol to generate when no bar store is configured")
	cmd.Flags().Int64("data-seed", 1, "Seed for generated bars")
	cmd.Flags().String("format", "markdown", "Output format (markdown|csv|json)")
}

// couldNotStart marks errors raised before any simulation ran.
func couldNotStart(err error) error {
	return fmt.Errorf("could not start: %w", err)
}

func (a *app) strategyFromFlags(ctx context.Context, cmd *cobra.Command) (*domain.StrategyConfig, error) {
	file, _ := cmd.Flags().GetString("strategy-file")
	name, _ := cmd.Flags().GetString("strategy")

	var cfg *domain.StrategyConfig
	var err error
	switch {
	case file != "":
		cfg, err = config.LoadStrategy(file)
	case name != "":
		cfg, err = a.repo.LoadStrategy(ctx, name)
		if errors.Is(err, storage.ErrNotFound) {
			err = fmt.Errorf("strategy %q not found", name)
		}
	default:
		err = errors.New("one of --strategy-file or --strategy is required")
	}
	if err != nil {
		return nil, err
	}

	if symbols, _ := cmd.Flags().GetStringSlice("symbols"); len(symbols) > 0 {
		cfg.MarketSelection.Symbols = symbols
	}
	return cfg, nil
}

func (a *app) capitalFromFlags(cmd *cobra.Command) float64 {
	if capital, _ := cmd.Flags().GetFloat64("capital"); capital != 0 {
		return capital
	}
	return a.cfg.Backtest.InitialCapital
}

// seriesFor loads the bars for cfg's symbols. Without a configured bar store
// the in-memory store is first filled with generated bars.
func (a *app) seriesFor(ctx context.Context, cmd *cobra.Command, cfg *domain.StrategyConfig) (domain.PriceSeries, error) {
	symbols := cfg.MarketSelection.Symbols
	timeframe := cfg.MarketSelection.PrimaryTimeframe

	if a.barsInMemory {
		n, _ := cmd.Flags().GetInt("synthetic-bars")
		seed, _ := cmd.Flags().GetInt64("data-seed")
		generated := marketdata.Synthetic(marketdata.SyntheticOptions{
			Symbols:   symbols,
			Timeframe: timeframe,
			Bars:      n,
			StartMs:   syntheticStartMs,
			Seed:      seed,
		})
		if err := a.bars.InsertBulk(ctx, marketdata.Flatten(generated, symbols)); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("seed bars: %w", err)
		}
		a.logger.Info().Int("symbols", len(symbols)).Int("bars", n).Msg("using generated bars")
	}

	from, _ := cmd.Flags().GetInt64("from")
	to, _ := cmd.Flags().GetInt64("to")
	return a.loader.Snapshot(ctx, symbols, timeframe, from, to)
}

// parseParams parses repeated name=value flags into a candidate.
func parseParams(values []string) (domain.Candidate, error) {
	if len(values) == 0 {
		return nil, nil
	}
	c := make(domain.Candidate, len(values))
	for _, kv := range values {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q, want name=value", kv)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", kv, err)
		}
		c[strings.TrimSpace(name)] = v
	}
	return c, nil
}

// parseScenarios resolves scenario IDs; "all" selects every predefined scenario.
func parseScenarios(ids []string) ([]domain.ExecutionScenario, error) {
	if len(ids) == 0 {
		return []domain.ExecutionScenario{domain.ScenarioConfigRealistic}, nil
	}
	var out []domain.ExecutionScenario
	for _, id := range ids {
		if id == "all" {
			return domain.AllScenarios(), nil
		}
		sc, ok := domain.ScenarioByID(id)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", id)
		}
		out = append(out, sc)
	}
	return out, nil
}
