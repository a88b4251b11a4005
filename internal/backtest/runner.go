// Package backtest runs a single strategy configuration end to end and
// assembles the report: simulate, compute metrics, build the equity curve.
package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/metrics"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/simulation"
)

// ReportSink persists completed reports.
type ReportSink interface {
	SaveBacktest(ctx context.Context, report *domain.BacktestReport) error
}

// Options contains configuration for creating a Runner.
type Options struct {
	Logger  *zerolog.Logger
	Metrics *observability.Metrics
	Sink    ReportSink // optional
}

// Runner executes backtests.
type Runner struct {
	logger    zerolog.Logger
	simLogger *zerolog.Logger
	metrics   *observability.Metrics
	sink      ReportSink
}

// NewRunner creates a new backtest runner.
func NewRunner(opts Options) *Runner {
	r := &Runner{
		logger:    zerolog.Nop(),
		simLogger: opts.Logger,
		metrics:   opts.Metrics,
		sink:      opts.Sink,
	}
	if opts.Logger != nil {
		r.logger = opts.Logger.With().Str("component", "backtest").Logger()
	}
	return r
}

// RunOnce backtests cfg with its own parameter values under realistic costs.
// A *domain.ValidationError from the config is returned unchanged.
func (r *Runner) RunOnce(ctx context.Context, cfg domain.StrategyConfig, series domain.PriceSeries, initialCapital float64) (*domain.BacktestReport, error) {
	return r.RunCandidate(ctx, cfg, nil, series, initialCapital, domain.ScenarioConfigRealistic)
}

// RunCandidate backtests cfg with candidate overrides under scenario.
func (r *Runner) RunCandidate(ctx context.Context, cfg domain.StrategyConfig, candidate domain.Candidate, series domain.PriceSeries, initialCapital float64, scenario domain.ExecutionScenario) (*domain.BacktestReport, error) {
	if initialCapital <= 0 {
		return nil, domain.NewValidationError("initialCapital", "must be > 0")
	}
	start := time.Now()

	sim := simulation.New(simulation.Options{
		InitialCapital: initialCapital,
		Scenario:       scenario,
		Logger:         r.simLogger,
	})
	res, err := sim.Simulate(ctx, cfg, candidate, series)
	if err != nil {
		r.metrics.RecordRun("backtest", "invalid", time.Since(start).Seconds())
		return nil, err
	}

	report := &domain.BacktestReport{
		ID:             uuid.NewString(),
		StrategyName:   cfg.Name,
		Scenario:       sim.Scenario().ScenarioID,
		Config:         cfg,
		Candidate:      candidate,
		InitialCapital: initialCapital,
		Metrics:        metrics.Compute(res.Trades, initialCapital),
		Trades:         res.Trades,
		EquityCurve:    metrics.EquityCurve(res.Trades, initialCapital, startTime(cfg, series)),
		Warnings:       res.WarningStrings(),
		CreatedAt:      time.Now().UTC(),
	}

	status := "completed"
	if report.Degraded() {
		status = "degraded"
	}
	r.metrics.RecordRun("backtest", status, time.Since(start).Seconds())
	r.metrics.RecordSkippedSymbols(len(res.Warnings))

	r.logger.Info().
		Str("report_id", report.ID).
		Str("strategy", cfg.Name).
		Str("scenario", report.Scenario).
		Int("trades", report.Metrics.TotalTrades).
		Float64("return_pct", report.Metrics.TotalReturnPercent).
		Int("warnings", len(report.Warnings)).
		Msg("backtest complete")

	if r.sink != nil {
		if err := r.sink.SaveBacktest(ctx, report); err != nil {
			r.logger.Warn().Err(err).Str("report_id", report.ID).Msg("failed to persist report")
		}
	}
	return report, nil
}

// RunScenarios backtests the same candidate once per execution scenario, in the
// given order. An empty list runs every predefined scenario.
func (r *Runner) RunScenarios(ctx context.Context, cfg domain.StrategyConfig, candidate domain.Candidate, series domain.PriceSeries, initialCapital float64, scenarios []domain.ExecutionScenario) ([]*domain.BacktestReport, error) {
	if len(scenarios) == 0 {
		scenarios = domain.AllScenarios()
	}
	reports := make([]*domain.BacktestReport, 0, len(scenarios))
	for _, sc := range scenarios {
		rep, err := r.RunCandidate(ctx, cfg, candidate, series, initialCapital, sc)
		if err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

// startTime is the first bar time across the selected symbols.
func startTime(cfg domain.StrategyConfig, series domain.PriceSeries) int64 {
	selected := make(domain.PriceSeries, len(cfg.MarketSelection.Symbols))
	for _, s := range cfg.MarketSelection.Symbols {
		if bars, ok := series[s]; ok {
			selected[s] = bars
		}
	}
	return selected.FirstTimestamp()
}
