package optimizer

import (
	"context"
	"time"

	"strategy-lab/internal/constraints"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/metrics"
	"strategy-lab/internal/simulation"
)

// Evaluator scores one candidate. It must be safe for concurrent use.
// The only error it returns is a *domain.ValidationError for the candidate.
type Evaluator interface {
	Evaluate(ctx context.Context, cfg domain.StrategyConfig, candidate domain.Candidate, limits *domain.RiskConstraints) (Evaluation, error)
}

// SimulationEvaluator simulates against a fixed price snapshot, computes
// metrics and applies the risk constraints.
type SimulationEvaluator struct {
	sim    *simulation.Simulator
	series domain.PriceSeries
}

// NewSimulationEvaluator creates an evaluator over series. series is read, never written.
func NewSimulationEvaluator(sim *simulation.Simulator, series domain.PriceSeries) *SimulationEvaluator {
	return &SimulationEvaluator{sim: sim, series: series}
}

func (e *SimulationEvaluator) Evaluate(ctx context.Context, cfg domain.StrategyConfig, candidate domain.Candidate, limits *domain.RiskConstraints) (Evaluation, error) {
	start := time.Now()

	res, err := e.sim.Simulate(ctx, cfg, candidate, e.series)
	if err != nil {
		return Evaluation{Candidate: candidate}, err
	}

	m := metrics.Compute(res.Trades, e.sim.InitialCapital())
	d := constraints.Evaluate(m, res.Trades, limits)

	return Evaluation{
		Candidate:     candidate,
		Metrics:       m,
		Accepted:      d.Accepted,
		RejectReasons: d.Reasons,
		Warnings:      res.WarningStrings(),
		Trades:        len(res.Trades),
		Duration:      time.Since(start),
	}, nil
}
