package domain

import "time"

// EquityPoint is one point of an equity curve.
type EquityPoint struct {
	TimeMs int64   `json:"time"`
	Value  float64 `json:"value"`
}

// SimulationResult is the simulator output: trades plus non-fatal warnings.
type SimulationResult struct {
	Trades   []*SimulatedTrade
	Warnings []*DataGapError
}

// WarningStrings renders warnings for reports.
func (r *SimulationResult) WarningStrings() []string {
	if len(r.Warnings) == 0 {
		return nil
	}
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.Error()
	}
	return out
}

// BacktestReport is the full output of a single backtest run. Immutable after completion.
type BacktestReport struct {
	ID             string             `json:"id"`
	StrategyName   string             `json:"strategyName"`
	Scenario       string             `json:"scenario,omitempty"`
	Config         StrategyConfig     `json:"config"`
	Candidate      Candidate          `json:"candidate,omitempty"`
	InitialCapital float64            `json:"initialCapital"`
	Metrics        PerformanceMetrics `json:"metrics"`
	Trades         []*SimulatedTrade  `json:"trades"`
	EquityCurve    []EquityPoint      `json:"equityCurve"`
	Warnings       []string           `json:"warnings,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// Degraded reports whether the run skipped some symbols.
func (r *BacktestReport) Degraded() bool {
	return len(r.Warnings) > 0
}
