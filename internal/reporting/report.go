package reporting

import "time"

// Report summarizes backtests and optimization results for rendering.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	Title         string
	StrategyCount int
	ScenarioCount int

	// Backtest rows (sorted by strategy, scenario, report id)
	Backtests []BacktestRow

	// Scenario sensitivity per strategy and parameter set
	ScenarioSensitivity []ScenarioSensitivityRow

	// Optimization, when the report was built from a run
	Optimization *OptimizationSummary

	// Warnings from degraded runs, prefixed with the report id
	Warnings []string
}

// BacktestRow is one backtest report's headline metrics.
type BacktestRow struct {
	ReportID             string
	StrategyName         string
	ScenarioID           string
	Parameters           string // canonical candidate key; empty for the base config
	TotalTrades          int
	WinRate              float64
	TotalReturnPercent   float64
	SharpeRatio          float64
	SortinoRatio         float64
	MaxDrawdownPercent   float64
	ProfitFactor         float64
	MaxConsecutiveLosses int
	FinalEquity          float64
	Degraded             bool
}

// ScenarioSensitivityRow compares total return across execution scenarios.
type ScenarioSensitivityRow struct {
	StrategyName      string
	Parameters        string
	OptimisticReturn  float64
	RealisticReturn   float64
	PessimisticReturn float64
	DegradedReturn    float64
	DegradationPct    float64 // (realistic - pessimistic) / |realistic| * 100
}

// OptimizationSummary describes an optimization run and its leaderboard.
type OptimizationSummary struct {
	RunID        string
	StrategyName string
	Algorithm    string
	State        string
	Completed    int
	Total        int
	Accepted     int
	Rejected     int
	Leaderboard  []LeaderboardRow
	Rejections   []RejectionRow
}

// LeaderboardRow is one ranked candidate.
type LeaderboardRow struct {
	Rank               int
	Seq                int
	Generation         int
	Parameters         string
	TotalTrades        int
	TotalReturnPercent float64
	SharpeRatio        float64
	MaxDrawdownPercent float64
	WinRate            float64
	ProfitFactor       float64
	CandidateID        string
}

// RejectionRow explains why a candidate was filtered out.
type RejectionRow struct {
	Seq        int
	Parameters string
	Reasons    string
}
