package domain

// ProfitFactorCap stands in for an infinite profit factor (gross loss of zero with gross profit).
const ProfitFactorCap = 999.0

// PerformanceMetrics is derived from a trade list. Never mutated after computation.
type PerformanceMetrics struct {
	TotalReturn          float64 `json:"totalReturn"`
	TotalReturnPercent   float64 `json:"totalReturnPercent"`
	SharpeRatio          float64 `json:"sharpeRatio"`
	SortinoRatio         float64 `json:"sortinoRatio"`
	MaxDrawdownPercent   float64 `json:"maxDrawdownPercent"`
	WinRate              float64 `json:"winRate"` // 0-100
	ProfitFactor         float64 `json:"profitFactor"`
	Volatility           float64 `json:"volatility"` // stddev of per-trade returns, percent
	TotalTrades          int     `json:"totalTrades"`
	WinningTrades        int     `json:"winningTrades"`
	LosingTrades         int     `json:"losingTrades"`
	MaxConsecutiveLosses int     `json:"maxConsecutiveLosses"`
	AverageWin           float64 `json:"averageWin"`
	AverageLoss          float64 `json:"averageLoss"` // negative or zero
	Expectancy           float64 `json:"expectancy"`  // mean pnl per trade
	FinalEquity          float64 `json:"finalEquity"`
}
