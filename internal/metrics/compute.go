// Package metrics reduces a trade list to performance metrics.
// Every function is pure: the same trades always yield the same result.
package metrics

import (
	"math"
	"sort"

	"strategy-lab/internal/domain"
)

// AnnualizationFactor scales per-trade Sharpe and Sortino ratios (sqrt of 252 trading days).
var AnnualizationFactor = math.Sqrt(252)

// Compute calculates all metrics from trades.
// Trades are ordered by ExitTime ASC, EntryTime ASC, Symbol ASC, TradeID ASC before
// computing order-dependent metrics (drawdown, returns, consecutive losses).
// Per-trade return is pnl divided by equity before the trade closed.
func Compute(trades []*domain.SimulatedTrade, initialCapital float64) domain.PerformanceMetrics {
	m := domain.PerformanceMetrics{FinalEquity: initialCapital}
	n := len(trades)
	if n == 0 {
		return m
	}

	sorted := Chronological(trades)

	var grossProfit, grossLoss, total float64
	returns := make([]float64, 0, n)
	equity := initialCapital
	for _, t := range sorted {
		switch {
		case t.PnL > 0:
			m.WinningTrades++
			grossProfit += t.PnL
		case t.PnL < 0:
			m.LosingTrades++
			grossLoss += -t.PnL
		}
		total += t.PnL

		r := 0.0
		if equity > 0 {
			r = t.PnL / equity
		}
		returns = append(returns, r)
		equity += t.PnL
	}

	m.TotalTrades = n
	m.TotalReturn = total
	if initialCapital > 0 {
		m.TotalReturnPercent = total / initialCapital * 100
	}
	m.WinRate = computeWinRate(m.WinningTrades, n)
	m.ProfitFactor = computeProfitFactor(grossProfit, grossLoss)
	m.MaxDrawdownPercent = computeMaxDrawdown(sorted, initialCapital)
	m.MaxConsecutiveLosses = computeMaxConsecutiveLosses(sorted)

	mean := computeMean(returns)
	stddev := computeStddev(returns, mean)
	m.Volatility = stddev * 100
	if stddev > 0 {
		m.SharpeRatio = mean / stddev * AnnualizationFactor
	}
	if dd := computeDownsideDeviation(returns); dd > 0 {
		m.SortinoRatio = mean / dd * AnnualizationFactor
	}

	if m.WinningTrades > 0 {
		m.AverageWin = grossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = -grossLoss / float64(m.LosingTrades)
	}
	m.Expectancy = total / float64(n)
	m.FinalEquity = initialCapital + total

	return sanitize(m)
}

// Chronological returns a copy of trades in close order.
func Chronological(trades []*domain.SimulatedTrade) []*domain.SimulatedTrade {
	sorted := make([]*domain.SimulatedTrade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ExitTime != b.ExitTime {
			return a.ExitTime < b.ExitTime
		}
		if a.EntryTime != b.EntryTime {
			return a.EntryTime < b.EntryTime
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.TradeID < b.TradeID
	})
	return sorted
}

// MaxConsecutiveLosses returns the longest run of pnl < 0 trades in close order.
func MaxConsecutiveLosses(trades []*domain.SimulatedTrade) int {
	return computeMaxConsecutiveLosses(Chronological(trades))
}

// computeWinRate calculates win rate as wins / total * 100.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// computeProfitFactor returns gross profit / gross loss, capped at domain.ProfitFactorCap.
func computeProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return domain.ProfitFactorCap
		}
		return 0
	}
	return math.Min(grossProfit/grossLoss, domain.ProfitFactorCap)
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeDownsideDeviation uses only negative returns against a zero target.
func computeDownsideDeviation(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		if v < 0 {
			sumSq += v * v
		}
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeMaxDrawdown calculates the worst peak-to-trough decline of
// initialCapital + cumulative pnl, as a percentage of the peak.
// Trades must be in chronological order.
func computeMaxDrawdown(trades []*domain.SimulatedTrade, initialCapital float64) float64 {
	equity := initialCapital
	peak := initialCapital
	maxDrawdown := 0.0

	for _, t := range trades {
		equity += t.PnL
		if equity > peak {
			peak = equity
		}
		if peak <= 0 {
			continue
		}
		drawdown := (peak - equity) / peak * 100
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of pnl < 0.
// Trades must be in chronological order.
func computeMaxConsecutiveLosses(trades []*domain.SimulatedTrade) int {
	maxStreak := 0
	currentStreak := 0

	for _, t := range trades {
		if t.PnL < 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}

// sanitize replaces NaN and infinities with 0.
func sanitize(m domain.PerformanceMetrics) domain.PerformanceMetrics {
	fields := []*float64{
		&m.TotalReturn, &m.TotalReturnPercent, &m.SharpeRatio, &m.SortinoRatio,
		&m.MaxDrawdownPercent, &m.WinRate, &m.ProfitFactor, &m.Volatility,
		&m.AverageWin, &m.AverageLoss, &m.Expectancy, &m.FinalEquity,
	}
	for _, f := range fields {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
	return m
}
