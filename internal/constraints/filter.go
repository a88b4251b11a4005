// Package constraints decides whether an evaluated candidate respects risk limits.
// Rejection is a normal outcome, never an error.
package constraints

import (
	"fmt"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/metrics"
)

// Decision is the outcome of checking one candidate.
type Decision struct {
	Accepted bool
	Reasons  []string // one entry per violated limit, in check order
}

// Accepts reports whether m and trades satisfy c. A nil c accepts everything.
func Accepts(m domain.PerformanceMetrics, trades []*domain.SimulatedTrade, c *domain.RiskConstraints) bool {
	return Evaluate(m, trades, c).Accepted
}

// Evaluate checks every limit in c and lists the violations.
// Consecutive losses are derived from trades, not from m.
func Evaluate(m domain.PerformanceMetrics, trades []*domain.SimulatedTrade, c *domain.RiskConstraints) Decision {
	if c == nil {
		return Decision{Accepted: true}
	}

	var reasons []string
	if c.MaxDrawdownPercent != nil && m.MaxDrawdownPercent > *c.MaxDrawdownPercent {
		reasons = append(reasons, fmt.Sprintf("max drawdown %.2f%% > %.2f%%", m.MaxDrawdownPercent, *c.MaxDrawdownPercent))
	}
	if c.MinWinRate != nil && m.WinRate < *c.MinWinRate {
		reasons = append(reasons, fmt.Sprintf("win rate %.2f%% < %.2f%%", m.WinRate, *c.MinWinRate))
	}
	if c.MinSharpeRatio != nil && m.SharpeRatio < *c.MinSharpeRatio {
		reasons = append(reasons, fmt.Sprintf("sharpe %.2f < %.2f", m.SharpeRatio, *c.MinSharpeRatio))
	}
	if c.MaxConsecutiveLosses != nil {
		if streak := metrics.MaxConsecutiveLosses(trades); streak > *c.MaxConsecutiveLosses {
			reasons = append(reasons, fmt.Sprintf("consecutive losses %d > %d", streak, *c.MaxConsecutiveLosses))
		}
	}

	return Decision{Accepted: len(reasons) == 0, Reasons: reasons}
}
