package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", r.Title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategies: %d | Scenarios: %d\n\n", r.StrategyCount, r.ScenarioCount))

	if len(r.Backtests) > 0 {
		writeBacktests(&sb, r.Backtests)
	}
	if len(r.ScenarioSensitivity) > 0 {
		writeSensitivity(&sb, r.ScenarioSensitivity)
	}
	if r.Optimization != nil {
		writeOptimization(&sb, r.Optimization)
	}
	if r.Optimization == nil && len(r.Backtests) == 0 {
		sb.WriteString("No results available.\n\n")
	}

	// Warnings (always shown if present)
	if len(r.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeBacktests(sb *strings.Builder, rows []BacktestRow) {
	sb.WriteString("## Backtests\n\n")
	sb.WriteString("| Strategy | Scenario | Parameters | Trades | WinRate% | Return% | Sharpe | MaxDD% | PF | MaxLoss | Final Equity |\n")
	sb.WriteString("|----------|----------|------------|--------|----------|---------|--------|--------|----|---------|--------------|\n")
	for _, b := range rows {
		params := b.Parameters
		if params == "" {
			params = "-"
		}
		scenario := b.ScenarioID
		if b.Degraded {
			scenario += " (degraded run)"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %.2f | %.2f | %.3f | %.2f | %.2f | %d | %.2f |\n",
			b.StrategyName, scenario, params, b.TotalTrades, b.WinRate, b.TotalReturnPercent,
			b.SharpeRatio, b.MaxDrawdownPercent, b.ProfitFactor, b.MaxConsecutiveLosses, b.FinalEquity))
	}
	sb.WriteString("\n")
}

func writeSensitivity(sb *strings.Builder, rows []ScenarioSensitivityRow) {
	sb.WriteString("## Scenario Sensitivity\n\n")
	sb.WriteString("| Strategy | Parameters | Optimistic | Realistic | Pessimistic | Degraded | Degradation% |\n")
	sb.WriteString("|----------|------------|------------|-----------|-------------|----------|--------------|\n")
	for _, s := range rows {
		params := s.Parameters
		if params == "" {
			params = "-"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
			s.StrategyName, params, s.OptimisticReturn, s.RealisticReturn,
			s.PessimisticReturn, s.DegradedReturn, s.DegradationPct))
	}
	sb.WriteString("\n")
}

func writeOptimization(sb *strings.Builder, o *OptimizationSummary) {
	sb.WriteString("## Optimization\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", o.RunID))
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", o.StrategyName))
	sb.WriteString(fmt.Sprintf("| Algorithm | %s |\n", o.Algorithm))
	sb.WriteString(fmt.Sprintf("| State | %s |\n", o.State))
	sb.WriteString(fmt.Sprintf("| Evaluated | %d / %d |\n", o.Completed, o.Total))
	sb.WriteString(fmt.Sprintf("| Accepted | %d |\n", o.Accepted))
	sb.WriteString(fmt.Sprintf("| Rejected | %d |\n", o.Rejected))
	sb.WriteString("\n")

	sb.WriteString("### Leaderboard\n\n")
	if len(o.Leaderboard) == 0 {
		sb.WriteString("No candidate passed the risk constraints.\n\n")
	} else {
		sb.WriteString("| Rank | Parameters | Trades | Return% | Sharpe | MaxDD% | WinRate% | PF |\n")
		sb.WriteString("|------|------------|--------|---------|--------|--------|----------|----|\n")
		for _, e := range o.Leaderboard {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %.2f | %.3f | %.2f | %.2f | %.2f |\n",
				e.Rank, e.Parameters, e.TotalTrades, e.TotalReturnPercent, e.SharpeRatio,
				e.MaxDrawdownPercent, e.WinRate, e.ProfitFactor))
		}
		sb.WriteString("\n")
	}

	if len(o.Rejections) > 0 {
		sb.WriteString("### Rejected Candidates\n\n")
		sb.WriteString("| Seq | Parameters | Reasons |\n")
		sb.WriteString("|-----|------------|---------|\n")
		for _, rj := range o.Rejections {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s |\n", rj.Seq, rj.Parameters, rj.Reasons))
		}
		sb.WriteString("\n")
	}
}
