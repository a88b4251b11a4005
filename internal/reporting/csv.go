package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"strategy-lab/internal/domain"
)

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func renderCSV(header []string, rows [][]string) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(header)
	_ = w.WriteAll(rows) // flushes; bytes.Buffer writes do not fail
	return buf.String()
}

// RenderBacktestCSV renders backtest rows as CSV string.
func RenderBacktestCSV(rows []BacktestRow) string {
	header := []string{
		"report_id", "strategy", "scenario", "parameters", "total_trades", "win_rate",
		"total_return_pct", "sharpe", "sortino", "max_drawdown_pct", "profit_factor",
		"max_consecutive_losses", "final_equity", "degraded",
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.ReportID, r.StrategyName, r.ScenarioID, r.Parameters,
			strconv.Itoa(r.TotalTrades), ftoa(r.WinRate),
			ftoa(r.TotalReturnPercent), ftoa(r.SharpeRatio), ftoa(r.SortinoRatio),
			ftoa(r.MaxDrawdownPercent), ftoa(r.ProfitFactor),
			strconv.Itoa(r.MaxConsecutiveLosses), ftoa(r.FinalEquity),
			strconv.FormatBool(r.Degraded),
		})
	}
	return renderCSV(header, out)
}

// RenderLeaderboardCSV renders ranked candidates as CSV string.
func RenderLeaderboardCSV(rows []LeaderboardRow) string {
	header := []string{
		"rank", "seq", "generation", "parameters", "total_trades",
		"total_return_pct", "sharpe", "max_drawdown_pct", "win_rate", "profit_factor", "candidate_id",
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			strconv.Itoa(r.Rank), strconv.Itoa(r.Seq), strconv.Itoa(r.Generation), r.Parameters,
			strconv.Itoa(r.TotalTrades), ftoa(r.TotalReturnPercent), ftoa(r.SharpeRatio),
			ftoa(r.MaxDrawdownPercent), ftoa(r.WinRate), ftoa(r.ProfitFactor), r.CandidateID,
		})
	}
	return renderCSV(header, out)
}

// RenderTradesCSV renders a trade list in chronological order of the input.
func RenderTradesCSV(trades []*domain.SimulatedTrade) string {
	header := []string{
		"trade_id", "symbol", "direction", "entry_time", "exit_time",
		"entry_price", "exit_price", "quantity", "pnl", "pnl_pct", "exit_reason",
	}
	out := make([][]string, 0, len(trades))
	for _, t := range trades {
		out = append(out, []string{
			t.TradeID, t.Symbol, t.Direction,
			strconv.FormatInt(t.EntryTime, 10), strconv.FormatInt(t.ExitTime, 10),
			ftoa(t.EntryPrice), ftoa(t.ExitPrice), ftoa(t.Quantity),
			ftoa(t.PnL), ftoa(t.PnLPercent), t.ExitReason,
		})
	}
	return renderCSV(header, out)
}
