package reporting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/idhash"
)

// Source loads stored results.
type Source interface {
	LoadBacktest(ctx context.Context, id string) (*domain.BacktestReport, error)
	LoadOptimization(ctx context.Context, runID string) (*domain.OptimizationRun, error)
}

// Generator produces reports from stored or in-memory results.
type Generator struct {
	source Source
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. source may be nil when only
// the From* builders are used.
func NewGenerator(source Source) *Generator {
	return &Generator{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// GenerateBacktests loads the given backtest reports and summarizes them.
func (g *Generator) GenerateBacktests(ctx context.Context, ids ...string) (*Report, error) {
	if g.source == nil {
		return nil, fmt.Errorf("report generator has no source")
	}
	reports := make([]*domain.BacktestReport, 0, len(ids))
	for _, id := range ids {
		r, err := g.source.LoadBacktest(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load backtest %s: %w", id, err)
		}
		reports = append(reports, r)
	}
	return g.FromBacktests(reports), nil
}

// GenerateOptimization loads an optimization run and summarizes it.
func (g *Generator) GenerateOptimization(ctx context.Context, runID string, topN int) (*Report, error) {
	if g.source == nil {
		return nil, fmt.Errorf("report generator has no source")
	}
	run, err := g.source.LoadOptimization(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load optimization %s: %w", runID, err)
	}
	return g.FromOptimization(run, topN), nil
}

// FromBacktests summarizes backtest reports.
func (g *Generator) FromBacktests(reports []*domain.BacktestReport) *Report {
	rows := make([]BacktestRow, 0, len(reports))
	strategies := make(map[string]struct{})
	scenarios := make(map[string]struct{})
	var warnings []string

	for _, r := range reports {
		if r == nil {
			continue
		}
		scenario := r.Scenario
		if scenario == "" {
			scenario = domain.ScenarioRealistic
		}
		strategies[r.StrategyName] = struct{}{}
		scenarios[scenario] = struct{}{}

		rows = append(rows, BacktestRow{
			ReportID:             r.ID,
			StrategyName:         r.StrategyName,
			ScenarioID:           scenario,
			Parameters:           r.Candidate.Key(),
			TotalTrades:          r.Metrics.TotalTrades,
			WinRate:              r.Metrics.WinRate,
			TotalReturnPercent:   r.Metrics.TotalReturnPercent,
			SharpeRatio:          r.Metrics.SharpeRatio,
			SortinoRatio:         r.Metrics.SortinoRatio,
			MaxDrawdownPercent:   r.Metrics.MaxDrawdownPercent,
			ProfitFactor:         r.Metrics.ProfitFactor,
			MaxConsecutiveLosses: r.Metrics.MaxConsecutiveLosses,
			FinalEquity:          r.Metrics.FinalEquity,
			Degraded:             r.Degraded(),
		})
		for _, w := range r.Warnings {
			warnings = append(warnings, r.ID+": "+w)
		}
	}
	sortBacktestRows(rows)

	return &Report{
		GeneratedAt:         g.now(),
		Title:               "Backtest Report",
		StrategyCount:       len(strategies),
		ScenarioCount:       len(scenarios),
		Backtests:           rows,
		ScenarioSensitivity: scenarioSensitivity(rows),
		Warnings:            warnings,
	}
}

// FromOptimization summarizes an optimization run, keeping the top n ranked
// entries (all when n <= 0).
func (g *Generator) FromOptimization(run *domain.OptimizationRun, n int) *Report {
	summary := &OptimizationSummary{
		RunID:        run.RunID,
		StrategyName: run.StrategyName,
		Algorithm:    run.Algorithm,
		State:        run.State,
		Completed:    run.Completed,
		Total:        run.Total,
	}

	for _, e := range run.History {
		if e.Status != domain.StatusRejected {
			summary.Accepted++
			continue
		}
		summary.Rejected++
		summary.Rejections = append(summary.Rejections, RejectionRow{
			Seq:        e.Seq,
			Parameters: e.Candidate.Key(),
			Reasons:    strings.Join(e.RejectReasons, "; "),
		})
	}

	ranked := run.Leaderboard
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	for _, e := range ranked {
		summary.Leaderboard = append(summary.Leaderboard, LeaderboardRow{
			Rank:               e.Rank,
			Seq:                e.Seq,
			Generation:         e.Generation,
			Parameters:         e.Candidate.Key(),
			TotalTrades:        e.Metrics.TotalTrades,
			TotalReturnPercent: e.Metrics.TotalReturnPercent,
			SharpeRatio:        e.Metrics.SharpeRatio,
			MaxDrawdownPercent: e.Metrics.MaxDrawdownPercent,
			WinRate:            e.Metrics.WinRate,
			ProfitFactor:       e.Metrics.ProfitFactor,
			CandidateID:        idhash.ComputeCandidateID(run.StrategyName, e.Candidate),
		})
	}

	return &Report{
		GeneratedAt:   g.now(),
		Title:         "Optimization Report",
		StrategyCount: 1,
		Optimization:  summary,
	}
}

// scenarioSensitivity groups rows by (strategy, parameters) and compares
// returns across scenarios. Groups with a single scenario are skipped.
func scenarioSensitivity(rows []BacktestRow) []ScenarioSensitivityRow {
	type key struct {
		strategy   string
		parameters string
	}
	groups := make(map[key]map[string]float64)
	for _, r := range rows {
		k := key{r.StrategyName, r.Parameters}
		if groups[k] == nil {
			groups[k] = make(map[string]float64)
		}
		groups[k][r.ScenarioID] = r.TotalReturnPercent
	}

	var out []ScenarioSensitivityRow
	for k, byScenario := range groups {
		if len(byScenario) < 2 {
			continue
		}
		row := ScenarioSensitivityRow{
			StrategyName:      k.strategy,
			Parameters:        k.parameters,
			OptimisticReturn:  byScenario[domain.ScenarioOptimistic],
			RealisticReturn:   byScenario[domain.ScenarioRealistic],
			PessimisticReturn: byScenario[domain.ScenarioPessimistic],
			DegradedReturn:    byScenario[domain.ScenarioDegraded],
		}
		if row.RealisticReturn != 0 {
			row.DegradationPct = (row.RealisticReturn - row.PessimisticReturn) / math.Abs(row.RealisticReturn) * 100
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StrategyName != out[j].StrategyName {
			return out[i].StrategyName < out[j].StrategyName
		}
		return out[i].Parameters < out[j].Parameters
	})
	return out
}

var scenarioOrder = map[string]int{
	domain.ScenarioOptimistic:  0,
	domain.ScenarioRealistic:   1,
	domain.ScenarioPessimistic: 2,
	domain.ScenarioDegraded:    3,
}

// sortBacktestRows sorts rows by (strategy, parameters, scenario, report id).
func sortBacktestRows(rows []BacktestRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StrategyName != rows[j].StrategyName {
			return rows[i].StrategyName < rows[j].StrategyName
		}
		if rows[i].Parameters != rows[j].Parameters {
			return rows[i].Parameters < rows[j].Parameters
		}
		if rows[i].ScenarioID != rows[j].ScenarioID {
			return scenarioOrder[rows[i].ScenarioID] < scenarioOrder[rows[j].ScenarioID]
		}
		return rows[i].ReportID < rows[j].ReportID
	})
}
