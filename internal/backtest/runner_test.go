package backtest

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"strategy-lab/internal/domain"
)

func f64(v float64) *float64 { return &v }

func testConfig(symbols ...string) domain.StrategyConfig {
	return domain.StrategyConfig{
		Name: "rsi-revert",
		MarketSelection: domain.MarketSelection{
			AssetClass:       "crypto",
			PrimaryTimeframe: "1h",
			Symbols:          symbols,
		},
		EntryConditions: domain.EntryConditions{
			EntryType:  domain.EntryTypeLongShort,
			Indicators: []string{domain.IndicatorRSI},
			RSILower:   f64(35),
			RSIUpper:   f64(65),
		},
		ExitRules: domain.ExitRules{
			PrimaryExitType:   domain.ExitTypeTakeProfit,
			StopLossType:      domain.StopLossFixed,
			TakeProfitPercent: f64(4),
			StopLossPercent:   f64(3),
		},
		RiskParameters: domain.RiskParameters{
			PositionSizingMethod: domain.SizingFixed,
			MaxPositionSize:      2000,
			PortfolioRiskPercent: f64(2),
			MaxDrawdownPercent:   f64(50),
			MaxPositions:         4,
		},
		OrderTypes: domain.OrderTypes{
			EnabledOrderTypes:  []string{domain.OrderTypeMarket},
			MaxSlippagePercent: f64(0.1),
			CommissionPercent:  0.05,
		},
	}
}

func randomWalk(symbol string, n int, seed int64) []*domain.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]*domain.Bar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price *= 1 + rng.NormFloat64()*0.02
		bars[i] = &domain.Bar{
			Symbol:      symbol,
			TimestampMs: 1_700_000_000_000 + int64(i)*3_600_000,
			Open:        open,
			High:        math.Max(open, price) * (1 + rng.Float64()*0.01),
			Low:         math.Min(open, price) * (1 - rng.Float64()*0.01),
			Close:       price,
			Volume:      500 + rng.Float64()*2000,
		}
	}
	return bars
}

type recordingSink struct {
	saved []*domain.BacktestReport
	err   error
}

func (s *recordingSink) SaveBacktest(_ context.Context, r *domain.BacktestReport) error {
	s.saved = append(s.saved, r)
	return s.err
}

func TestRunOnce_EquityCurve(t *testing.T) {
	series := domain.PriceSeries{
		"AAA": randomWalk("AAA", 400, 1),
		"BBB": randomWalk("BBB", 400, 2),
	}
	cfg := testConfig("AAA", "BBB")
	runner := NewRunner(Options{})

	report, err := runner.RunOnce(context.Background(), cfg, series, 10_000)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if len(report.Trades) == 0 {
		t.Fatal("expected trades from random walk")
	}

	curve := report.EquityCurve
	if len(curve) != len(report.Trades)+1 {
		t.Fatalf("expected %d curve points, got %d", len(report.Trades)+1, len(curve))
	}
	if curve[0].Value != 10_000 {
		t.Errorf("first point = %v, want initial capital", curve[0].Value)
	}
	if curve[0].TimeMs != series["AAA"][0].TimestampMs {
		t.Errorf("first point time = %d, want first bar time", curve[0].TimeMs)
	}
	for i := 1; i < len(curve); i++ {
		if curve[i].TimeMs < curve[i-1].TimeMs {
			t.Fatalf("curve time decreases at %d", i)
		}
	}

	last := curve[len(curve)-1].Value
	if math.Abs(last-report.Metrics.FinalEquity) > 1e-6 {
		t.Errorf("last curve value %v != final equity %v", last, report.Metrics.FinalEquity)
	}
	if report.ID == "" || report.CreatedAt.IsZero() {
		t.Error("expected report ID and creation time")
	}
	if report.Scenario != domain.ScenarioRealistic {
		t.Errorf("expected realistic scenario, got %s", report.Scenario)
	}
}

func TestRunOnce_PropagatesValidationError(t *testing.T) {
	cfg := testConfig("AAA")
	cfg.ExitRules.TakeProfitPercent = nil

	_, err := NewRunner(Options{}).RunOnce(context.Background(), cfg, domain.PriceSeries{}, 10_000)

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "exitRules.takeProfitPercent" {
		t.Errorf("expected exitRules.takeProfitPercent, got %s", verr.Field)
	}
}

func TestRunOnce_RejectsNonPositiveCapital(t *testing.T) {
	for _, capital := range []float64{0, -5} {
		_, err := NewRunner(Options{}).RunOnce(context.Background(), testConfig("AAA"), domain.PriceSeries{}, capital)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) || verr.Field != "initialCapital" {
			t.Errorf("capital %v: expected initialCapital ValidationError, got %v", capital, err)
		}
	}
}

func TestRunOnce_DegradedRun(t *testing.T) {
	series := domain.PriceSeries{"AAA": randomWalk("AAA", 300, 3)}
	report, err := NewRunner(Options{}).RunOnce(context.Background(), testConfig("AAA", "ZZZ"), series, 10_000)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !report.Degraded() || len(report.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", report.Warnings)
	}
	for _, tr := range report.Trades {
		if tr.Symbol != "AAA" {
			t.Errorf("unexpected trade symbol %s", tr.Symbol)
		}
	}
}

func TestRunOnce_NoTrades(t *testing.T) {
	report, err := NewRunner(Options{}).RunOnce(context.Background(), testConfig("AAA"), domain.PriceSeries{}, 5_000)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if len(report.EquityCurve) != 1 || report.EquityCurve[0].Value != 5_000 {
		t.Errorf("expected single initial point, got %+v", report.EquityCurve)
	}
	if report.Metrics.WinRate != 0 || report.Metrics.ProfitFactor != 0 {
		t.Errorf("expected zero metrics, got %+v", report.Metrics)
	}
}

func TestRunOnce_SinkReceivesReport(t *testing.T) {
	series := domain.PriceSeries{"AAA": randomWalk("AAA", 200, 4)}

	sink := &recordingSink{}
	report, err := NewRunner(Options{Sink: sink}).RunOnce(context.Background(), testConfig("AAA"), series, 10_000)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if len(sink.saved) != 1 || sink.saved[0] != report {
		t.Fatalf("expected the report to be saved once")
	}

	failing := &recordingSink{err: errors.New("store down")}
	if _, err := NewRunner(Options{Sink: failing}).RunOnce(context.Background(), testConfig("AAA"), series, 10_000); err != nil {
		t.Fatalf("persistence failure must not fail the run: %v", err)
	}
}

func TestRunScenarios(t *testing.T) {
	series := domain.PriceSeries{"AAA": randomWalk("AAA", 300, 5)}
	cand := domain.Candidate{domain.ParamStopLossPercent: 2}

	reports, err := NewRunner(Options{}).RunScenarios(context.Background(), testConfig("AAA"), cand, series, 10_000, nil)
	if err != nil {
		t.Fatalf("RunScenarios failed: %v", err)
	}

	want := domain.AllScenarios()
	if len(reports) != len(want) {
		t.Fatalf("expected %d reports, got %d", len(want), len(reports))
	}
	for i, r := range reports {
		if r.Scenario != want[i].ScenarioID {
			t.Errorf("report %d: expected %s, got %s", i, want[i].ScenarioID, r.Scenario)
		}
		if r.Candidate[domain.ParamStopLossPercent] != 2 {
			t.Errorf("report %d lost candidate overrides", i)
		}
	}
}
