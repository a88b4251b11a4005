package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/storage"
	"strategy-lab/internal/storage/memory"
)

func f64(v float64) *float64 { return &v }

func newRepo(t *testing.T) (*storage.Repository, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	return storage.NewRepository(memory.NewRecordStore(), "memory", m), m
}

func TestRepository_StrategyRoundTrip(t *testing.T) {
	repo, m := newRepo(t)
	ctx := context.Background()

	cfg := &domain.StrategyConfig{
		Name: "breakout",
		MarketSelection: domain.MarketSelection{
			AssetClass:       "crypto",
			PrimaryTimeframe: "4h",
			Symbols:          []string{"BTC", "ETH"},
		},
		ExitRules: domain.ExitRules{
			StopLossPercent:   f64(2.5),
			TakeProfitPercent: f64(6),
		},
	}
	require.NoError(t, repo.SaveStrategy(ctx, cfg))
	require.NoError(t, repo.SaveStrategy(ctx, &domain.StrategyConfig{Name: "alpha"}))

	got, err := repo.LoadStrategy(ctx, "breakout")
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	names, err := repo.ListStrategies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "breakout"}, names)

	require.NoError(t, repo.DeleteStrategy(ctx, "alpha"))
	_, err = repo.LoadStrategy(ctx, "alpha")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOpErrors.WithLabelValues("memory", "load_strategy")))
}

func TestRepository_StrategyRequiresName(t *testing.T) {
	repo, _ := newRepo(t)
	err := repo.SaveStrategy(context.Background(), &domain.StrategyConfig{Name: "  "})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}

func TestRepository_BacktestAndOptimization(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	report := &domain.BacktestReport{
		ID:             "r-1",
		StrategyName:   "breakout",
		InitialCapital: 10_000,
		Metrics:        domain.PerformanceMetrics{TotalTrades: 3, TotalReturnPercent: 4.2},
		Trades: []*domain.SimulatedTrade{
			{TradeID: "t1", Symbol: "BTC", Direction: "long", EntryTime: 1, ExitTime: 2, PnL: 42},
		},
		EquityCurve: []domain.EquityPoint{{TimeMs: 1, Value: 10_000}, {TimeMs: 2, Value: 10_042}},
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.SaveBacktest(ctx, report))

	loaded, err := repo.LoadBacktest(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, report, loaded)

	ids, err := repo.ListBacktests(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"r-1"}, ids)

	run := &domain.OptimizationRun{
		RunID:        "run-1",
		StrategyName: "breakout",
		Algorithm:    domain.AlgorithmGrid,
		State:        "completed",
		Completed:    2,
		Total:        2,
		Leaderboard: []domain.LeaderboardEntry{
			{Seq: 2, Rank: 1, Status: domain.StatusCompleted, Candidate: domain.Candidate{domain.ParamStopLossPercent: 2}},
		},
	}
	require.NoError(t, repo.SaveOptimization(ctx, run))

	gotRun, err := repo.LoadOptimization(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Leaderboard, gotRun.Leaderboard)
	assert.Equal(t, 2, gotRun.Total)

	err = repo.SaveOptimization(ctx, &domain.OptimizationRun{})
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}
