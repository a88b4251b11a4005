package optimizer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/constraints"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/simulation"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int { return &v }

func testConfig() domain.StrategyConfig {
	return domain.StrategyConfig{
		Name: "opt",
		MarketSelection: domain.MarketSelection{
			AssetClass:       "crypto",
			PrimaryTimeframe: "1h",
			Symbols:          []string{"AAA"},
		},
		EntryConditions: domain.EntryConditions{
			EntryType:  domain.EntryTypeLong,
			Indicators: []string{domain.IndicatorVolumeSpike},
		},
		ExitRules: domain.ExitRules{
			PrimaryExitType:   domain.ExitTypeTakeProfit,
			StopLossType:      domain.StopLossFixed,
			TakeProfitPercent: f64(5),
			StopLossPercent:   f64(2),
		},
		RiskParameters: domain.RiskParameters{
			PositionSizingMethod: domain.SizingFixed,
			MaxPositionSize:      1000,
			PortfolioRiskPercent: f64(2),
			MaxDrawdownPercent:   f64(50),
			MaxPositions:         3,
		},
		OrderTypes: domain.OrderTypes{
			EnabledOrderTypes:  []string{domain.OrderTypeMarket},
			MaxSlippagePercent: f64(0.1),
			CommissionPercent:  0.05,
		},
	}
}

// fakeEvaluator scores candidates with a closed-form function of stop loss and take profit.
type fakeEvaluator struct {
	calls  atomic.Int32
	onCall func(n int)
}

func (f *fakeEvaluator) Evaluate(_ context.Context, _ domain.StrategyConfig, c domain.Candidate, limits *domain.RiskConstraints) (Evaluation, error) {
	n := int(f.calls.Add(1))
	if f.onCall != nil {
		f.onCall(n)
	}
	sl, tp := c[domain.ParamStopLossPercent], c[domain.ParamTakeProfitPercent]
	m := domain.PerformanceMetrics{
		TotalReturnPercent: tp*10 - sl,
		SharpeRatio:        tp,
		MaxDrawdownPercent: sl * 3,
	}
	d := constraints.Evaluate(m, nil, limits)
	return Evaluation{Candidate: c, Metrics: m, Accepted: d.Accepted, RejectReasons: d.Reasons}, nil
}

func gridSettings() domain.OptimizationSettings {
	return domain.OptimizationSettings{Algorithm: domain.AlgorithmGrid}
}

func TestOptimizer_GridCompletes(t *testing.T) {
	opt := New(&fakeEvaluator{}, Options{})
	require.Equal(t, StateIdle, opt.State())

	res, err := opt.Run(context.Background(), testConfig(), testSpace(), nil, gridSettings())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, StateCompleted, opt.State())
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 27, res.Progress.Completed)
	assert.Equal(t, 27, res.Progress.Total)
	assert.Equal(t, 27, res.Progress.Accepted)
	assert.Len(t, res.History, 27)
	assert.Len(t, res.Ranked, 27)
	require.Len(t, res.Leaderboard, domain.DefaultTopN)

	best := res.Leaderboard[0]
	assert.Equal(t, 1, best.Rank)
	assert.Equal(t, 1.0, best.Candidate[domain.ParamStopLossPercent])
	assert.Equal(t, 4.0, best.Candidate[domain.ParamTakeProfitPercent])
	assert.Equal(t, 30.0, best.Candidate[domain.ParamRSILower], "disabled parameter carries its default")

	for i := 1; i < len(res.Ranked); i++ {
		prev, cur := res.Ranked[i-1].Metrics, res.Ranked[i].Metrics
		assert.GreaterOrEqual(t, prev.TotalReturnPercent, cur.TotalReturnPercent)
	}
	for i, e := range res.History {
		assert.Equal(t, i+1, e.Seq)
	}

	run := res.Record("test", testSpace(), gridSettings(), nil)
	assert.Equal(t, res.RunID, run.RunID)
	assert.Equal(t, "completed", run.State)
	assert.Equal(t, 27, run.Total)
	assert.Len(t, run.Leaderboard, 27)
	assert.False(t, run.CreatedAt.IsZero())
}

func TestOptimizer_RejectedCandidatesRetained(t *testing.T) {
	opt := New(&fakeEvaluator{}, Options{})
	limits := &domain.RiskConstraints{MaxDrawdownPercent: f64(10)}

	res, err := opt.Run(context.Background(), testConfig(), testSpace(), limits, gridSettings())
	require.NoError(t, err)

	// drawdown = 3 x stop loss; stop losses 3.5..5 exceed 10
	assert.Equal(t, 12, res.Progress.Rejected)
	assert.Equal(t, 15, res.Progress.Accepted)
	assert.Len(t, res.Ranked, 15)
	assert.Len(t, res.History, 27)

	for _, e := range res.History {
		if e.Candidate[domain.ParamStopLossPercent] > 10.0/3 {
			assert.Equal(t, domain.StatusRejected, e.Status)
			assert.Zero(t, e.Rank)
			assert.NotEmpty(t, e.RejectReasons)
		}
	}
	for _, e := range res.Ranked {
		assert.LessOrEqual(t, e.Metrics.MaxDrawdownPercent, 10.0)
	}
}

// invalidAtEvaluator fails candidates whose stop loss equals bad.
type invalidAtEvaluator struct {
	fakeEvaluator
	bad float64
}

func (e *invalidAtEvaluator) Evaluate(ctx context.Context, cfg domain.StrategyConfig, c domain.Candidate, limits *domain.RiskConstraints) (Evaluation, error) {
	if c[domain.ParamStopLossPercent] == e.bad {
		return Evaluation{Candidate: c}, domain.NewValidationError("exitRules.stopLossPercent", "cannot compile")
	}
	return e.fakeEvaluator.Evaluate(ctx, cfg, c, limits)
}

func TestOptimizer_CandidateValidationErrorIsRejection(t *testing.T) {
	res, err := New(&invalidAtEvaluator{bad: 3}, Options{}).Run(context.Background(), testConfig(), testSpace(), nil, gridSettings())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 3, res.Progress.Rejected)
	assert.Len(t, res.Ranked, 24)
	for _, e := range res.History {
		if e.Candidate[domain.ParamStopLossPercent] != 3 {
			continue
		}
		assert.Equal(t, domain.StatusRejected, e.Status)
		require.NotEmpty(t, e.RejectReasons)
		assert.True(t, strings.Contains(e.RejectReasons[0], "exitRules.stopLossPercent"))
	}
}

func TestOptimizer_StopMidGrid(t *testing.T) {
	fe := &fakeEvaluator{}
	opt := New(fe, Options{})
	fe.onCall = func(n int) {
		if n == 16 {
			_ = opt.Stop()
		}
	}

	res, err := opt.Run(context.Background(), testConfig(), testSpace(), nil, gridSettings())
	require.NoError(t, err)

	assert.Equal(t, StateStopped, res.State)
	assert.Equal(t, int32(16), fe.calls.Load(), "no candidate proposed after stop")
	require.Len(t, res.History, 15)
	for i, e := range res.History {
		assert.Equal(t, i+1, e.Seq)
	}
	assert.Len(t, opt.Leaderboard(100), 15)
	assert.Equal(t, 15, opt.Progress().Completed)

	assert.ErrorIs(t, opt.Stop(), ErrInvalidTransition)
	assert.ErrorIs(t, opt.Pause(), ErrInvalidTransition)
	assert.ErrorIs(t, opt.Resume(), ErrInvalidTransition)

	// A stopped optimizer can start a fresh run
	fe.onCall = nil
	again, err := opt.Run(context.Background(), testConfig(), testSpace(), nil, gridSettings())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, again.State)
	assert.Len(t, again.History, 27)
	assert.NotEqual(t, res.RunID, again.RunID)
}

func TestOptimizer_PauseResume(t *testing.T) {
	fe := &fakeEvaluator{}
	opt := New(fe, Options{})
	pauseErr := make(chan error, 1)
	fe.onCall = func(n int) {
		if n == 5 {
			pauseErr <- opt.Pause()
		}
	}

	done := make(chan *Result, 1)
	go func() {
		res, err := opt.Run(context.Background(), testConfig(), testSpace(), nil, gridSettings())
		if err != nil {
			t.Errorf("Run failed: %v", err)
		}
		done <- res
	}()

	require.NoError(t, <-pauseErr)
	require.Eventually(t, func() bool {
		return opt.Progress().Completed == 5
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, StatePaused, opt.State())
	assert.Len(t, opt.Leaderboard(100), 5, "leaderboard queryable while paused")

	_, err := opt.Run(context.Background(), testConfig(), testSpace(), nil, gridSettings())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, opt.Pause(), ErrInvalidTransition)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(5), fe.calls.Load(), "no candidates proposed while paused")

	require.NoError(t, opt.Resume())
	res := <-done
	require.NotNil(t, res)
	assert.Equal(t, StateCompleted, res.State)
	assert.Len(t, res.History, 27)
}

func TestOptimizer_StopWhilePaused(t *testing.T) {
	fe := &fakeEvaluator{}
	opt := New(fe, Options{})
	fe.onCall = func(n int) {
		if n == 3 {
			_ = opt.Pause()
		}
	}

	done := make(chan *Result, 1)
	go func() {
		res, _ := opt.Run(context.Background(), testConfig(), testSpace(), nil, gridSettings())
		done <- res
	}()

	require.Eventually(t, func() bool {
		return opt.State() == StatePaused && opt.Progress().Completed == 3
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, opt.Stop())

	res := <-done
	assert.Equal(t, StateStopped, res.State)
	assert.Len(t, res.History, 3)
}

func TestOptimizer_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fe := &fakeEvaluator{onCall: func(n int) {
		if n == 3 {
			cancel()
		}
	}}
	opt := New(fe, Options{})

	res, err := opt.Run(ctx, testConfig(), testSpace(), nil, gridSettings())
	require.NoError(t, err, "cancellation is not an error")
	assert.Equal(t, StateStopped, res.State)
	assert.Len(t, res.History, 2, "candidate in flight at cancellation is discarded")
}

func TestOptimizer_ParallelMatchesSequential(t *testing.T) {
	seqRes, err := New(&fakeEvaluator{}, Options{}).Run(context.Background(), testConfig(), testSpace(), nil, gridSettings())
	require.NoError(t, err)

	settings := gridSettings()
	settings.Parallelism = 4
	parRes, err := New(&fakeEvaluator{}, Options{}).Run(context.Background(), testConfig(), testSpace(), nil, settings)
	require.NoError(t, err)

	require.Len(t, parRes.History, 27)
	for i, e := range parRes.History {
		assert.Equal(t, i+1, e.Seq)
	}
	require.Equal(t, len(seqRes.Ranked), len(parRes.Ranked))
	for i := range seqRes.Ranked {
		assert.Equal(t, seqRes.Ranked[i].Candidate.Key(), parRes.Ranked[i].Candidate.Key())
		assert.Equal(t, seqRes.Ranked[i].Rank, parRes.Ranked[i].Rank)
	}
}

func TestOptimizer_GeneticProgress(t *testing.T) {
	opt := New(&fakeEvaluator{}, Options{})
	settings := domain.OptimizationSettings{
		Algorithm:      domain.AlgorithmGenetic,
		PopulationSize: 6,
		Generations:    3,
		EliteCount:     intp(1),
		Seed:           11,
		Parallelism:    2,
	}

	res, err := opt.Run(context.Background(), testConfig(), testSpace(), nil, settings)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 6+2*5, res.Progress.Total)
	assert.Equal(t, res.Progress.Total, res.Progress.Completed)
	assert.Equal(t, 3, res.Progress.Generation)
	assert.Equal(t, 3, res.Progress.Generations)

	gens := map[int]int{}
	for _, e := range res.History {
		gens[e.Generation]++
	}
	assert.Equal(t, map[int]int{1: 6, 2: 5, 3: 5}, gens)
}

func TestOptimizer_GeneticWithoutMutationOrElites(t *testing.T) {
	settings := domain.OptimizationSettings{
		Algorithm:      domain.AlgorithmGenetic,
		PopulationSize: 2,
		Generations:    3,
		MutationRate:   f64(0),
		CrossoverRate:  f64(0),
		EliteCount:     intp(0),
		Seed:           5,
	}

	res, err := New(&fakeEvaluator{}, Options{}).Run(context.Background(), testConfig(), testSpace(), nil, settings)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, 2+2*2, res.Progress.Total)
	assert.Equal(t, res.Progress.Total, res.Progress.Completed)
}

func TestOptimizer_NonGeneticIgnoresPopulation(t *testing.T) {
	for _, algo := range []string{domain.AlgorithmRandom, domain.AlgorithmBayesian} {
		settings := domain.OptimizationSettings{Algorithm: algo, PopulationSize: 1, SampleBudget: 5, Seed: 2}
		res, err := New(&fakeEvaluator{}, Options{}).Run(context.Background(), testConfig(), testSpace(), nil, settings)
		require.NoError(t, err, algo)
		assert.Equal(t, 5, res.Progress.Completed, algo)
	}
}

func TestOptimizer_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.StrategyConfig, *domain.ParameterSpace)
		field  string
	}{
		{
			name:   "missing stop loss",
			mutate: func(c *domain.StrategyConfig, _ *domain.ParameterSpace) { c.ExitRules.StopLossPercent = nil },
			field:  "exitRules.stopLossPercent",
		},
		{
			name: "trailing exit without distance",
			mutate: func(c *domain.StrategyConfig, _ *domain.ParameterSpace) {
				c.ExitRules.PrimaryExitType = domain.ExitTypeTrailingStop
			},
			field: "exitRules.trailingDistance",
		},
		{
			name: "rsi bounds overlap inside the space",
			mutate: func(c *domain.StrategyConfig, s *domain.ParameterSpace) {
				c.EntryConditions.Indicators = []string{domain.IndicatorRSI}
				c.EntryConditions.RSILower = f64(30)
				c.EntryConditions.RSIUpper = f64(70)
				// corners (20,50) and (60,80) compile; (60,50) does not
				s.Parameters = []domain.ParameterRange{
					{Name: domain.ParamRSILower, Min: 20, Max: 60, Step: 10, Enabled: true},
					{Name: domain.ParamRSIUpper, Min: 50, Max: 80, Step: 10, Enabled: true},
				}
			},
			field: "entryConditions.rsiLower",
		},
		{
			name: "grid too large",
			mutate: func(_ *domain.StrategyConfig, s *domain.ParameterSpace) {
				s.Parameters[0] = domain.ParameterRange{Name: domain.ParamStopLossPercent, Min: 0.001, Max: 99, Step: 1e-3, Enabled: true}
				s.Parameters[1] = domain.ParameterRange{Name: domain.ParamTakeProfitPercent, Min: 1, Max: 1e6, Step: 1e-3, Enabled: true}
			},
			field: "parameterSpace.takeProfitPercent",
		},
		{
			name: "inverted range",
			mutate: func(_ *domain.StrategyConfig, s *domain.ParameterSpace) {
				s.Parameters[0].Min, s.Parameters[0].Max = 5, 1
			},
			field: "parameterSpace.stopLossPercent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, space := testConfig(), testSpace()
			tt.mutate(&cfg, &space)

			fe := &fakeEvaluator{}
			opt := New(fe, Options{})
			_, err := opt.Run(context.Background(), cfg, space, nil, gridSettings())

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, StateIdle, opt.State())
			assert.Zero(t, fe.calls.Load())
		})
	}
}

func TestOptimizer_IdleTransitions(t *testing.T) {
	opt := New(&fakeEvaluator{}, Options{})
	assert.ErrorIs(t, opt.Pause(), ErrInvalidTransition)
	assert.ErrorIs(t, opt.Resume(), ErrInvalidTransition)
	assert.ErrorIs(t, opt.Stop(), ErrInvalidTransition)
	assert.Empty(t, opt.Leaderboard(5))
	assert.Equal(t, StateIdle, opt.Progress().State)
}

// randomWalk generates a reproducible OHLCV series.
func randomWalk(symbol string, n int, seed int64) []*domain.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]*domain.Bar, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price *= 1 + rng.NormFloat64()*0.02
		hi := math.Max(open, price) * (1 + rng.Float64()*0.01)
		lo := math.Min(open, price) * (1 - rng.Float64()*0.01)
		bars[i] = &domain.Bar{
			Symbol:      symbol,
			TimestampMs: int64(i) * 3_600_000,
			Open:        open,
			High:        hi,
			Low:         lo,
			Close:       price,
			Volume:      500 + rng.Float64()*2000,
		}
	}
	return bars
}

func TestOptimizer_SimulationEvaluator(t *testing.T) {
	cfg := testConfig()
	cfg.MarketSelection.Symbols = []string{"AAA", "BBB"}
	cfg.EntryConditions.EntryType = domain.EntryTypeLongShort
	cfg.EntryConditions.SignalMode = domain.SignalModeAny
	cfg.EntryConditions.Indicators = []string{domain.IndicatorRSI}
	cfg.EntryConditions.RSILower = f64(35)
	cfg.EntryConditions.RSIUpper = f64(65)

	series := domain.PriceSeries{
		"AAA": randomWalk("AAA", 300, 1),
		"BBB": randomWalk("BBB", 300, 2),
	}
	space := domain.ParameterSpace{Parameters: []domain.ParameterRange{
		{Name: domain.ParamRSILower, Min: 20, Max: 40, Step: 20, Enabled: true},
		{Name: domain.ParamRSIUpper, Min: 50, Max: 70, Step: 20, Enabled: true},
	}}

	eval := NewSimulationEvaluator(simulation.New(simulation.Options{}), series)
	run := func() *Result {
		res, err := New(eval, Options{}).Run(context.Background(), cfg, space, nil, gridSettings())
		require.NoError(t, err)
		return res
	}

	first := run()
	assert.Equal(t, StateCompleted, first.State)
	require.Len(t, first.History, 4)
	assert.Equal(t, 4, first.Progress.Accepted)

	second := run()
	assert.Equal(t, first.History, second.History, "same inputs give identical leaderboards")
}
