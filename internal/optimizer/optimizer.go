package optimizer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/strategy"
)

// State is the optimizer lifecycle state.
type State string

// Lifecycle: idle -> running -> (paused <-> running) -> completed | stopped.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
)

// ErrInvalidTransition is returned for a control call the current state does not allow.
var ErrInvalidTransition = errors.New("invalid optimizer state transition")

// Progress is a point-in-time snapshot of a run.
type Progress struct {
	RunID       string        `json:"runId"`
	Algorithm   string        `json:"algorithm"`
	State       State         `json:"state"`
	Completed   int           `json:"completed"`
	Total       int           `json:"total"`
	Accepted    int           `json:"accepted"`
	Rejected    int           `json:"rejected"`
	Generation  int           `json:"generation,omitempty"`
	Generations int           `json:"generations,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Result is the final state of a run.
type Result struct {
	RunID       string                    `json:"runId"`
	Algorithm   string                    `json:"algorithm"`
	State       State                     `json:"state"`
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"` // top N
	Ranked      []domain.LeaderboardEntry `json:"ranked"`
	History     []domain.LeaderboardEntry `json:"history"`
	Progress    Progress                  `json:"progress"`
}

// Options contains configuration for creating an Optimizer.
type Options struct {
	Logger  *zerolog.Logger
	Metrics *observability.Metrics
}

// Optimizer drives one search at a time. Pause, Resume, Stop, State, Progress
// and Leaderboard may be called from other goroutines while Run blocks.
type Optimizer struct {
	evaluator Evaluator
	logger    zerolog.Logger
	metrics   *observability.Metrics

	mu          sync.Mutex
	state       State
	runID       string
	algorithm   string
	topN        int
	board       *Leaderboard
	completed   int
	total       int
	accepted    int
	rejected    int
	generation  int
	generations int
	started     time.Time
	finished    time.Time
	resume      chan struct{} // closed when leaving paused
}

// New creates an idle Optimizer.
func New(evaluator Evaluator, opts Options) *Optimizer {
	o := &Optimizer{
		evaluator: evaluator,
		logger:    zerolog.Nop(),
		metrics:   opts.Metrics,
		state:     StateIdle,
		board:     NewLeaderboard(),
	}
	if opts.Logger != nil {
		o.logger = opts.Logger.With().Str("component", "optimizer").Logger()
	}
	return o
}

// Run searches space and blocks until the search is exhausted or stopped.
//
// A nil limits accepts every candidate. Configuration problems return a
// *domain.ValidationError before any candidate is evaluated. Stop, and
// cancellation of ctx, end the run normally with State stopped; the result
// then holds everything scored before the stop. Run from completed or stopped
// starts a fresh run; Run while running or paused returns ErrInvalidTransition.
func (o *Optimizer) Run(ctx context.Context, cfg domain.StrategyConfig, space domain.ParameterSpace, limits *domain.RiskConstraints, settings domain.OptimizationSettings) (*Result, error) {
	settings = settings.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	search, err := NewSearch(space, settings)
	if err != nil {
		return nil, err
	}
	if err := preflight(cfg, space); err != nil {
		return nil, err
	}

	runID, err := o.begin(search, settings.TopN)
	if err != nil {
		return nil, err
	}
	o.logger.Info().
		Str("run_id", runID).
		Str("strategy", cfg.Name).
		Str("algorithm", search.Name()).
		Int("total", search.Total()).
		Int("parallelism", settings.Parallelism).
		Msg("optimization started")

	final := o.loop(ctx, cfg, limits, search, settings.Parallelism)
	return o.finish(final), nil
}

// preflight compiles the strategy at both corners of the space, and with the
// highest rsiLower against the lowest rsiUpper, so that missing rule fields and
// bounds that cannot hold surface before the run starts.
func preflight(cfg domain.StrategyConfig, space domain.ParameterSpace) error {
	lo, hi := space.Fixed(), space.Fixed()
	for _, p := range space.Enabled() {
		lo[p.Name] = p.Value(0)
		hi[p.Name] = p.Value(p.Count() - 1)
	}
	tight := lo.Clone()
	if v, ok := hi[domain.ParamRSILower]; ok {
		tight[domain.ParamRSILower] = v
	}
	for _, c := range []domain.Candidate{lo, hi, tight} {
		if _, err := strategy.FromConfig(cfg, c, domain.ScenarioConfigRealistic); err != nil {
			return err
		}
	}
	return nil
}

func (o *Optimizer) begin(search Search, topN int) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateRunning || o.state == StatePaused {
		return "", ErrInvalidTransition
	}
	o.state = StateRunning
	o.runID = uuid.NewString()
	o.algorithm = search.Name()
	o.topN = topN
	o.board = NewLeaderboard()
	o.completed, o.accepted, o.rejected = 0, 0, 0
	o.total = search.Total()
	o.generation, o.generations = search.Progress()
	o.started = time.Now()
	o.finished = time.Time{}
	o.resume = nil
	return o.runID, nil
}

// loop proposes, evaluates and records batches until the search is exhausted
// or the run is stopped. Stop is only observed between batches.
func (o *Optimizer) loop(ctx context.Context, cfg domain.StrategyConfig, limits *domain.RiskConstraints, search Search, parallelism int) State {
	seq := 0
	for {
		if !o.awaitRunnable(ctx) {
			return StateStopped
		}

		gen, _ := search.Progress()
		batch := search.Next(parallelism)
		if len(batch) == 0 {
			return StateCompleted
		}

		evals := make([]Evaluation, len(batch))
		var g errgroup.Group
		for i, c := range batch {
			i, c := i, c
			seq++
			s := seq
			g.Go(func() error {
				ev, err := o.evaluator.Evaluate(ctx, cfg, c, limits)
				if err != nil {
					ev = Evaluation{Candidate: c, RejectReasons: []string{err.Error()}}
				}
				ev.Seq, ev.Generation = s, gen
				evals[i] = ev
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			o.forceStop()
			return StateStopped
		}
		if !o.record(evals) {
			return StateStopped
		}
		search.Observe(evals)
		o.advanceGeneration(search)
	}
}

// awaitRunnable blocks while paused. It reports false once the run is stopped.
func (o *Optimizer) awaitRunnable(ctx context.Context) bool {
	for {
		o.mu.Lock()
		state, resume := o.state, o.resume
		o.mu.Unlock()

		switch state {
		case StateStopped:
			return false
		case StateRunning:
			if ctx.Err() != nil {
				o.forceStop()
				return false
			}
			return true
		}

		select {
		case <-resume:
		case <-ctx.Done():
			o.forceStop()
			return false
		}
	}
}

// record inserts a scored batch in proposal order. It drops the batch and
// reports false when the run was stopped while the batch was in flight.
func (o *Optimizer) record(evals []Evaluation) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateStopped {
		return false
	}
	for _, ev := range evals {
		status := domain.StatusCompleted
		if ev.Accepted {
			o.accepted++
		} else {
			status = domain.StatusRejected
			o.rejected++
		}
		o.board.Insert(domain.LeaderboardEntry{
			Seq:           ev.Seq,
			Status:        status,
			Generation:    ev.Generation,
			Candidate:     ev.Candidate,
			Metrics:       ev.Metrics,
			RejectReasons: ev.RejectReasons,
			Warnings:      ev.Warnings,
		})
		o.completed++
		o.metrics.RecordCandidate(o.algorithm, status, ev.Duration.Seconds(), ev.Trades)

		o.logger.Debug().
			Int("seq", ev.Seq).
			Str("candidate", ev.Candidate.Key()).
			Str("status", status).
			Float64("return_pct", ev.Metrics.TotalReturnPercent).
			Float64("sharpe", ev.Metrics.SharpeRatio).
			Strs("reject_reasons", ev.RejectReasons).
			Msg("candidate evaluated")
	}
	if best, ok := o.board.Best(); ok {
		o.metrics.RecordBest(best.Metrics.TotalReturnPercent)
	}
	return true
}

func (o *Optimizer) advanceGeneration(search Search) {
	gen, gens := search.Progress()

	o.mu.Lock()
	prev := o.generation
	o.generation, o.generations = gen, gens
	best, ok := o.board.Best()
	o.mu.Unlock()

	if gen == prev {
		return
	}
	ev := o.logger.Info().Int("generation", prev).Int("generations", gens)
	if ok {
		ev = ev.Float64("best_return_pct", best.Metrics.TotalReturnPercent)
	}
	ev.Msg("generation complete")
}

func (o *Optimizer) forceStop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StatePaused && o.resume != nil {
		close(o.resume)
		o.resume = nil
	}
	o.state = StateStopped
}

func (o *Optimizer) finish(final State) *Result {
	o.mu.Lock()
	if o.state != StateStopped {
		o.state = final
	}
	o.finished = time.Now()
	progress := o.progressLocked()
	res := &Result{
		RunID:       o.runID,
		Algorithm:   o.algorithm,
		State:       o.state,
		Leaderboard: o.board.Top(o.topN),
		Ranked:      o.board.Ranked(),
		History:     o.board.History(),
		Progress:    progress,
	}
	o.mu.Unlock()

	o.metrics.RecordRun("optimize", string(res.State), progress.Elapsed.Seconds())
	o.logger.Info().
		Str("run_id", res.RunID).
		Str("state", string(res.State)).
		Int("completed", progress.Completed).
		Int("total", progress.Total).
		Int("accepted", progress.Accepted).
		Int("rejected", progress.Rejected).
		Dur("elapsed", progress.Elapsed).
		Msg("optimization finished")
	return res
}

// Record converts the result into the stored form of the run.
func (r *Result) Record(strategyName string, space domain.ParameterSpace, settings domain.OptimizationSettings, limits *domain.RiskConstraints) *domain.OptimizationRun {
	return &domain.OptimizationRun{
		RunID:        r.RunID,
		StrategyName: strategyName,
		Algorithm:    r.Algorithm,
		State:        string(r.State),
		Settings:     settings,
		Space:        space,
		Constraints:  limits,
		Completed:    r.Progress.Completed,
		Total:        r.Progress.Total,
		Leaderboard:  r.Ranked,
		History:      r.History,
		CreatedAt:    time.Now().UTC(),
	}
}

// Pause stops proposing new candidates. In-flight evaluations still complete.
func (o *Optimizer) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateRunning {
		return ErrInvalidTransition
	}
	o.state = StatePaused
	o.resume = make(chan struct{})
	o.logger.Info().Str("run_id", o.runID).Int("completed", o.completed).Msg("optimization paused")
	return nil
}

// Resume continues a paused run.
func (o *Optimizer) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StatePaused {
		return ErrInvalidTransition
	}
	o.state = StateRunning
	close(o.resume)
	o.resume = nil
	o.logger.Info().Str("run_id", o.runID).Msg("optimization resumed")
	return nil
}

// Stop ends a running or paused run. The leaderboard keeps only what was
// scored before the call; results still in flight are discarded.
func (o *Optimizer) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateRunning:
	case StatePaused:
		close(o.resume)
		o.resume = nil
	default:
		return ErrInvalidTransition
	}
	o.state = StateStopped
	o.logger.Info().Str("run_id", o.runID).Int("completed", o.completed).Msg("optimization stopped")
	return nil
}

// State returns the current lifecycle state.
func (o *Optimizer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Progress returns a snapshot of the current or last run.
func (o *Optimizer) Progress() Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progressLocked()
}

// Leaderboard returns up to n ranked entries of the current or last run.
func (o *Optimizer) Leaderboard(n int) []domain.LeaderboardEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.board.Top(n)
}

// History returns every entry of the current or last run in proposal order.
func (o *Optimizer) History() []domain.LeaderboardEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.board.History()
}

func (o *Optimizer) progressLocked() Progress {
	var elapsed time.Duration
	switch {
	case o.started.IsZero():
	case o.finished.IsZero():
		elapsed = time.Since(o.started)
	default:
		elapsed = o.finished.Sub(o.started)
	}
	return Progress{
		RunID:       o.runID,
		Algorithm:   o.algorithm,
		State:       o.state,
		Completed:   o.completed,
		Total:       o.total,
		Accepted:    o.accepted,
		Rejected:    o.rejected,
		Generation:  o.generation,
		Generations: o.generations,
		Elapsed:     elapsed,
	}
}
