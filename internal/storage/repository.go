package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/observability"
)

// Key prefixes for typed records.
const (
	StrategyPrefix     = "strategy/"
	BacktestPrefix     = "backtest/"
	OptimizationPrefix = "optimization/"
)

// Repository stores strategies, backtest reports and optimization runs as JSON
// documents on top of a RecordStore.
type Repository struct {
	store   RecordStore
	backend string
	metrics *observability.Metrics
}

// NewRepository creates a repository. backend labels store metrics
// ("memory", "redis", "postgres").
func NewRepository(store RecordStore, backend string, metrics *observability.Metrics) *Repository {
	return &Repository{store: store, backend: backend, metrics: metrics}
}

// SaveStrategy stores cfg under its name. Incomplete drafts are allowed.
func (r *Repository) SaveStrategy(ctx context.Context, cfg *domain.StrategyConfig) error {
	if cfg == nil || strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("strategy name is required: %w", ErrInvalidInput)
	}
	return r.put(ctx, "save_strategy", StrategyPrefix+cfg.Name, cfg)
}

// LoadStrategy returns the strategy saved under name.
func (r *Repository) LoadStrategy(ctx context.Context, name string) (*domain.StrategyConfig, error) {
	var cfg domain.StrategyConfig
	if err := r.get(ctx, "load_strategy", StrategyPrefix+name, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListStrategies returns saved strategy names in ascending order.
func (r *Repository) ListStrategies(ctx context.Context) ([]string, error) {
	return r.list(ctx, "list_strategies", StrategyPrefix)
}

// DeleteStrategy removes the strategy saved under name.
func (r *Repository) DeleteStrategy(ctx context.Context, name string) error {
	start := time.Now()
	err := r.store.Delete(ctx, StrategyPrefix+name)
	r.metrics.RecordStoreOp(r.backend, "delete_strategy", time.Since(start).Seconds(), err)
	return err
}

// SaveBacktest stores a backtest report under its ID.
func (r *Repository) SaveBacktest(ctx context.Context, report *domain.BacktestReport) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("report id is required: %w", ErrInvalidInput)
	}
	return r.put(ctx, "save_backtest", BacktestPrefix+report.ID, report)
}

// LoadBacktest returns the report with the given ID.
func (r *Repository) LoadBacktest(ctx context.Context, id string) (*domain.BacktestReport, error) {
	var report domain.BacktestReport
	if err := r.get(ctx, "load_backtest", BacktestPrefix+id, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListBacktests returns stored report IDs in ascending order.
func (r *Repository) ListBacktests(ctx context.Context) ([]string, error) {
	return r.list(ctx, "list_backtests", BacktestPrefix)
}

// SaveOptimization stores an optimization run under its run ID.
func (r *Repository) SaveOptimization(ctx context.Context, run *domain.OptimizationRun) error {
	if run == nil || run.RunID == "" {
		return fmt.Errorf("run id is required: %w", ErrInvalidInput)
	}
	return r.put(ctx, "save_optimization", OptimizationPrefix+run.RunID, run)
}

// LoadOptimization returns the optimization run with the given ID.
func (r *Repository) LoadOptimization(ctx context.Context, runID string) (*domain.OptimizationRun, error) {
	var run domain.OptimizationRun
	if err := r.get(ctx, "load_optimization", OptimizationPrefix+runID, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListOptimizations returns stored run IDs in ascending order.
func (r *Repository) ListOptimizations(ctx context.Context) ([]string, error) {
	return r.list(ctx, "list_optimizations", OptimizationPrefix)
}

func (r *Repository) put(ctx context.Context, op, key string, v any) error {
	start := time.Now()
	data, err := json.Marshal(v)
	if err != nil {
		err = fmt.Errorf("encode %s: %w", key, err)
	} else {
		err = r.store.Save(ctx, key, data)
	}
	r.metrics.RecordStoreOp(r.backend, op, time.Since(start).Seconds(), err)
	return err
}

func (r *Repository) get(ctx context.Context, op, key string, dst any) error {
	start := time.Now()
	data, err := r.store.Load(ctx, key)
	if err == nil {
		if jerr := json.Unmarshal(data, dst); jerr != nil {
			err = fmt.Errorf("decode %s: %w", key, jerr)
		}
	}
	r.metrics.RecordStoreOp(r.backend, op, time.Since(start).Seconds(), err)
	return err
}

func (r *Repository) list(ctx context.Context, op, prefix string) ([]string, error) {
	start := time.Now()
	keys, err := r.store.List(ctx, prefix)
	r.metrics.RecordStoreOp(r.backend, op, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = strings.TrimPrefix(k, prefix)
	}
	return names, nil
}
