package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 10_000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, domain.AlgorithmGrid, cfg.Optimizer.Settings.Algorithm)
	assert.Equal(t, domain.DefaultTopN, cfg.Optimizer.Settings.TopN)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "lab.yaml", `
log:
  level: debug
  pretty: true
storage:
  backend: redis
  redisAddr: localhost:6379
marketData:
  breakerTimeout: 5s
optimizer:
  settings:
    algorithm: genetic
    populationSize: 8
  constraints:
    maxDrawdownPercent: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, 5*time.Second, cfg.MarketData.BreakerTimeout)
	assert.Equal(t, 20.0, cfg.MarketData.RequestsPerSecond, "unset keys keep defaults")
	assert.Equal(t, domain.AlgorithmGenetic, cfg.Optimizer.Settings.Algorithm)
	assert.Equal(t, 8, cfg.Optimizer.Settings.PopulationSize)
	require.NotNil(t, cfg.Optimizer.Constraints)
	assert.Equal(t, 20.0, *cfg.Optimizer.Constraints.MaxDrawdownPercent)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPostgresDSN, "postgres://lab@db/lab")
	t.Setenv(EnvClickhouseDSN, "clickhouse://ch:9000/lab")
	path := writeFile(t, "lab.yaml", "storage:\n  backend: postgres\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://lab@db/lab", cfg.Storage.PostgresDSN)
	assert.Equal(t, "clickhouse://ch:9000/lab", cfg.Storage.ClickhouseDSN)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown backend", "storage:\n  backend: s3\n", "storage.backend"},
		{"redis without addr", "storage:\n  backend: redis\n", "storage.redisAddr"},
		{"postgres without dsn", "storage:\n  backend: postgres\n", "storage.postgresDSN"},
		{"bad level", "log:\n  level: loud\n", "log.level"},
		{"bad capital", "backtest:\n  initialCapital: -1\n", "initialCapital"},
		{"bad algorithm", "optimizer:\n  settings:\n    algorithm: annealing\n", "settings.algorithm"},
		{"bad yaml", "storage: [", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "lab.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadStrategyAndOptimization(t *testing.T) {
	strat := writeFile(t, "strategy.yaml", `
name: rsi-revert
marketSelection:
  assetClass: crypto
  primaryTimeframe: 1h
  symbols: [BTC, ETH]
entryConditions:
  entryType: long_short
  indicators: [RSI]
  rsiLower: 30
  rsiUpper: 70
exitRules:
  primaryExitType: take_profit
  stopLossType: fixed
  takeProfitPercent: 4
  stopLossPercent: 2
`)
	cfg, err := LoadStrategy(strat)
	require.NoError(t, err)
	assert.Equal(t, "rsi-revert", cfg.Name)
	assert.Equal(t, []string{"BTC", "ETH"}, cfg.MarketSelection.Symbols)
	require.NotNil(t, cfg.EntryConditions.RSILower)
	assert.Equal(t, 30.0, *cfg.EntryConditions.RSILower)

	space := writeFile(t, "space.yaml", `
space:
  parameters:
    - {name: stopLossPercent, min: 1, max: 3, step: 1, enabled: true}
settings:
  algorithm: random
  sampleBudget: 5
constraints:
  minWinRate: 40
`)
	opt, err := LoadOptimization(space)
	require.NoError(t, err)
	assert.Len(t, opt.Space.Parameters, 1)
	assert.Equal(t, domain.AlgorithmRandom, opt.Settings.Algorithm)
	assert.Equal(t, 40.0, *opt.Constraints.MinWinRate)

	_, err = LoadStrategy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
