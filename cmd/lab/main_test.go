package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-lab/internal/domain"
)

const strategyYAML = `
name: rsi-revert
marketSelection:
  assetClass: crypto
  primaryTimeframe: 1h
  symbols: [BTC, ETH]
entryConditions:
  entryType: long_short
  indicators: [RSI]
  rsiLower: 35
  rsiUpper: 65
exitRules:
  primaryExitType: take_profit
  stopLossType: fixed
  takeProfitPercent: 4
  stopLossPercent: 2
riskParameters:
  positionSizingMethod: fixed
  maxPositionSize: 2000
  maxPositions: 4
  portfolioRiskPercent: 2
  maxDrawdownPercent: 50
orderTypes:
  enabledOrderTypes: [market]
  maxSlippagePercent: 0.1
  commissionPercent: 0.05
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("LAB_POSTGRES_DSN", "")
	t.Setenv("LAB_REDIS_ADDR", "")
	t.Setenv("LAB_CLICKHOUSE_DSN", "")

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestBacktestCommand_JSON(t *testing.T) {
	strat := writeTemp(t, "strategy.yaml", strategyYAML)

	out, _, err := execute(t, "backtest",
		"--strategy-file", strat,
		"--synthetic-bars", "400",
		"--scenarios", "realistic,pessimistic",
		"--param", "stopLossPercent=3",
		"--format", "json")
	require.NoError(t, err)

	var reports []*domain.BacktestReport
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, domain.ScenarioRealistic, reports[0].Scenario)
	assert.Equal(t, domain.ScenarioPessimistic, reports[1].Scenario)
	for _, r := range reports {
		assert.Equal(t, "rsi-revert", r.StrategyName)
		assert.Equal(t, 3.0, r.Candidate[domain.ParamStopLossPercent])
		assert.Equal(t, 10_000.0, r.InitialCapital)
	}
}

func TestBacktestCommand_InvalidStrategy(t *testing.T) {
	strat := writeTemp(t, "strategy.yaml", "name: draft\n")

	_, _, err := execute(t, "backtest", "--strategy-file", strat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not start")

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestOptimizeCommand_Grid(t *testing.T) {
	strat := writeTemp(t, "strategy.yaml", strategyYAML)
	space := writeTemp(t, "space.yaml", `
space:
  parameters:
    - {name: stopLossPercent, min: 1, max: 3, step: 1, enabled: true}
settings:
  algorithm: grid
  topN: 2
`)

	out, _, err := execute(t, "optimize",
		"--strategy-file", strat,
		"--space-file", space,
		"--synthetic-bars", "300",
		"--format", "json")
	require.NoError(t, err)

	var run domain.OptimizationRun
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, "completed", run.State)
	assert.Equal(t, 3, run.Total)
	assert.Equal(t, 3, run.Completed)
	assert.Equal(t, domain.AlgorithmGrid, run.Algorithm)
}

func TestStrategySave_ReportsSections(t *testing.T) {
	strat := writeTemp(t, "strategy.yaml", "name: draft\nmarketSelection:\n  assetClass: crypto\n  primaryTimeframe: 1h\n  symbols: [BTC]\n")

	out, errOut, err := execute(t, "strategy", "save", strat)
	require.NoError(t, err)
	assert.Contains(t, out, "saved draft")
	assert.Contains(t, out, "market selection: true")
	assert.Contains(t, out, "entry conditions: false")
	assert.Contains(t, errOut, "not runnable")
}

func TestBarsSeed_RequiresClickhouse(t *testing.T) {
	_, _, err := execute(t, "bars", "seed", "--symbols", "BTC")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clickhouse")
}

func TestParseParams(t *testing.T) {
	c, err := parseParams([]string{"stopLossPercent=2.5", "rsiLower=30"})
	require.NoError(t, err)
	assert.Equal(t, domain.Candidate{"stopLossPercent": 2.5, "rsiLower": 30}, c)

	c, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	for _, bad := range []string{"stopLossPercent", "=1", "x=abc"} {
		_, err := parseParams([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseScenarios(t *testing.T) {
	got, err := parseScenarios(nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.ExecutionScenario{domain.ScenarioConfigRealistic}, got)

	got, err = parseScenarios([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, domain.AllScenarios(), got)

	_, err = parseScenarios([]string{"lunar"})
	assert.Error(t, err)
}
