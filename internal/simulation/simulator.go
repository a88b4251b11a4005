// Package simulation replays a compiled strategy over a price snapshot.
package simulation

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/strategy"
)

// DefaultInitialCapital is used when Options.InitialCapital is not set.
const DefaultInitialCapital = 100_000.0

// Simulator produces simulated trades. It holds no per-run state and is safe
// for concurrent use.
type Simulator struct {
	initialCapital float64
	scenario       domain.ExecutionScenario
	logger         zerolog.Logger
}

// Options contains configuration for creating a Simulator.
type Options struct {
	InitialCapital float64
	Scenario       domain.ExecutionScenario // zero value = realistic
	Logger         *zerolog.Logger
}

// New creates a Simulator.
func New(opts Options) *Simulator {
	s := &Simulator{
		initialCapital: opts.InitialCapital,
		scenario:       opts.Scenario,
		logger:         zerolog.Nop(),
	}
	if s.initialCapital <= 0 {
		s.initialCapital = DefaultInitialCapital
	}
	if s.scenario.ScenarioID == "" {
		s.scenario = domain.ScenarioConfigRealistic
	}
	if opts.Logger != nil {
		s.logger = opts.Logger.With().Str("component", "simulator").Logger()
	}
	return s
}

// InitialCapital returns the capital sizing starts from.
func (s *Simulator) InitialCapital() float64 {
	return s.initialCapital
}

// Scenario returns the execution scenario applied to costs.
func (s *Simulator) Scenario() domain.ExecutionScenario {
	return s.scenario
}

// Simulate runs cfg with candidate overrides over series.
// Steps:
//  1. Compile rules; a *domain.ValidationError is the only error returned
//  2. Collect bars per selected symbol, recording a DataGapError for each missing one
//  3. Walk all timestamps in order; at each, exits before pending fills before new entries
//  4. Close whatever is still open at the last bar with END_OF_DATA
//  5. Order trades by entry time
//
// The walk always runs to completion once started; ctx is not consulted.
func (s *Simulator) Simulate(_ context.Context, cfg domain.StrategyConfig, candidate domain.Candidate, series domain.PriceSeries) (*domain.SimulationResult, error) {
	// 1. Compile rules
	rules, err := strategy.FromConfig(cfg, candidate, s.scenario)
	if err != nil {
		return nil, err
	}

	result := &domain.SimulationResult{Trades: []*domain.SimulatedTrade{}}

	// 2. Collect bars per symbol
	var books []*book
	for _, symbol := range cfg.MarketSelection.Symbols {
		bars := cleanBars(series[symbol])
		if len(bars) == 0 {
			reason := "symbol not in price series"
			if _, ok := series[symbol]; ok {
				reason = "empty price series"
			}
			gap := &domain.DataGapError{Symbol: symbol, Reason: reason}
			result.Warnings = append(result.Warnings, gap)
			s.logger.Warn().Str("symbol", symbol).Str("reason", reason).Msg("skipping symbol")
			continue
		}
		books = append(books, &book{
			symbol:  symbol,
			sector:  cfg.MarketSelection.Sector(symbol),
			signals: strategy.ComputeSignals(bars),
			cursor:  -1,
		})
	}
	if len(books) == 0 {
		return result, nil
	}

	// 3. Walk the merged timeline
	p := newPortfolio(rules, s.initialCapital, s.scenario.ScenarioID, books)
	for _, ts := range mergedTimestamps(books) {
		var active []*book
		for _, b := range books {
			if b.advanceTo(ts) {
				active = append(active, b)
			}
		}
		p.startBar(ts)
		for _, b := range active {
			p.processExits(b)
		}
		for _, b := range active {
			p.processPending(b)
		}
		for _, b := range active {
			p.processEntry(b)
		}
	}

	// 4. Force-close open positions
	for _, b := range books {
		p.closeAtEnd(b)
	}

	// 5. Order trades
	trades := p.trades
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if a.EntryTime != b.EntryTime {
			return a.EntryTime < b.EntryTime
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Partial != b.Partial {
			return a.Partial
		}
		return a.ExitTime < b.ExitTime
	})
	result.Trades = trades

	s.logger.Debug().
		Int("trades", len(trades)).
		Int("warnings", len(result.Warnings)).
		Str("candidate", candidate.Key()).
		Msg("simulation complete")
	return result, nil
}

// cleanBars returns bars in timestamp order, dropping nil entries and duplicate timestamps.
// The input slice is never modified.
func cleanBars(in []*domain.Bar) []*domain.Bar {
	if len(in) == 0 {
		return nil
	}
	out := make([]*domain.Bar, 0, len(in))
	for _, b := range in {
		if b != nil {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimestampMs < out[j].TimestampMs
	})
	dedup := out[:0]
	for _, b := range out {
		if len(dedup) > 0 && b.TimestampMs == dedup[len(dedup)-1].TimestampMs {
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// mergedTimestamps returns the sorted union of bar timestamps.
func mergedTimestamps(books []*book) []int64 {
	seen := make(map[int64]struct{})
	for _, b := range books {
		for _, bar := range b.signals.Bars {
			seen[bar.TimestampMs] = struct{}{}
		}
	}
	out := make([]int64, 0, len(seen))
	for ts := range seen {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
