// Package strategy compiles a StrategyConfig and a Candidate into executable rules.
package strategy

import (
	"strategy-lab/internal/domain"
)

// Rules is a compiled strategy for one candidate. Safe for concurrent reads.
type Rules struct {
	Config     domain.StrategyConfig
	Candidate  domain.Candidate
	Params     Params
	Costs      CostModel
	EntryOrder string // EntryMarket | EntryLimit | EntryStop
	// OrderTimeoutMs bounds how long a resting entry order waits; 0 = next bar only.
	OrderTimeoutMs int64

	signalMode string
}

// FromConfig validates cfg and resolves the candidate's parameters.
// Any missing field referenced by a rule fails with a *domain.ValidationError.
func FromConfig(cfg domain.StrategyConfig, candidate domain.Candidate, scenario domain.ExecutionScenario) (*Rules, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params, err := resolveParams(&cfg, candidate)
	if err != nil {
		return nil, err
	}

	if scenario.ScenarioID == "" {
		scenario = domain.ScenarioConfigRealistic
	}

	r := &Rules{
		Config:         cfg,
		Candidate:      candidate.Clone(),
		Params:         params,
		Costs:          newCostModel(cfg.OrderTypes, scenario),
		EntryOrder:     entryOrderStyle(cfg.OrderTypes),
		OrderTimeoutMs: cfg.OrderTypes.OrderTimeoutSeconds * 1000,
		signalMode:     cfg.EntryConditions.SignalMode,
	}
	if r.signalMode == "" {
		r.signalMode = domain.SignalModeAll
	}
	return r, nil
}

func entryOrderStyle(o domain.OrderTypes) string {
	switch {
	case o.Enabled(domain.OrderTypeMarket):
		return EntryMarket
	case o.Enabled(domain.OrderTypeLimit):
		return EntryLimit
	default:
		return EntryStop
	}
}

// AllowPartialFills reports whether entries larger than the bar's volume fill partially
// instead of being skipped. Only consulted with volume-based slippage.
func (r *Rules) AllowPartialFills() bool {
	return contains(r.Config.OrderTypes.ExecutionSettings, domain.ExecutionAllowPartialFills)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
