package strategy

import (
	"fmt"

	"strategy-lab/internal/domain"
)

const (
	msPerHour = int64(3_600_000)

	// DefaultCooldownHours applies when a consecutive loss limit is set without a cooldown.
	DefaultCooldownHours = 24.0
)

// Params holds every numeric rule input after candidate overrides are applied.
// Percentages stay in percent units.
type Params struct {
	StopLossPercent        float64
	TakeProfitPercent      float64
	TrailingDistance       float64 // 0 = no trailing stop
	MaxHoldMs              int64   // 0 = unlimited
	PositionSizeMultiplier float64
	PortfolioRiskPercent   float64
	RSILower               float64
	RSIUpper               float64
	BreakEvenTrigger       float64 // 0 = disabled
	PartialExitPercent     float64 // 0 = disabled
	VolatilityMultiplier   float64
	ConsecutiveLossLimit   int   // 0 = disabled
	CooldownMs             int64 // applies after ConsecutiveLossLimit losses
}

// resolveParams overlays candidate values on the config's own values.
func resolveParams(cfg *domain.StrategyConfig, c domain.Candidate) (Params, error) {
	for name := range c {
		if !domain.IsTunable(name) {
			return Params{}, domain.NewValidationError("candidate."+name, "unknown parameter")
		}
	}

	x := cfg.ExitRules
	r := cfg.RiskParameters
	e := cfg.EntryConditions

	pick := func(name string, fallback *float64) (float64, bool) {
		if v, ok := c.Get(name); ok {
			return v, true
		}
		if fallback != nil {
			return *fallback, true
		}
		return 0, false
	}

	var p Params
	var ok bool

	if p.StopLossPercent, ok = pick(domain.ParamStopLossPercent, x.StopLossPercent); !ok {
		return Params{}, domain.Missing("exitRules.stopLossPercent")
	}
	if p.TakeProfitPercent, ok = pick(domain.ParamTakeProfitPercent, x.TakeProfitPercent); !ok {
		return Params{}, domain.Missing("exitRules.takeProfitPercent")
	}
	if p.PortfolioRiskPercent, ok = pick(domain.ParamPortfolioRiskPercent, r.PortfolioRiskPercent); !ok {
		return Params{}, domain.Missing("riskParameters.portfolioRiskPercent")
	}

	needTrailing := x.PrimaryExitType == domain.ExitTypeTrailingStop || x.TrailingMethod != ""
	trailing, hasTrailing := pick(domain.ParamTrailingDistance, x.TrailingDistance)
	if needTrailing && !hasTrailing {
		return Params{}, domain.Missing("exitRules.trailingDistance")
	}
	if needTrailing {
		p.TrailingDistance = trailing
	}

	hours, hasHold := pick(domain.ParamMaxHoldTimeHours, x.MaxHoldTimeHours)
	if x.PrimaryExitType == domain.ExitTypeTimeBased && !hasHold {
		return Params{}, domain.Missing("exitRules.maxHoldTimeHours")
	}
	if hasHold {
		p.MaxHoldMs = int64(hours * float64(msPerHour))
	}

	if x.PrimaryExitType == domain.ExitTypeSignal && len(x.ExitConditions) == 0 {
		return Params{}, domain.NewValidationError("exitRules.exitConditions", "signal exit requires at least one condition")
	}

	if r.PositionSizingMethod == domain.SizingFixed && r.MaxPositionSize <= 0 {
		return Params{}, domain.Missing("riskParameters.maxPositionSize")
	}

	p.PositionSizeMultiplier = 1
	if v, ok := c.Get(domain.ParamPositionSizeMultiplier); ok {
		p.PositionSizeMultiplier = v
	}

	needRSI := e.HasIndicator(domain.IndicatorRSI) || x.HasCondition(domain.ExitConditionRSIExtreme)
	lower, hasLower := pick(domain.ParamRSILower, e.RSILower)
	upper, hasUpper := pick(domain.ParamRSIUpper, e.RSIUpper)
	if needRSI && !hasLower {
		return Params{}, domain.Missing("entryConditions.rsiLower")
	}
	if needRSI && !hasUpper {
		return Params{}, domain.Missing("entryConditions.rsiUpper")
	}
	p.RSILower, p.RSIUpper = lower, upper

	p.BreakEvenTrigger, _ = pick(domain.ParamBreakEvenTrigger, x.BreakEvenTrigger)
	p.PartialExitPercent, _ = pick(domain.ParamPartialExitPercent, x.PartialExitPercent)

	needVol := x.StopLossType == domain.StopLossATR ||
		x.TrailingMethod == domain.TrailingATR ||
		r.PositionSizingMethod == domain.SizingVolatility
	if needVol {
		if r.VolatilityMultiplier == nil {
			return Params{}, domain.Missing("riskParameters.volatilityMultiplier")
		}
		p.VolatilityMultiplier = *r.VolatilityMultiplier
	}

	if r.ConsecutiveLossLimit != nil && *r.ConsecutiveLossLimit > 0 {
		p.ConsecutiveLossLimit = *r.ConsecutiveLossLimit
		cooldown := DefaultCooldownHours
		if r.CooldownPeriodHours != nil {
			cooldown = *r.CooldownPeriodHours
		}
		p.CooldownMs = int64(cooldown * float64(msPerHour))
	}

	if err := p.validate(needRSI); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p Params) validate(checkRSI bool) error {
	if p.StopLossPercent <= 0 || p.StopLossPercent >= 100 {
		return domain.NewValidationError("exitRules.stopLossPercent", fmt.Sprintf("%v must be within (0, 100)", p.StopLossPercent))
	}
	if p.TakeProfitPercent <= 0 {
		return domain.NewValidationError("exitRules.takeProfitPercent", fmt.Sprintf("%v must be > 0", p.TakeProfitPercent))
	}
	if p.TrailingDistance < 0 {
		return domain.NewValidationError("exitRules.trailingDistance", "must not be negative")
	}
	if p.MaxHoldMs < 0 {
		return domain.NewValidationError("exitRules.maxHoldTimeHours", "must not be negative")
	}
	if p.PositionSizeMultiplier <= 0 {
		return domain.NewValidationError("candidate.positionSizeMultiplier", "must be > 0")
	}
	if p.PortfolioRiskPercent <= 0 || p.PortfolioRiskPercent > 100 {
		return domain.NewValidationError("riskParameters.portfolioRiskPercent", "must be within (0, 100]")
	}
	if p.PartialExitPercent < 0 || p.PartialExitPercent >= 100 {
		return domain.NewValidationError("exitRules.partialExitPercent", "must be within [0, 100)")
	}
	if p.BreakEvenTrigger < 0 {
		return domain.NewValidationError("exitRules.breakEvenTrigger", "must not be negative")
	}
	if p.VolatilityMultiplier < 0 {
		return domain.NewValidationError("riskParameters.volatilityMultiplier", "must not be negative")
	}
	if checkRSI {
		if p.RSILower < 0 || p.RSIUpper > 100 || p.RSILower >= p.RSIUpper {
			return domain.NewValidationError("entryConditions.rsiLower", fmt.Sprintf("need 0 <= lower (%v) < upper (%v) <= 100", p.RSILower, p.RSIUpper))
		}
	}
	return nil
}
