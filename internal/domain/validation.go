package domain

import (
	"errors"
	"fmt"
)

// ErrValidation matches every ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a missing or invalid field. It aborts the run it belongs to.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Missing is shorthand for a required field that is absent.
func Missing(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "required"}
}

// SectionStatus reports which builder sections are complete.
type SectionStatus struct {
	MarketSelection bool `json:"marketSelection"`
	EntryConditions bool `json:"entryConditions"`
	ExitRules       bool `json:"exitRules"`
	RiskParameters  bool `json:"riskParameters"`
	OrderTypes      bool `json:"orderTypes"`
}

// Complete reports whether all sections are complete.
func (s SectionStatus) Complete() bool {
	return s.MarketSelection && s.EntryConditions && s.ExitRules && s.RiskParameters && s.OrderTypes
}

// SectionStatus evaluates each section's required fields.
func (c *StrategyConfig) SectionStatus() SectionStatus {
	return SectionStatus{
		MarketSelection: c.validateMarket() == nil,
		EntryConditions: c.validateEntry() == nil,
		ExitRules:       c.validateExit() == nil,
		RiskParameters:  c.validateRisk() == nil,
		OrderTypes:      c.validateOrders() == nil,
	}
}

// Validate returns the first ValidationError that makes the config not runnable.
// Sections are checked in builder order: market, entry, exit, risk, orders.
func (c *StrategyConfig) Validate() error {
	checks := []func() *ValidationError{
		c.validateMarket,
		c.validateEntry,
		c.validateExit,
		c.validateRisk,
		c.validateOrders,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// IsRunnable reports whether Validate succeeds.
func (c *StrategyConfig) IsRunnable() bool {
	return c.Validate() == nil
}

func (c *StrategyConfig) validateMarket() *ValidationError {
	m := c.MarketSelection
	if m.AssetClass == "" {
		return Missing("marketSelection.assetClass")
	}
	if m.PrimaryTimeframe == "" {
		return Missing("marketSelection.primaryTimeframe")
	}
	if len(m.Symbols) == 0 {
		return NewValidationError("marketSelection.symbols", "at least one symbol required")
	}
	seen := make(map[string]struct{}, len(m.Symbols))
	for _, s := range m.Symbols {
		if s == "" {
			return NewValidationError("marketSelection.symbols", "empty symbol")
		}
		if _, dup := seen[s]; dup {
			return NewValidationError("marketSelection.symbols", fmt.Sprintf("duplicate symbol %q", s))
		}
		seen[s] = struct{}{}
	}
	return nil
}

func (c *StrategyConfig) validateEntry() *ValidationError {
	e := c.EntryConditions
	switch e.EntryType {
	case "":
		return Missing("entryConditions.entryType")
	case EntryTypeLong, EntryTypeShort, EntryTypeLongShort:
	default:
		return NewValidationError("entryConditions.entryType", fmt.Sprintf("unknown value %q", e.EntryType))
	}
	if len(e.Indicators) == 0 {
		return NewValidationError("entryConditions.indicators", "at least one indicator required")
	}
	for _, ind := range e.Indicators {
		switch ind {
		case IndicatorRSI, IndicatorSMACross, IndicatorEMATrend, IndicatorMACD, IndicatorBollinger, IndicatorVolumeSpike:
		default:
			return NewValidationError("entryConditions.indicators", fmt.Sprintf("unknown indicator %q", ind))
		}
	}
	for _, p := range e.PriceActionPatterns {
		switch p {
		case PatternBreakout, PatternEngulfing, PatternHammer, PatternInsideBar:
		default:
			return NewValidationError("entryConditions.priceActionPatterns", fmt.Sprintf("unknown pattern %q", p))
		}
	}
	switch e.SignalMode {
	case "", SignalModeAll, SignalModeAny:
	default:
		return NewValidationError("entryConditions.signalMode", fmt.Sprintf("unknown value %q", e.SignalMode))
	}
	return nil
}

func (c *StrategyConfig) validateExit() *ValidationError {
	x := c.ExitRules
	switch x.PrimaryExitType {
	case "":
		return Missing("exitRules.primaryExitType")
	case ExitTypeTakeProfit, ExitTypeTrailingStop, ExitTypeTimeBased, ExitTypeSignal:
	default:
		return NewValidationError("exitRules.primaryExitType", fmt.Sprintf("unknown value %q", x.PrimaryExitType))
	}
	switch x.StopLossType {
	case "":
		return Missing("exitRules.stopLossType")
	case StopLossFixed, StopLossATR, StopLossTrailing:
	default:
		return NewValidationError("exitRules.stopLossType", fmt.Sprintf("unknown value %q", x.StopLossType))
	}
	if x.TakeProfitPercent == nil {
		return Missing("exitRules.takeProfitPercent")
	}
	if x.StopLossPercent == nil {
		return Missing("exitRules.stopLossPercent")
	}
	switch x.TrailingMethod {
	case "", TrailingPercent, TrailingATR:
	default:
		return NewValidationError("exitRules.trailingMethod", fmt.Sprintf("unknown value %q", x.TrailingMethod))
	}
	for _, cond := range x.ExitConditions {
		switch cond {
		case ExitConditionRSIExtreme, ExitConditionMACross, ExitConditionOppositeSignal:
		default:
			return NewValidationError("exitRules.exitConditions", fmt.Sprintf("unknown condition %q", cond))
		}
	}
	return nil
}

func (c *StrategyConfig) validateRisk() *ValidationError {
	r := c.RiskParameters
	switch r.PositionSizingMethod {
	case "":
		return Missing("riskParameters.positionSizingMethod")
	case SizingFixed, SizingPercentEquity, SizingRiskBased, SizingVolatility:
	default:
		return NewValidationError("riskParameters.positionSizingMethod", fmt.Sprintf("unknown value %q", r.PositionSizingMethod))
	}
	if r.PortfolioRiskPercent == nil {
		return Missing("riskParameters.portfolioRiskPercent")
	}
	if r.MaxDrawdownPercent == nil {
		return Missing("riskParameters.maxDrawdownPercent")
	}
	if r.MaxPositionSize < 0 {
		return NewValidationError("riskParameters.maxPositionSize", "must not be negative")
	}
	if r.MaxPositions < 0 {
		return NewValidationError("riskParameters.maxPositions", "must not be negative")
	}
	for _, m := range r.RiskMetrics {
		switch m {
		case RiskMetricSharpe, RiskMetricSortino, RiskMetricMaxDrawdown, RiskMetricVaR, RiskMetricExpectancy:
		default:
			return NewValidationError("riskParameters.riskMetrics", fmt.Sprintf("unknown metric %q", m))
		}
	}
	return nil
}

func (c *StrategyConfig) validateOrders() *ValidationError {
	o := c.OrderTypes
	if len(o.EnabledOrderTypes) == 0 {
		return NewValidationError("orderTypes.enabledOrderTypes", "at least one order type required")
	}
	for _, t := range o.EnabledOrderTypes {
		switch t {
		case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit, OrderTypeTrailingStop:
		default:
			return NewValidationError("orderTypes.enabledOrderTypes", fmt.Sprintf("unknown order type %q", t))
		}
	}
	if o.MaxSlippagePercent == nil {
		return Missing("orderTypes.maxSlippagePercent")
	}
	if *o.MaxSlippagePercent < 0 {
		return NewValidationError("orderTypes.maxSlippagePercent", "must not be negative")
	}
	for _, s := range o.SlippageSettings {
		switch s {
		case SlippageFixed, SlippageVolumeBased:
		default:
			return NewValidationError("orderTypes.slippageSettings", fmt.Sprintf("unknown value %q", s))
		}
	}
	for _, s := range o.ExecutionSettings {
		switch s {
		case ExecutionAllowPartialFills, ExecutionReduceOnlyExits:
		default:
			return NewValidationError("orderTypes.executionSettings", fmt.Sprintf("unknown value %q", s))
		}
	}
	if o.MaxOrderSize > 0 && o.MinOrderSize > o.MaxOrderSize {
		return NewValidationError("orderTypes.minOrderSize", "exceeds maxOrderSize")
	}
	if o.CommissionPercent < 0 {
		return NewValidationError("orderTypes.commissionPercent", "must not be negative")
	}
	return nil
}
