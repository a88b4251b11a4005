package strategy

import (
	"math"

	"strategy-lab/internal/domain"
)

// Entry order styles derived from the enabled order types.
const (
	EntryMarket = "market"
	EntryLimit  = "limit"
	EntryStop   = "stop"
)

// CostModel turns signal prices into fills and charges commission.
type CostModel struct {
	MaxSlippagePercent   float64
	VolumeBased          bool
	CommissionPercent    float64 // per side, of notional
	SlippageMultiplier   float64
	CommissionMultiplier float64
}

func newCostModel(o domain.OrderTypes, scenario domain.ExecutionScenario) CostModel {
	m := CostModel{
		VolumeBased:          o.HasSlippageSetting(domain.SlippageVolumeBased),
		CommissionPercent:    o.CommissionPercent,
		SlippageMultiplier:   scenario.SlippageMultiplier,
		CommissionMultiplier: scenario.CommissionMultiplier,
	}
	if o.MaxSlippagePercent != nil {
		m.MaxSlippagePercent = *o.MaxSlippagePercent
	}
	return m
}

// SlippagePercent returns the one-sided slippage for an order of the given notional.
// Fixed slippage is half the configured maximum; volume-based slippage scales the
// maximum by the order's share of the bar's traded notional.
func (m CostModel) SlippagePercent(notional float64, b *domain.Bar) float64 {
	var pct float64
	if m.VolumeBased {
		barNotional := b.Close * b.Volume
		share := 1.0
		if barNotional > 0 {
			share = math.Min(1, notional/barNotional)
		}
		pct = m.MaxSlippagePercent * share
	} else {
		pct = m.MaxSlippagePercent / 2
	}
	return pct * m.SlippageMultiplier
}

// EntryFill applies adverse slippage to an entry.
func (m CostModel) EntryFill(price float64, direction string, slippagePct float64) float64 {
	return price * (1 + domain.DirectionSign(direction)*slippagePct/100)
}

// ExitFill applies adverse slippage to an exit.
func (m CostModel) ExitFill(price float64, direction string, slippagePct float64) float64 {
	return price * (1 - domain.DirectionSign(direction)*slippagePct/100)
}

// Commission returns the commission charged on a fill.
func (m CostModel) Commission(notional float64) float64 {
	return math.Abs(notional) * m.CommissionPercent / 100 * m.CommissionMultiplier
}

// SizePosition returns the quantity to open at price, or 0 when the order should be skipped.
// atr is the current ATR (0 when unavailable).
func (r *Rules) SizePosition(equity, price, atr float64) float64 {
	if price <= 0 || equity <= 0 {
		return 0
	}
	rp := r.Config.RiskParameters
	p := r.Params

	var qty float64
	switch rp.PositionSizingMethod {
	case domain.SizingFixed:
		qty = rp.MaxPositionSize * p.PositionSizeMultiplier / price
	case domain.SizingPercentEquity:
		qty = equity * p.PortfolioRiskPercent / 100 * p.PositionSizeMultiplier / price
	case domain.SizingRiskBased:
		perUnit := price * p.StopLossPercent / 100
		if perUnit <= 0 {
			return 0
		}
		qty = equity * p.PortfolioRiskPercent / 100 * p.PositionSizeMultiplier / perUnit
	case domain.SizingVolatility:
		perUnit := atr * p.VolatilityMultiplier
		if perUnit <= 0 {
			return 0
		}
		qty = equity * p.PortfolioRiskPercent / 100 * p.PositionSizeMultiplier / perUnit
	}

	notional := qty * price
	if rp.MaxPositionSize > 0 && notional > rp.MaxPositionSize {
		notional = rp.MaxPositionSize
	}
	o := r.Config.OrderTypes
	if o.MaxOrderSize > 0 && notional > o.MaxOrderSize {
		notional = o.MaxOrderSize
	}
	if notional <= 0 || notional < o.MinOrderSize {
		return 0
	}
	return notional / price
}
