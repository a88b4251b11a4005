package strategy

import (
	"strategy-lab/internal/domain"
	"strategy-lab/internal/indicators"
)

// Position is the mutable state of an open position, owned by the simulator.
type Position struct {
	Symbol     string
	Direction  string
	EntryPrice float64 // fill price including slippage
	EntryTime  int64
	Quantity   float64 // remaining quantity
	EntryATR   float64 // ATR at entry, 0 when unavailable

	// Best price seen on closed bars since entry (high for long, low for short).
	Peak float64

	BreakEvenArmed bool
	PartialDone    bool
}

// ExitDecision is the outcome of evaluating exit rules on one bar.
type ExitDecision struct {
	Reason string
	Price  float64 // signal price before exit slippage
	Limit  bool    // filled as a resting limit order; no slippage
	// Fraction of the remaining quantity to close, in (0, 1].
	Fraction float64
}

// Partial reports whether the decision leaves the position open.
func (d *ExitDecision) Partial() bool {
	return d.Fraction < 1
}

func (r *Rules) sign(direction string) float64 {
	return domain.DirectionSign(direction)
}

// favorable reports whether a is at or beyond b in the position's favor.
func favorable(direction string, a, b float64) bool {
	if direction == domain.DirectionShort {
		return a <= b
	}
	return a >= b
}

// StopLevel returns the binding protective stop and its exit reason.
// Levels are derived from state as of the previous closed bar.
func (r *Rules) StopLevel(p *Position) (float64, string) {
	sgn := r.sign(p.Direction)
	x := r.Config.ExitRules

	var stop float64
	switch x.StopLossType {
	case domain.StopLossATR:
		dist := p.EntryATR * r.Params.VolatilityMultiplier
		if dist <= 0 {
			dist = p.EntryPrice * r.Params.StopLossPercent / 100
		}
		stop = p.EntryPrice - sgn*dist
	case domain.StopLossTrailing:
		stop = p.Peak * (1 - sgn*r.Params.StopLossPercent/100)
	default:
		stop = p.EntryPrice * (1 - sgn*r.Params.StopLossPercent/100)
	}
	level, reason := stop, domain.ExitReasonStopLoss

	tighter := func(candidate float64) bool {
		if p.Direction == domain.DirectionShort {
			return candidate < level
		}
		return candidate > level
	}

	if p.BreakEvenArmed && tighter(p.EntryPrice) {
		level, reason = p.EntryPrice, domain.ExitReasonBreakEven
	}

	if r.Params.TrailingDistance > 0 {
		var dist float64
		if x.TrailingMethod == domain.TrailingATR {
			dist = p.EntryATR * r.Params.TrailingDistance
		} else {
			dist = p.Peak * r.Params.TrailingDistance / 100
		}
		if dist > 0 {
			trail := p.Peak - sgn*dist
			if tighter(trail) {
				level, reason = trail, domain.ExitReasonTrailingStop
			}
		}
	}
	return level, reason
}

// TakeProfitLevel returns the full take-profit price.
func (r *Rules) TakeProfitLevel(p *Position) float64 {
	return p.EntryPrice * (1 + r.sign(p.Direction)*r.Params.TakeProfitPercent/100)
}

// PartialExitLevel returns the scale-out price at half the take-profit distance.
func (r *Rules) PartialExitLevel(p *Position) float64 {
	return p.EntryPrice * (1 + r.sign(p.Direction)*r.Params.TakeProfitPercent/200)
}

// CheckExit evaluates exit rules on bar i for an open position.
// Precedence: stop (including break-even and trailing), take profit, partial exit,
// max hold time, exit conditions. Returns nil when the position stays open.
func (r *Rules) CheckExit(p *Position, s *Signals, i int) *ExitDecision {
	b := s.Bars[i]
	long := p.Direction != domain.DirectionShort

	// Stop first: when stop and target are both inside the bar, the stop wins.
	stop, reason := r.StopLevel(p)
	if long {
		if b.Open <= stop {
			return &ExitDecision{Reason: reason, Price: b.Open, Fraction: 1}
		}
		if b.Low <= stop {
			return &ExitDecision{Reason: reason, Price: stop, Fraction: 1}
		}
	} else {
		if b.Open >= stop {
			return &ExitDecision{Reason: reason, Price: b.Open, Fraction: 1}
		}
		if b.High >= stop {
			return &ExitDecision{Reason: reason, Price: stop, Fraction: 1}
		}
	}

	best := b.High
	if !long {
		best = b.Low
	}

	tp := r.TakeProfitLevel(p)
	if favorable(p.Direction, best, tp) {
		return &ExitDecision{Reason: domain.ExitReasonTakeProfit, Price: tp, Limit: true, Fraction: 1}
	}

	if r.Params.PartialExitPercent > 0 && !p.PartialDone {
		level := r.PartialExitLevel(p)
		if favorable(p.Direction, best, level) {
			return &ExitDecision{
				Reason:   domain.ExitReasonPartialExit,
				Price:    level,
				Limit:    true,
				Fraction: r.Params.PartialExitPercent / 100,
			}
		}
	}

	if r.Params.MaxHoldMs > 0 && b.TimestampMs-p.EntryTime >= r.Params.MaxHoldMs {
		return &ExitDecision{Reason: domain.ExitReasonMaxHoldTime, Price: b.Close, Fraction: 1}
	}

	if r.exitConditionMet(p, s, i) {
		return &ExitDecision{Reason: domain.ExitReasonExitSignal, Price: b.Close, Fraction: 1}
	}
	return nil
}

// Advance updates trailing state with bar i after exits were evaluated.
func (r *Rules) Advance(p *Position, b *domain.Bar) {
	if p.Direction == domain.DirectionShort {
		if b.Low < p.Peak {
			p.Peak = b.Low
		}
	} else if b.High > p.Peak {
		p.Peak = b.High
	}

	if r.Params.BreakEvenTrigger > 0 && !p.BreakEvenArmed && p.EntryPrice > 0 {
		move := r.sign(p.Direction) * (p.Peak - p.EntryPrice) / p.EntryPrice * 100
		if move >= r.Params.BreakEvenTrigger {
			p.BreakEvenArmed = true
		}
	}
}

func (r *Rules) exitConditionMet(p *Position, s *Signals, i int) bool {
	long := p.Direction != domain.DirectionShort
	for _, cond := range r.Config.ExitRules.ExitConditions {
		switch cond {
		case domain.ExitConditionRSIExtreme:
			v := s.RSI[i]
			if !indicators.Valid(v) {
				continue
			}
			if long && v > r.Params.RSIUpper {
				return true
			}
			if !long && v < r.Params.RSILower {
				return true
			}
		case domain.ExitConditionMACross:
			if long && crossedBelow(s.SMAFast, s.SMASlow, i) {
				return true
			}
			if !long && crossedAbove(s.SMAFast, s.SMASlow, i) {
				return true
			}
		case domain.ExitConditionOppositeSignal:
			if r.rawVote(s, i) == opposite(p.Direction) {
				return true
			}
		}
	}
	return false
}
