package strategy

import (
	"math"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/indicators"
)

// vote is one indicator's opinion at a bar.
type vote int

const (
	voteNone vote = iota
	voteLong
	voteShort
)

func (v vote) direction() string {
	switch v {
	case voteLong:
		return domain.DirectionLong
	case voteShort:
		return domain.DirectionShort
	default:
		return ""
	}
}

func opposite(direction string) vote {
	if direction == domain.DirectionLong {
		return voteShort
	}
	return voteLong
}

// voteIndicator returns the signal of a single indicator at bar i.
func (r *Rules) voteIndicator(name string, s *Signals, i int) vote {
	b := s.Bars[i]
	switch name {
	case domain.IndicatorRSI:
		v := s.RSI[i]
		if !indicators.Valid(v) {
			return voteNone
		}
		if v < r.Params.RSILower {
			return voteLong
		}
		if v > r.Params.RSIUpper {
			return voteShort
		}
	case domain.IndicatorSMACross:
		if crossedAbove(s.SMAFast, s.SMASlow, i) {
			return voteLong
		}
		if crossedBelow(s.SMAFast, s.SMASlow, i) {
			return voteShort
		}
	case domain.IndicatorEMATrend:
		fast, slow := s.EMAFast[i], s.EMASlow[i]
		if !allValid(fast, slow) {
			return voteNone
		}
		if b.Close > fast && fast > slow {
			return voteLong
		}
		if b.Close < fast && fast < slow {
			return voteShort
		}
	case domain.IndicatorMACD:
		line, sig := s.MACD[i], s.MACDSig[i]
		if !allValid(line, sig) {
			return voteNone
		}
		if line > sig && line > 0 {
			return voteLong
		}
		if line < sig && line < 0 {
			return voteShort
		}
	case domain.IndicatorBollinger:
		upper, lower := s.BBUpper[i], s.BBLower[i]
		if !allValid(upper, lower) || upper == lower {
			return voteNone
		}
		if b.Close < lower {
			return voteLong
		}
		if b.Close > upper {
			return voteShort
		}
	case domain.IndicatorVolumeSpike:
		ma := s.VolumeMA[i]
		if !indicators.Valid(ma) || ma <= 0 || b.Volume <= VolumeSpikeFactor*ma {
			return voteNone
		}
		return barDirection(b)
	}
	return voteNone
}

// votePattern returns the signal of a price action pattern at bar i.
func votePattern(name string, s *Signals, i int) vote {
	if i < 1 {
		return voteNone
	}
	b, prev := s.Bars[i], s.Bars[i-1]
	switch name {
	case domain.PatternBreakout:
		if i < BreakoutLookback {
			return voteNone
		}
		hi, lo := math.Inf(-1), math.Inf(1)
		for _, p := range s.Bars[i-BreakoutLookback : i] {
			hi = math.Max(hi, p.High)
			lo = math.Min(lo, p.Low)
		}
		if b.Close > hi {
			return voteLong
		}
		if b.Close < lo {
			return voteShort
		}
	case domain.PatternEngulfing:
		if prev.Close < prev.Open && b.Close > b.Open && b.Open <= prev.Close && b.Close >= prev.Open {
			return voteLong
		}
		if prev.Close > prev.Open && b.Close < b.Open && b.Open >= prev.Close && b.Close <= prev.Open {
			return voteShort
		}
	case domain.PatternHammer:
		rng := b.High - b.Low
		if rng <= 0 {
			return voteNone
		}
		body := math.Abs(b.Close - b.Open)
		upperWick := b.High - math.Max(b.Open, b.Close)
		lowerWick := math.Min(b.Open, b.Close) - b.Low
		if body <= rng*0.35 && lowerWick >= 2*body && upperWick <= body {
			return voteLong
		}
		if body <= rng*0.35 && upperWick >= 2*body && lowerWick <= body {
			return voteShort
		}
	case domain.PatternInsideBar:
		if b.High < prev.High && b.Low > prev.Low {
			return barDirection(b)
		}
	}
	return voteNone
}

func barDirection(b *domain.Bar) vote {
	switch {
	case b.Close > b.Open:
		return voteLong
	case b.Close < b.Open:
		return voteShort
	default:
		return voteNone
	}
}

// rawVote combines indicator and pattern votes per the signal mode, before the
// entry type filter.
func (r *Rules) rawVote(s *Signals, i int) vote {
	e := r.Config.EntryConditions
	longs, shorts, total := 0, 0, 0

	tally := func(v vote) {
		total++
		switch v {
		case voteLong:
			longs++
		case voteShort:
			shorts++
		}
	}
	for _, name := range e.Indicators {
		tally(r.voteIndicator(name, s, i))
	}
	for _, name := range e.PriceActionPatterns {
		tally(votePattern(name, s, i))
	}

	if r.signalMode == domain.SignalModeAny {
		switch {
		case longs > 0 && shorts == 0:
			return voteLong
		case shorts > 0 && longs == 0:
			return voteShort
		}
		return voteNone
	}

	switch total {
	case 0:
		return voteNone
	case longs:
		return voteLong
	case shorts:
		return voteShort
	}
	return voteNone
}

// EntrySignal returns the direction to open at bar i, or "" for none.
// Applies the entry type and the min volume / min price filters.
func (r *Rules) EntrySignal(s *Signals, i int) string {
	if i < 0 || i >= len(s.Bars) {
		return ""
	}
	b := s.Bars[i]
	e := r.Config.EntryConditions
	if e.MinVolume != nil && b.Volume < *e.MinVolume {
		return ""
	}
	if e.MinPrice != nil && b.Close < *e.MinPrice {
		return ""
	}
	if b.Close <= 0 {
		return ""
	}

	v := r.rawVote(s, i)
	switch e.EntryType {
	case domain.EntryTypeLong:
		if v != voteLong {
			return ""
		}
	case domain.EntryTypeShort:
		if v != voteShort {
			return ""
		}
	}
	return v.direction()
}
