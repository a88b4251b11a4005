package strategy

import (
	"strategy-lab/internal/domain"
	"strategy-lab/internal/indicators"
)

// Indicator lookbacks.
const (
	SMAFastPeriod     = 10
	SMASlowPeriod     = 30
	EMAFastPeriod     = 20
	EMASlowPeriod     = 50
	RSIPeriod         = 14
	MACDFast          = 12
	MACDSlow          = 26
	MACDSignal        = 9
	BollingerPeriod   = 20
	BollingerK        = 2.0
	ATRPeriod         = 14
	VolumePeriod      = 20
	VolumeSpikeFactor = 1.5
	BreakoutLookback  = 20
	CorrelationWindow = 20
)

// Signals holds indicator series for one symbol, aligned to its bars.
type Signals struct {
	Bars []*domain.Bar

	Closes   []float64
	SMAFast  []float64
	SMASlow  []float64
	EMAFast  []float64
	EMASlow  []float64
	RSI      []float64
	MACD     []float64
	MACDSig  []float64
	BBUpper  []float64
	BBLower  []float64
	ATR      []float64
	VolumeMA []float64
	Returns  []float64
}

// ComputeSignals precomputes every indicator for a chronological bar slice.
func ComputeSignals(bars []*domain.Bar) *Signals {
	n := len(bars)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		closes[i] = b.Close
		highs[i] = b.High
		lows[i] = b.Low
		volumes[i] = b.Volume
	}

	s := &Signals{Bars: bars, Closes: closes}
	s.SMAFast = indicators.SMA(closes, SMAFastPeriod)
	s.SMASlow = indicators.SMA(closes, SMASlowPeriod)
	s.EMAFast = indicators.EMA(closes, EMAFastPeriod)
	s.EMASlow = indicators.EMA(closes, EMASlowPeriod)
	s.RSI = indicators.RSI(closes, RSIPeriod)
	s.MACD, s.MACDSig, _ = indicators.MACD(closes, MACDFast, MACDSlow, MACDSignal)
	_, s.BBUpper, s.BBLower = indicators.Bollinger(closes, BollingerPeriod, BollingerK)
	s.ATR = indicators.ATR(highs, lows, closes, ATRPeriod)
	s.VolumeMA = indicators.SMA(volumes, VolumePeriod)
	s.Returns = indicators.Returns(closes)
	return s
}

// ATRAt returns the ATR at i, or 0 during warm-up.
func (s *Signals) ATRAt(i int) float64 {
	if i < 0 || i >= len(s.ATR) || !indicators.Valid(s.ATR[i]) {
		return 0
	}
	return s.ATR[i]
}

// ReturnsWindow returns up to n close-to-close returns ending at i.
func (s *Signals) ReturnsWindow(i, n int) []float64 {
	start := i - n + 1
	if start < 1 {
		start = 1
	}
	if i < start {
		return nil
	}
	return s.Returns[start : i+1]
}

// crossedAbove reports a at i crossed above b between i-1 and i.
func crossedAbove(a, b []float64, i int) bool {
	if i < 1 || !allValid(a[i-1], a[i], b[i-1], b[i]) {
		return false
	}
	return a[i-1] <= b[i-1] && a[i] > b[i]
}

func crossedBelow(a, b []float64, i int) bool {
	if i < 1 || !allValid(a[i-1], a[i], b[i-1], b[i]) {
		return false
	}
	return a[i-1] >= b[i-1] && a[i] < b[i]
}

func allValid(vs ...float64) bool {
	for _, v := range vs {
		if !indicators.Valid(v) {
			return false
		}
	}
	return true
}
