package indicators

import "math"

// RSI computes Wilder's relative strength index. out[i] is valid from i = period.
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		gain, loss := change(closes[i-1], closes[i])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	alpha := 1.0 / float64(period)
	for i := period + 1; i < len(closes); i++ {
		gain, loss := change(closes[i-1], closes[i])
		avgGain = avgGain*(1-alpha) + gain*alpha
		avgLoss = avgLoss*(1-alpha) + loss*alpha
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func change(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line (EMA fast - EMA slow), its signal EMA and the histogram.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	n := len(closes)
	line = nanSlice(n)
	sig = nanSlice(n)
	hist = nanSlice(n)

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	start := -1
	for i := 0; i < n; i++ {
		if Valid(fastEMA[i]) && Valid(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
			if start < 0 {
				start = i
			}
		}
	}
	if start < 0 {
		return line, sig, hist
	}

	sigTail := EMA(line[start:], signal)
	for i, v := range sigTail {
		sig[start+i] = v
		if Valid(v) {
			hist[start+i] = line[start+i] - v
		}
	}
	return line, sig, hist
}

// Bollinger returns middle, upper and lower bands at k standard deviations.
func Bollinger(closes []float64, period int, k float64) (mid, upper, lower []float64) {
	mean, std := MeanStd(closes, period)
	n := len(closes)
	upper = make([]float64, n)
	lower = make([]float64, n)
	for i := 0; i < n; i++ {
		upper[i] = mean[i] + k*std[i]
		lower[i] = mean[i] - k*std[i]
	}
	return mean, upper, lower
}

// ATR computes Wilder's average true range. out[i] is valid from i = period.
func ATR(high, low, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if period <= 0 || n < period+1 || len(high) != n || len(low) != n {
		return out
	}

	tr := func(i int) float64 {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - closes[i-1])
		lc := math.Abs(low[i] - closes[i-1])
		return math.Max(hl, math.Max(hc, lc))
	}

	var atr float64
	for i := 1; i <= period; i++ {
		atr += tr(i)
	}
	atr /= float64(period)
	out[period] = atr

	alpha := 1.0 / float64(period)
	for i := period + 1; i < n; i++ {
		atr = atr*(1-alpha) + tr(i)*alpha
		out[i] = atr
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
