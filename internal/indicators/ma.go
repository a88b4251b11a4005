// Package indicators computes technical indicator series aligned to their input.
// Warm-up positions hold NaN; callers test with Valid.
package indicators

import "math"

// Valid reports whether an indicator value is usable.
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SMA over the last p points.
func SMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	var sum float64
	for i := range x {
		sum += x[i]
		if i >= p {
			sum -= x[i-p]
		}
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(p)
	}
	return out
}

// EMA with smoothing 2/(p+1), seeded with SMA(p) at index p-1.
func EMA(x []float64, p int) []float64 {
	if p <= 0 {
		return nil
	}
	out := make([]float64, len(x))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(x) < p {
		return out
	}
	k := 2.0 / float64(p+1)

	var seed float64
	for i := 0; i < p; i++ {
		seed += x[i]
	}
	out[p-1] = seed / float64(p)
	for i := p; i < len(x); i++ {
		out[i] = (x[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// MeanStd returns the rolling mean and population standard deviation over window p.
func MeanStd(x []float64, p int) (mean, std []float64) {
	if p <= 0 {
		return nil, nil
	}
	n := len(x)
	mean = make([]float64, n)
	std = make([]float64, n)

	var sum, sum2 float64
	for i := 0; i < n; i++ {
		sum += x[i]
		sum2 += x[i] * x[i]
		if i >= p {
			sum -= x[i-p]
			sum2 -= x[i-p] * x[i-p]
		}
		if i < p-1 {
			mean[i] = math.NaN()
			std[i] = math.NaN()
			continue
		}
		m := sum / float64(p)
		v := sum2/float64(p) - m*m
		if v < 0 {
			v = 0
		}
		mean[i] = m
		std[i] = math.Sqrt(v)
	}
	return mean, std
}
