package indicators

import "math"

// Returns computes close-to-close simple returns; out[0] is NaN.
func Returns(closes []float64) []float64 {
	out := nanSlice(len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out[i] = 0
			continue
		}
		out[i] = closes[i]/closes[i-1] - 1
	}
	return out
}

// Pearson returns the correlation of two equal-length samples.
// Returns 0 when either sample has no variance or lengths differ.
func Pearson(a, b []float64) float64 {
	n := len(a)
	if n < 2 || n != len(b) {
		return 0
	}
	var ma, mb float64
	for i := 0; i < n; i++ {
		ma += a[i]
		mb += b[i]
	}
	ma /= float64(n)
	mb /= float64(n)

	var cov, va, vb float64
	for i := 0; i < n; i++ {
		da := a[i] - ma
		db := b[i] - mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}
