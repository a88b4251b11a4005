package metrics

import "strategy-lab/internal/domain"

// EquityCurve walks trades in close order, accumulating pnl onto initialCapital.
// The first point is (t0, initialCapital); each trade close adds one point.
// When t0 is later than the first close it is moved back so times never decrease.
func EquityCurve(trades []*domain.SimulatedTrade, initialCapital float64, t0 int64) []domain.EquityPoint {
	sorted := Chronological(trades)
	if len(sorted) > 0 && sorted[0].EntryTime < t0 {
		t0 = sorted[0].EntryTime
	}

	curve := make([]domain.EquityPoint, 0, len(sorted)+1)
	curve = append(curve, domain.EquityPoint{TimeMs: t0, Value: initialCapital})

	equity := initialCapital
	for _, t := range sorted {
		equity += t.PnL
		curve = append(curve, domain.EquityPoint{TimeMs: t.ExitTime, Value: equity})
	}
	return curve
}
