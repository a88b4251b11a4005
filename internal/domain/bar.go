package domain

// Bar is one OHLCV candle for a symbol.
// Corresponds to the bars table in ClickHouse.
type Bar struct {
	Symbol      string  // instrument symbol
	Timeframe   string  // e.g. "1h"; empty when unknown
	TimestampMs int64   // bar open time, Unix milliseconds
	Open        float64 // open price
	High        float64 // high price
	Low         float64 // low price
	Close       float64 // close price
	Volume      float64 // traded volume in base units
}

// PriceSeries is an in-memory snapshot of bars per symbol.
// Each slice is sorted by TimestampMs ascending.
type PriceSeries map[string][]*Bar

// TotalBars returns the number of bars across all symbols.
func (s PriceSeries) TotalBars() int {
	n := 0
	for _, bars := range s {
		n += len(bars)
	}
	return n
}

// FirstTimestamp returns the earliest bar timestamp, or 0 when the series is empty.
func (s PriceSeries) FirstTimestamp() int64 {
	var first int64
	found := false
	for _, bars := range s {
		if len(bars) == 0 {
			continue
		}
		if !found || bars[0].TimestampMs < first {
			first = bars[0].TimestampMs
			found = true
		}
	}
	return first
}

// Timeframe durations in milliseconds.
var timeframeMs = map[string]int64{
	"1m":  60_000,
	"5m":  300_000,
	"15m": 900_000,
	"1h":  3_600_000,
	"4h":  14_400_000,
	"1d":  86_400_000,
}

// TimeframeMs returns the duration of a timeframe in milliseconds and whether it is known.
func TimeframeMs(tf string) (int64, bool) {
	ms, ok := timeframeMs[tf]
	return ms, ok
}
