package marketdata

import (
	"math"
	"math/rand"

	"strategy-lab/internal/domain"
)

// SyntheticOptions describes a generated random-walk series.
type SyntheticOptions struct {
	Symbols    []string
	Timeframe  string  // defaults to "1h"
	Bars       int     // bars per symbol
	StartMs    int64   // open time of the first bar
	StartPrice float64 // defaults to 100
	Drift      float64 // mean log return per bar
	Volatility float64 // stddev of log return per bar; defaults to 0.02
	BaseVolume float64 // defaults to 1000
	Seed       int64
}

// Synthetic generates deterministic OHLCV bars: the same options always yield
// the same series. Each symbol gets its own stream derived from Seed.
func Synthetic(opts SyntheticOptions) domain.PriceSeries {
	if opts.Timeframe == "" {
		opts.Timeframe = "1h"
	}
	if opts.StartPrice <= 0 {
		opts.StartPrice = 100
	}
	if opts.Volatility <= 0 {
		opts.Volatility = 0.02
	}
	if opts.BaseVolume <= 0 {
		opts.BaseVolume = 1000
	}
	step, ok := domain.TimeframeMs(opts.Timeframe)
	if !ok {
		step = 3_600_000
	}

	series := make(domain.PriceSeries, len(opts.Symbols))
	for i, symbol := range opts.Symbols {
		rng := rand.New(rand.NewSource(opts.Seed + int64(i)*7919)) // #nosec G404 -- reproducible test data
		bars := make([]*domain.Bar, opts.Bars)
		price := opts.StartPrice
		for j := 0; j < opts.Bars; j++ {
			open := price
			price *= math.Exp(opts.Drift + rng.NormFloat64()*opts.Volatility)
			wick := opts.Volatility / 2
			bars[j] = &domain.Bar{
				Symbol:      symbol,
				Timeframe:   opts.Timeframe,
				TimestampMs: opts.StartMs + int64(j)*step,
				Open:        open,
				High:        math.Max(open, price) * (1 + rng.Float64()*wick),
				Low:         math.Min(open, price) * (1 - rng.Float64()*wick),
				Close:       price,
				Volume:      opts.BaseVolume * (0.5 + rng.Float64()),
			}
		}
		series[symbol] = bars
	}
	return series
}

// Flatten returns all bars of a series, symbol by symbol, for bulk inserts.
func Flatten(series domain.PriceSeries, symbols []string) []*domain.Bar {
	var out []*domain.Bar
	for _, s := range symbols {
		out = append(out, series[s]...)
	}
	return out
}
