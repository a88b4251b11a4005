// Package marketdata loads price snapshots for backtests from a bar store.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/storage"
)

// Defaults for loader throttling.
const (
	DefaultRequestsPerSecond = 20
	DefaultBurst             = 5
	DefaultBreakerFailures   = 3
	DefaultBreakerTimeout    = 30 * time.Second
)

// ErrUnavailable is returned while the bar store circuit is open.
var ErrUnavailable = errors.New("market data unavailable")

// Options configures a Loader. Zero values use the defaults above.
type Options struct {
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
	Logger            *zerolog.Logger
	Metrics           *observability.Metrics
}

// Loader reads bar ranges one symbol at a time through a rate limiter and a
// circuit breaker.
type Loader struct {
	store   storage.BarStore
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a loader over store.
func NewLoader(store storage.BarStore, opts Options) *Loader {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultBurst
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = DefaultBreakerFailures
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = DefaultBreakerTimeout
	}

	l := &Loader{
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		logger:  zerolog.Nop(),
		metrics: opts.Metrics,
	}
	if opts.Logger != nil {
		l.logger = opts.Logger.With().Str("component", "marketdata").Logger()
	}

	failures := opts.BreakerFailures
	l.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "bar-store",
		Timeout: opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit state changed")
			l.metrics.SetBreakerOpen(to == gobreaker.StateOpen)
		},
	})
	return l
}

// Snapshot loads bars in [from, to] for each symbol. Symbols with no bars are
// left out of the series; the simulator reports them as data gaps.
func (l *Loader) Snapshot(ctx context.Context, symbols []string, timeframe string, from, to int64) (domain.PriceSeries, error) {
	if from > to {
		return nil, domain.NewValidationError("range", fmt.Sprintf("from %d is after to %d", from, to))
	}

	series := make(domain.PriceSeries, len(symbols))
	for _, symbol := range symbols {
		if _, done := series[symbol]; done {
			continue
		}
		bars, err := l.load(ctx, symbol, timeframe, from, to)
		if err != nil {
			return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
		}
		if len(bars) == 0 {
			l.metrics.RecordMarketDataRequest("empty")
			l.logger.Debug().Str("symbol", symbol).Str("timeframe", timeframe).Msg("no bars in range")
			continue
		}
		l.metrics.RecordMarketDataRequest("ok")
		series[symbol] = bars
	}

	l.logger.Info().
		Int("symbols", len(series)).
		Int("requested", len(symbols)).
		Int("bars", series.TotalBars()).
		Msg("snapshot loaded")
	return series, nil
}

func (l *Loader) load(ctx context.Context, symbol, timeframe string, from, to int64) ([]*domain.Bar, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := l.breaker.Execute(func() (interface{}, error) {
		return l.store.GetRange(ctx, symbol, timeframe, from, to)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			l.metrics.RecordMarketDataRequest("rejected")
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		l.metrics.RecordMarketDataRequest("error")
		return nil, err
	}
	return res.([]*domain.Bar), nil
}
