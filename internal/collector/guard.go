package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"StopHunter/internal/model"
)

// GuardedFetcher wraps a Fetcher with a token-bucket rate limit and a
// circuit breaker. Empty-data answers do not count as breaker failures.
type GuardedFetcher struct {
	inner   Fetcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	observe func(source string, state gobreaker.State)
}

// NewGuardedFetcher allows rps requests per second with the given burst.
// rps <= 0 disables rate limiting.
func NewGuardedFetcher(inner Fetcher, rps float64, burst int) *GuardedFetcher {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	st := gobreaker.Settings{
		Name:     inner.Name(),
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.25
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDataUnavailable) || errors.Is(err, context.Canceled)
		},
	}
	g := &GuardedFetcher{
		inner:   inner,
		limiter: rate.NewLimiter(limit, burst),
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("component", "collector").Str("source", name).
			Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		if g.observe != nil {
			g.observe(name, to)
		}
	}
	g.breaker = gobreaker.NewCircuitBreaker(st)
	return g
}

// Observe reports the current breaker state to fn and every later change.
// Call it before the fetcher is shared.
func (g *GuardedFetcher) Observe(fn func(source string, state gobreaker.State)) {
	g.observe = fn
	fn(g.Name(), g.State())
}

func (g *GuardedFetcher) Name() string { return g.inner.Name() }

// State returns the current breaker state.
func (g *GuardedFetcher) State() gobreaker.State { return g.breaker.State() }

func (g *GuardedFetcher) Fetch(ctx context.Context, symbol, period, interval string) (*model.BarSeries, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.inner.Fetch(ctx, symbol, period, interval)
	})
	if err != nil {
		return nil, err
	}
	return out.(*model.BarSeries), nil
}
