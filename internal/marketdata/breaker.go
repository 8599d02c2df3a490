package marketdata

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mfleur/polyleg/internal/chain"
	"github.com/mfleur/polyleg/internal/models"
)

// CircuitBreakerProvider wraps a Provider with circuit breaker functionality
// so a flapping upstream stops receiving calls for a cool-down period.
type CircuitBreakerProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
}

var _ Provider = (*CircuitBreakerProvider)(nil)

// BreakerSettings configures circuit breaker behavior.
type BreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerProvider wraps provider with sensible defaults.
func NewCircuitBreakerProvider(provider Provider, logger *log.Logger) *CircuitBreakerProvider {
	return NewCircuitBreakerProviderWithSettings(provider, logger, BreakerSettings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	})
}

// NewCircuitBreakerProviderWithSettings wraps provider with custom settings.
func NewCircuitBreakerProviderWithSettings(provider Provider, logger *log.Logger,
	settings BreakerSettings) *CircuitBreakerProvider {
	if logger == nil {
		logger = log.Default()
	}
	gbSettings := gobreaker.Settings{
		Name:        "MarketDataCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &CircuitBreakerProvider{
		provider: provider,
		breaker:  gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// execBreaker is a generic helper for circuit breaker wrapper methods.
func execBreaker[T any](
	breaker *gobreaker.CircuitBreaker,
	provider Provider,
	fn func(Provider) (T, error),
) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn(provider) })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// GetQuote wraps the underlying provider call with the circuit breaker.
func (c *CircuitBreakerProvider) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	return execBreaker(c.breaker, c.provider, func(p Provider) (Quote, error) {
		return p.GetQuote(ctx, symbol)
	})
}

// GetPriceHistory wraps the underlying provider call with the circuit breaker.
func (c *CircuitBreakerProvider) GetPriceHistory(ctx context.Context, symbol string, days int) ([]Bar, error) {
	return execBreaker(c.breaker, c.provider, func(p Provider) ([]Bar, error) {
		return p.GetPriceHistory(ctx, symbol, days)
	})
}

// GetOptionChain wraps the underlying provider call with the circuit breaker.
func (c *CircuitBreakerProvider) GetOptionChain(ctx context.Context, symbol string) (chain.OptionChain, error) {
	return execBreaker(c.breaker, c.provider, func(p Provider) (chain.OptionChain, error) {
		return p.GetOptionChain(ctx, symbol)
	})
}

// GetStrikeDeltas wraps the underlying provider call with the circuit breaker.
func (c *CircuitBreakerProvider) GetStrikeDeltas(ctx context.Context, symbol string,
	expiration time.Time, right models.OptionRight) (map[float64]float64, error) {
	return execBreaker(c.breaker, c.provider, func(p Provider) (map[float64]float64, error) {
		return p.GetStrikeDeltas(ctx, symbol, expiration, right)
	})
}
