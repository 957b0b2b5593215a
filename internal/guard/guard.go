// Package guard throttles and circuit-breaks calls to remote model APIs.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("service temporarily unavailable")

type Guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// New builds a guard allowing rpm requests per minute. rpm <= 0 disables
// throttling.
func New(name string, rpm int, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	limiter := rate.NewLimiter(rate.Inf, 1)
	if rpm > 0 {
		burst := rpm / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
	}

	return &Guard{breaker: breaker, limiter: limiter}
}

// Do waits for a rate-limit slot and runs fn through the breaker.
func Do[T any](ctx context.Context, g *Guard, fn func() (T, error)) (T, error) {
	var zero T

	if err := g.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("rate limiter: %w", err)
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%s: %w", g.breaker.Name(), ErrUnavailable)
		}
		return zero, err
	}
	v, _ := result.(T)
	return v, nil
}

// State reports the breaker state, for logs.
func (g *Guard) State() string {
	return g.breaker.State().String()
}
