// Package resilience wraps calls to remote services with retries and a
// circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sony/gobreaker"

	"github.com/edgard/morebots/internal/config"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

// Permanent marks err as not worth retrying. It still counts as a failure
// for the breaker.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return retry.Unrecoverable(err)
}

// Policy runs operations through a named circuit breaker and retries
// transient failures with exponential backoff.
type Policy struct {
	name     string
	attempts uint
	delay    time.Duration
	cb       *gobreaker.CircuitBreaker
	log      *slog.Logger
}

// NewPolicy creates a Policy from configuration. Zero values disable retries
// and fall back to a breaker that trips after five consecutive failures.
func NewPolicy(name string, cfg config.ResilienceConfig, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "resilience", "policy", name)

	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	maxFailures := cfg.BreakerFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return &Policy{
		name:     name,
		attempts: attempts,
		delay:    cfg.RetryDelay,
		cb:       gobreaker.NewCircuitBreaker(settings),
		log:      log,
	}
}

// Do runs op until it succeeds, returns a Permanent error, the attempts are
// used up, the breaker opens or ctx is done.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	err := retry.Do(
		func() error {
			_, err := p.cb.Execute(func() (any, error) {
				return nil, op(ctx)
			})
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(p.attempts),
		retry.Delay(p.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.log.DebugContext(ctx, "Retrying request", "attempt", n+1, "max_attempts", p.attempts, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

// State returns the breaker state name: closed, half-open or open.
func (p *Policy) State() string {
	return p.cb.State().String()
}
