package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"sugarcrm-client/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the circuit breaker behavior.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration
}

// Breaker wraps a Transport with circuit breaker protection. Only transport
// failures count; every response body, whatever it holds, is a success.
// An open circuit fails fast with domain.ErrCircuitOpen and never retries.
type Breaker struct {
	inner   domain.Transport
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewBreaker wraps inner with a circuit breaker named name.
func NewBreaker(name string, inner domain.Transport, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "crm:" + name,
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about the endpoint.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker{inner: inner, breaker: cb}
}

// Do implements domain.Transport.
func (b *Breaker) Do(ctx context.Context, env domain.Envelope) ([]byte, error) {
	body, err := b.breaker.Execute(func() ([]byte, error) {
		return b.inner.Do(ctx, env)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewDomainError("Breaker.Do", domain.ErrCircuitOpen, b.breaker.Name())
		}
		return nil, err
	}
	return body, nil
}

// State returns the current circuit breaker state for monitoring.
func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}

// Counts returns the current circuit breaker failure/success counts.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.breaker.Counts()
}

var _ domain.Transport = (*Breaker)(nil)
