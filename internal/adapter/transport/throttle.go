package transport

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"sugarcrm-client/internal/domain"
)

// Throttle spaces calls to the endpoint with a token bucket. It waits for a
// token instead of rejecting, so callers see added latency, not failures,
// unless their context ends first.
type Throttle struct {
	inner   domain.Transport
	limiter *rate.Limiter
}

// NewThrottle allows requestsPerSecond calls with the given burst. A burst
// below 1 is raised to 1.
func NewThrottle(inner domain.Transport, requestsPerSecond float64, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Do implements domain.Transport.
func (t *Throttle) Do(ctx context.Context, env domain.Envelope) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, domain.NewDomainError("Throttle.Do", domain.ErrTransport, fmt.Sprintf("wait for rate limit: %v", err))
	}
	return t.inner.Do(ctx, env)
}

var _ domain.Transport = (*Throttle)(nil)
