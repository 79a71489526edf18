package transport

import (
	"log/slog"

	"sugarcrm-client/internal/domain"
)

// StackConfig selects the decorators stacked on top of the HTTP transport.
type StackConfig struct {
	HTTP HTTPConfig

	// RequestsPerSecond > 0 enables throttling.
	RequestsPerSecond float64
	Burst             int

	// Breaker is nil when the circuit breaker is disabled.
	Breaker *BreakerConfig
}

// NewStack builds HTTP, then the breaker, then the throttle, so a throttled
// call waits before it is counted by the breaker.
func NewStack(cfg StackConfig, logger *slog.Logger) domain.Transport {
	if logger == nil {
		logger = slog.Default()
	}
	var t domain.Transport = NewHTTPTransport(cfg.HTTP, logger)
	if cfg.Breaker != nil {
		t = NewBreaker(Endpoint(cfg.HTTP.BaseURL), t, *cfg.Breaker, logger)
	}
	if cfg.RequestsPerSecond > 0 {
		t = NewThrottle(t, cfg.RequestsPerSecond, cfg.Burst)
	}
	return t
}
