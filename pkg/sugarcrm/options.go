package sugarcrm

import (
	"log/slog"
	"time"

	"sugarcrm-client/internal/adapter/transport"
	"sugarcrm-client/internal/domain"
)

// Option configures New.
type Option func(*settings)

type settings struct {
	stack     transport.StackConfig
	transport domain.Transport
	logger    *slog.Logger
	audit     domain.AuditLogger
}

// WithVerifyPeer toggles TLS certificate verification. Default true.
func WithVerifyPeer(verify bool) Option {
	return func(s *settings) { s.stack.HTTP.VerifyPeer = verify }
}

// WithTimeout bounds each whole HTTP exchange. Default none.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.stack.HTTP.Timeout = d }
}

// WithConnTimeout bounds connection setup. Default 30s.
func WithConnTimeout(d time.Duration) Option {
	return func(s *settings) { s.stack.HTTP.ConnTimeout = d }
}

// WithRateLimit spaces calls to at most rps per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) {
		s.stack.RequestsPerSecond = rps
		s.stack.Burst = burst
	}
}

// WithCircuitBreaker fails calls fast after maxFailures consecutive
// transport failures, for openFor before probing again.
func WithCircuitBreaker(maxFailures uint32, openFor time.Duration) Option {
	return func(s *settings) {
		s.stack.Breaker = &transport.BreakerConfig{MaxFailures: maxFailures, Timeout: openFor}
	}
}

// WithTransport replaces the HTTP transport entirely, e.g. with a fake in tests.
func WithTransport(t Transport) Option {
	return func(s *settings) { s.transport = t }
}

// WithLogger sets a custom slog.Logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithAuditLogger records every call.
func WithAuditLogger(a AuditLogger) Option {
	return func(s *settings) { s.audit = a }
}
