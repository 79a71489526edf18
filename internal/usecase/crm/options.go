package crm

import (
	"log/slog"

	"sugarcrm-client/internal/domain"
)

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the transport every call goes through. Required.
func WithTransport(t domain.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAuditLogger records one event per remote call.
func WithAuditLogger(a domain.AuditLogger) Option {
	return func(c *Client) {
		if a != nil {
			c.audit = a
		}
	}
}
