// Package sugarcrm is a client for the SugarCRM v4 REST API.
//
// New logs in and returns a client bound to that session:
//
//	c, err := sugarcrm.New(ctx, "https://crm.example.com", "admin", "secret")
//	if err != nil {
//	    return err
//	}
//	defer c.Logout(ctx)
//
//	bean, found, err := c.LoadBean(ctx, "Contacts", id)
//	ok := c.SaveBean(ctx, "Contacts", map[string]any{"last_name": "Doe"})
//
// A Client is not safe for concurrent use.
package sugarcrm

import (
	"context"
	"log/slog"

	"sugarcrm-client/internal/adapter/transport"
	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/usecase/crm"
)

type (
	Client      = crm.Client
	Bean        = domain.Bean
	Args        = domain.Args
	Arg         = domain.Arg
	Value       = domain.Value
	Kind        = domain.Kind
	Envelope    = domain.Envelope
	Transport   = domain.Transport
	AuditLogger = domain.AuditLogger
	AuditEvent  = domain.AuditEvent
)

// Value kinds.
const (
	KindNone   = domain.KindNone
	KindObject = domain.KindObject
	KindArray  = domain.KindArray
	KindScalar = domain.KindScalar
)

// Error categories; test with errors.Is.
var (
	ErrConfiguration  = domain.ErrConfiguration
	ErrAuthentication = domain.ErrAuthentication
	ErrTransport      = domain.ErrTransport
	ErrStructural     = domain.ErrStructural
	ErrCircuitOpen    = domain.ErrCircuitOpen
)

// NoResult is the value of a call whose response carried nothing usable.
var NoResult = domain.NoResult

// NewArgs builds ordered call arguments from alternating keys and values.
func NewArgs(kv ...any) Args { return domain.NewArgs(kv...) }

// New validates the credentials, logs in and returns the session client.
func New(ctx context.Context, url, login, password string, opts ...Option) (*Client, error) {
	s := settings{
		stack: transport.StackConfig{
			HTTP: transport.HTTPConfig{BaseURL: url, VerifyPeer: true},
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	t := s.transport
	if t == nil {
		t = transport.NewStack(s.stack, s.logger)
	}
	return crm.New(ctx,
		crm.Credentials{URL: url, Login: login, Password: password},
		crm.WithTransport(t),
		crm.WithLogger(s.logger),
		crm.WithAuditLogger(s.audit),
	)
}
