// Package crm implements the session-oriented CRM client: login, the generic
// call gateway and the record operations built on it.
//
// A Client holds one remote session and is not safe for concurrent use.
package crm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"sugarcrm-client/internal/domain"
)

// ApplicationName identifies this client to the remote service at login.
const ApplicationName = "SugarCRM-Client Go Library"

// Credentials identify the instance and the web-service user.
type Credentials struct {
	URL      string // instance base URL without the API path
	Login    string
	Password string
}

// normalize trims every field and rejects empty ones.
func (c Credentials) normalize() (Credentials, error) {
	out := Credentials{
		URL:      strings.TrimRight(strings.TrimSpace(c.URL), "/"),
		Login:    strings.TrimSpace(c.Login),
		Password: strings.TrimSpace(c.Password),
	}
	switch {
	case out.URL == "":
		return Credentials{}, domain.NewDomainError("crm.New", domain.ErrConfiguration, "url not set")
	case out.Login == "":
		return Credentials{}, domain.NewDomainError("crm.New", domain.ErrConfiguration, "login not set")
	case out.Password == "":
		return Credentials{}, domain.NewDomainError("crm.New", domain.ErrConfiguration, "password not set")
	}
	return out, nil
}

// Client is an authenticated CRM session.
type Client struct {
	transport domain.Transport
	logger    *slog.Logger
	audit     domain.AuditLogger

	baseURL string
	user    string
	session string
}

// New validates creds, logs in and returns a client holding the new session.
// It fails with domain.ErrConfiguration for empty credentials or a missing
// transport, and with domain.ErrAuthentication when login yields no session.
func New(ctx context.Context, creds Credentials, opts ...Option) (*Client, error) {
	creds, err := creds.normalize()
	if err != nil {
		return nil, err
	}

	c := &Client{
		logger:  slog.Default(),
		audit:   domain.NoopAuditLogger{},
		baseURL: creds.URL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		return nil, domain.NewDomainError("crm.New", domain.ErrConfiguration, "no transport")
	}

	session, err := c.Login(ctx, creds.Login, creds.Password)
	if err != nil {
		// Keep the transport cause reachable with errors.Is.
		return nil, fmt.Errorf("%w: %w", domain.NewDomainError("crm.New", domain.ErrAuthentication, "login failed"), err)
	}
	if session == "" {
		return nil, domain.NewDomainError("crm.New", domain.ErrAuthentication, "login returned no session")
	}
	return c, nil
}

// BaseURL returns the instance URL the client was created for.
func (c *Client) BaseURL() string { return c.baseURL }
