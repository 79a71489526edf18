package crm

import (
	"context"
	"crypto/md5" //nolint:gosec // the login payload carries an MD5 digest
	"encoding/hex"
	"strings"

	"sugarcrm-client/internal/domain"
)

const protocolVersion = "1.0"

// Login authenticates username and stores the session id from the response.
// On any failure the held session is left empty. The returned error is the
// transport failure, if there was one.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	args := domain.NewArgs(
		"user_auth", domain.NewArgs(
			"user_name", username,
			"password", passwordDigest(password),
			"version", protocolVersion,
		),
		"application_name", ApplicationName,
	)

	c.session = ""
	c.user = username
	resp, err := c.Call(ctx, domain.MethodLogin, args)
	if err != nil {
		return "", err
	}

	c.session = strings.TrimSpace(textField(resp, "id"))
	if c.session == "" {
		c.logger.Warn("crm login returned no session", "user", username, "result", resp.Kind().String())
		return "", nil
	}
	c.recordSession(ctx, domain.AuditSessionCreate, domain.OutcomeOK)
	c.logger.Debug("crm session created", "user", username)
	return c.session, nil
}

// Logout ends the remote session. The outcome is ignored and the local
// session value is kept.
func (c *Client) Logout(ctx context.Context) {
	resp, err := c.Call(ctx, domain.MethodLogout, domain.NewArgs("session", c.session))
	c.logger.Debug("crm logout", "result", resp.Kind().String(), "error", err)
	outcome := domain.OutcomeOK
	switch {
	case err != nil:
		outcome = domain.OutcomeTransportError
	case resp.IsNone():
		outcome = domain.OutcomeNoResult
	}
	c.recordSession(ctx, domain.AuditSessionDelete, outcome)
}

// Session returns the held session id.
func (c *Client) Session() string { return c.session }

func passwordDigest(password string) string {
	sum := md5.Sum([]byte(password)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// textField returns a member of an object response as text, or "".
func textField(v domain.Value, name string) string {
	f, ok := v.Field(name)
	if !ok {
		return ""
	}
	s, _ := f.Text()
	return s
}
