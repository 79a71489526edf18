package crm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/infra/logger"
)

func TestNewRejectsEmptyCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"empty url", Credentials{URL: "", Login: "admin", Password: "secret"}},
		{"blank url", Credentials{URL: "  \t", Login: "admin", Password: "secret"}},
		{"empty login", Credentials{URL: "https://crm", Login: "", Password: "secret"}},
		{"blank login", Credentials{URL: "https://crm", Login: "   ", Password: "secret"}},
		{"empty password", Credentials{URL: "https://crm", Login: "admin", Password: ""}},
		{"blank password", Credentials{URL: "https://crm", Login: "admin", Password: "\n "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeTransport(`{"id":"abc123"}`)
			c, err := New(context.Background(), tt.creds, WithTransport(ft), WithLogger(logger.Discard()))
			require.Error(t, err)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Empty(t, ft.sent, "no call may be issued with invalid credentials")
		})
	}
}

func TestNewRequiresTransport(t *testing.T) {
	_, err := New(context.Background(), testCreds(), WithLogger(logger.Discard()))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewStoresSessionFromLogin(t *testing.T) {
	ft := newFakeTransport(`{"id":"abc123","module_name":"Users"}`)
	c := newTestClient(t, ft)

	assert.Equal(t, "abc123", c.Session())
	assert.Equal(t, "https://crm.example.com", c.BaseURL())
	require.Len(t, ft.sent, 1)
	assert.Equal(t, domain.MethodLogin, ft.sent[0].Method)
}

func TestNewTrimsSessionAndURL(t *testing.T) {
	ft := newFakeTransport(`{"id":"  abc123 \n"}`)
	c, err := New(context.Background(),
		Credentials{URL: " https://crm.example.com/ ", Login: " admin ", Password: " secret "},
		WithTransport(ft), WithLogger(logger.Discard()))
	require.NoError(t, err)
	assert.Equal(t, "abc123", c.Session())
	assert.Equal(t, "https://crm.example.com", c.BaseURL())

	auth, _ := ft.restArgs(t, domain.MethodLogin).Get("user_auth")
	name, _ := auth.(domain.Args).Get("user_name")
	assert.Equal(t, "admin", name)
}

func TestNewFailsWithoutSession(t *testing.T) {
	bodies := map[string]string{
		"missing id": `{"name":"Invalid Login","number":10}`,
		"empty id":   `{"id":""}`,
		"blank id":   `{"id":"   "}`,
		"false":      `false`,
		"malformed":  `<html>Fatal error</html>`,
		"empty body": ``,
		"array":      `["abc"]`,
		"scalar":     `"abc123"`,
		"null id":    `{"id":null}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			ft := newFakeTransport(body)
			c, err := New(context.Background(), testCreds(), WithTransport(ft), WithLogger(logger.Discard()))
			require.Error(t, err)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, domain.ErrAuthentication)
			assert.False(t, errors.Is(err, domain.ErrTransport))
		})
	}
}

func TestNewFailsWhenLoginUnreachable(t *testing.T) {
	ft := newFakeTransport("")
	ft.fail(domain.MethodLogin)

	c, err := New(context.Background(), testCreds(), WithTransport(ft), WithLogger(logger.Discard()))
	require.Error(t, err)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestNewAuditsSessionCreate(t *testing.T) {
	audit := &recordingAudit{}
	ft := newFakeTransport(`{"id":"abc123"}`)
	newTestClient(t, ft, WithAuditLogger(audit))

	require.Len(t, audit.events, 2)
	assert.Equal(t, domain.AuditCRMCall, audit.events[0].Type)
	assert.Equal(t, domain.MethodLogin, audit.events[0].Action)
	assert.Equal(t, domain.OutcomeOK, audit.events[0].Outcome)
	assert.Equal(t, "admin", audit.events[0].Actor)
	assert.Equal(t, domain.AuditSessionCreate, audit.events[1].Type)
	assert.Equal(t, "https://crm.example.com", audit.events[1].Resource)
}

func TestAuditFailureDoesNotFailCalls(t *testing.T) {
	audit := &recordingAudit{err: domain.ErrAuditWrite}
	ft := newFakeTransport(`{"id":"abc123"}`)
	c := newTestClient(t, ft, WithAuditLogger(audit))
	assert.Equal(t, "abc123", c.Session())
}
