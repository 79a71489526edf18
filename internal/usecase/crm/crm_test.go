package crm

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/infra/logger"
)

// fakeTransport answers by method and records every envelope it receives.
type fakeTransport struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	sent      []domain.Envelope
}

func newFakeTransport(loginBody string) *fakeTransport {
	return &fakeTransport{
		responses: map[string]string{domain.MethodLogin: loginBody},
		errs:      map[string]error{},
	}
}

func (f *fakeTransport) Do(_ context.Context, env domain.Envelope) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)
	if err, ok := f.errs[env.Method]; ok {
		return nil, err
	}
	return []byte(f.responses[env.Method]), nil
}

func (f *fakeTransport) respond(method, body string) { f.responses[method] = body }

func (f *fakeTransport) fail(method string) {
	f.errs[method] = domain.NewDomainError("fake", domain.ErrTransport, "connection refused")
}

// last returns the most recent envelope for method.
func (f *fakeTransport) last(t *testing.T, method string) domain.Envelope {
	t.Helper()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Method == method {
			return f.sent[i]
		}
	}
	t.Fatalf("no %q call recorded", method)
	return domain.Envelope{}
}

// restArgs decodes the rest_data of the last call to method.
func (f *fakeTransport) restArgs(t *testing.T, method string) domain.Args {
	t.Helper()
	var args domain.Args
	require.NoError(t, json.Unmarshal([]byte(f.last(t, method).RestData), &args))
	return args
}

// recordingAudit collects audit events.
type recordingAudit struct {
	events []domain.AuditEvent
	err    error
}

func (r *recordingAudit) Log(_ context.Context, e domain.AuditEvent) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingAudit) Close() error { return nil }

func testCreds() Credentials {
	return Credentials{URL: "https://crm.example.com", Login: "admin", Password: "secret"}
}

func newTestClient(t *testing.T, ft *fakeTransport, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithTransport(ft), WithLogger(logger.Discard())}, opts...)
	c, err := New(context.Background(), testCreds(), opts...)
	require.NoError(t, err)
	return c
}
