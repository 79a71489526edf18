package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/infra/config"
)

// fakeCRM answers the handful of REST methods the commands use.
type fakeCRM struct {
	mu      sync.Mutex
	methods []string
}

func (f *fakeCRM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.PostForm.Get("method")
	f.mu.Lock()
	f.methods = append(f.methods, method)
	f.mu.Unlock()

	var args map[string]any
	_ = json.Unmarshal([]byte(r.PostForm.Get("rest_data")), &args)

	switch method {
	case "login":
		_, _ = io.WriteString(w, `{"id":"sess-1"}`)
	case "get_entry":
		deleted := "0"
		if args["id"] != "42" {
			deleted = "1"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"entry_list": []any{contact(args["id"].(string), deleted)}})
	case "get_entry_list", "get_entries":
		_ = json.NewEncoder(w).Encode(map[string]any{"entry_list": []any{contact("42", "0")}})
	case "set_entry":
		_, _ = io.WriteString(w, `{"id":"new-1"}`)
	case "get_server_info":
		_, _ = io.WriteString(w, `{"version":"6.5.0"}`)
	default:
		_, _ = io.WriteString(w, `null`)
	}
}

func (f *fakeCRM) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.methods...)
}

func contact(id, deleted string) map[string]any {
	return map[string]any{
		"id":          id,
		"module_name": "Contacts",
		"name_value_list": map[string]any{
			"last_name": map[string]any{"name": "last_name", "value": "Doe"},
			"deleted":   map[string]any{"name": "deleted", "value": deleted},
		},
	}
}

// writeConfig points a 0600 config file at srvURL.
func writeConfig(t *testing.T, srvURL string, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "crm:\n  url: " + srvURL + "\n  login: admin\n  password: secret\nlogger:\n  level: error\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestParseFlags(t *testing.T) {
	flags, rest := parseFlags([]string{"--config", "/tmp/c.yaml", "get", "--json", "Contacts", "42"})
	assert.Equal(t, "/tmp/c.yaml", flags.ConfigPath)
	assert.True(t, flags.JSON)
	assert.False(t, flags.Help)
	assert.Equal(t, []string{"get", "Contacts", "42"}, rest)

	flags, rest = parseFlags([]string{"--config=/x.yaml", "-h"})
	assert.Equal(t, "/x.yaml", flags.ConfigPath)
	assert.True(t, flags.Help)
	assert.Empty(t, rest)
}

func TestConfigPath(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "/env/config.yaml")
	assert.Equal(t, "/flag.yaml", configPath(cliFlags{ConfigPath: "/flag.yaml"}))
	assert.Equal(t, "/env/config.yaml", configPath(cliFlags{}))

	t.Setenv(config.EnvConfigPath, "")
	assert.Equal(t, config.DefaultPath(), configPath(cliFlags{}))
}

func TestRunHelpAndVersion(t *testing.T) {
	out, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, out, "USAGE:")

	out, err = runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sugarcli dev\n", out)
}

func TestRunUnknownCommand(t *testing.T) {
	_, err := runCLI(t, "frobnicate")
	assert.ErrorContains(t, err, `unknown command "frobnicate"`)
}

func TestRunGet(t *testing.T) {
	fake := &fakeCRM{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	cfg := writeConfig(t, srv.URL, "")

	out, err := runCLI(t, "--config", cfg, "get", "Contacts", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Doe")
	assert.Contains(t, out, "last_name")
	assert.Equal(t, []string{"login", "get_entry", "logout"}, fake.called())

	out, err = runCLI(t, "--config", cfg, "get", "Contacts", "99")
	assert.ErrorIs(t, err, errNotFound)
	assert.Contains(t, out, "Contacts 99 not found")
}

func TestRunGetJSON(t *testing.T) {
	srv := httptest.NewServer(&fakeCRM{})
	defer srv.Close()
	cfg := writeConfig(t, srv.URL, "")

	out, err := runCLI(t, "--config", cfg, "--json", "get", "Contacts", "42")
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, "42", entry["id"])
}

func TestRunListAndGetIDs(t *testing.T) {
	fake := &fakeCRM{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	cfg := writeConfig(t, srv.URL, "")

	out, err := runCLI(t, "--config", cfg, "list", "Contacts", `{"max_results":5}`)
	require.NoError(t, err)
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "1 record(s)")

	out, err = runCLI(t, "--config", cfg, "get-ids", "Contacts", "42,43")
	require.NoError(t, err)
	assert.Contains(t, out, "Doe")

	assert.Equal(t, []string{"login", "get_entry_list", "logout", "login", "get_entries", "logout"}, fake.called())
}

func TestRunListRejectsBadOptions(t *testing.T) {
	fake := &fakeCRM{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	cfg := writeConfig(t, srv.URL, "")

	_, err := runCLI(t, "--config", cfg, "list", "Contacts", `[1,2]`)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, fake.called())
}

func TestRunSave(t *testing.T) {
	srv := httptest.NewServer(&fakeCRM{})
	defer srv.Close()
	cfg := writeConfig(t, srv.URL, "")

	out, err := runCLI(t, "--config", cfg, "save", "Contacts", `{"last_name":"Doe"}`)
	require.NoError(t, err)
	assert.Equal(t, "saved Contacts new-1\n", out)

	out, err = runCLI(t, "--config", cfg, "--json", "save", "Contacts", `{"last_name":"Doe"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"new-1"}`, out)
}

func TestRunCall(t *testing.T) {
	srv := httptest.NewServer(&fakeCRM{})
	defer srv.Close()
	cfg := writeConfig(t, srv.URL, "")

	out, err := runCLI(t, "--config", cfg, "call", "get_server_info")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"6.5.0"}`, out)

	out, err = runCLI(t, "--config", cfg, "call", "get_available_modules", `{}`)
	require.NoError(t, err)
	assert.Equal(t, "no result\n", out)

	_, err = runCLI(t, "--config", cfg, "call", "logout")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunUsageErrors(t *testing.T) {
	srv := httptest.NewServer(&fakeCRM{})
	defer srv.Close()
	cfg := writeConfig(t, srv.URL, "")

	for _, args := range [][]string{
		{"get", "Contacts"},
		{"list"},
		{"get-ids", "Contacts"},
		{"save", "Contacts"},
		{"call"},
		{"history", "zero"},
	} {
		_, err := runCLI(t, append([]string{"--config", cfg}, args...)...)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%v", args)
	}
}

func TestRunHistory(t *testing.T) {
	srv := httptest.NewServer(&fakeCRM{})
	defer srv.Close()
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	cfg := writeConfig(t, srv.URL, "audit:\n  enabled: true\n  backend: jsonl\n  path: "+auditPath+"\n")

	_, err := runCLI(t, "--config", cfg, "get", "Contacts", "42")
	require.NoError(t, err)

	out, err := runCLI(t, "--config", cfg, "--json", "history", "3")
	require.NoError(t, err)

	var events []domain.AuditEvent
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 3)
	assert.Equal(t, domain.AuditSessionDelete, events[0].Type)
	assert.Equal(t, "logout", events[1].Action)
	assert.Equal(t, "get_entry", events[2].Action)
	assert.Equal(t, "Contacts", events[2].Resource)

	out, err = runCLI(t, "--config", cfg, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "get_entry")
}

func TestRunHistoryNeedsAudit(t *testing.T) {
	srv := httptest.NewServer(&fakeCRM{})
	defer srv.Close()
	cfg := writeConfig(t, srv.URL, "")

	_, err := runCLI(t, "--config", cfg, "history")
	assert.ErrorIs(t, err, domain.ErrConfigLoad)
}

func TestRunLoginFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"name":"Invalid Login"}`)
	}))
	defer srv.Close()
	cfg := writeConfig(t, srv.URL, "")

	_, err := runCLI(t, "--config", cfg, "get", "Contacts", "42")
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestRunEncrypt(t *testing.T) {
	t.Setenv(config.EnvConfigKey, "")
	_, err := runCLI(t, "encrypt", "secret")
	assert.ErrorIs(t, err, domain.ErrEncryption)

	t.Setenv(config.EnvConfigKey, "passphrase")
	out, err := runCLI(t, "encrypt", "secret")
	require.NoError(t, err)

	enc := bytes.TrimSpace([]byte(out))
	require.True(t, config.IsEncrypted(string(enc)))
	plain, err := config.DecryptValue(string(enc[len("enc:"):]), "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "secret", plain)
}
