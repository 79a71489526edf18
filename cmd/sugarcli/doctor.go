package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sugarcrm-client/internal/infra/config"
	"sugarcrm-client/internal/infra/logger"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
	StatusSkip CheckStatus = "SKIP"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(ctx context.Context, cfg *config.Config) CheckResult
}

const dialTimeout = 5 * time.Second

// runDoctor executes all health checks and reports results to w.
func runDoctor(ctx context.Context, cfgPath string, w io.Writer) error {
	// Some checks work without a loadable config.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Credentials", Fn: checkCredentials},
		{Name: "Endpoint", Fn: checkEndpoint},
		{Name: "Login", Fn: checkLogin},
		{Name: "Audit log", Fn: checkAuditPath},
	}

	fmt.Fprintln(w, "sugarcli doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(ctx, cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		return fmt.Errorf("%d check(s) failed", fail)
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	case StatusSkip:
		return "[SKIP]"
	default:
		return "[????]"
	}
}

// checkConfigFile reports whether the config file exists and loads.
func checkConfigFile(cfgPath string, cfgErr error) func(context.Context, *config.Config) CheckResult {
	return func(context.Context, *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     "Check config.yaml syntax and permissions (chmod 600)",
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s, using defaults and environment", cfgPath),
				Fix:     "Create the file or set SUGARCLI_URL, SUGARCLI_LOGIN and SUGARCLI_PASSWORD",
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

func checkCredentials(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusSkip, Message: "config not loaded"}
	}
	var missing []string
	if strings.TrimSpace(cfg.CRM.URL) == "" {
		missing = append(missing, "crm.url")
	}
	if strings.TrimSpace(cfg.CRM.Login) == "" {
		missing = append(missing, "crm.login")
	}
	if strings.TrimSpace(cfg.CRM.Password) == "" {
		missing = append(missing, "crm.password")
	}
	if len(missing) > 0 {
		return CheckResult{
			Status:  StatusFail,
			Message: "missing " + strings.Join(missing, ", "),
			Fix:     "Set them in config.yaml or via SUGARCLI_* environment variables",
		}
	}
	msg := fmt.Sprintf("user %s", cfg.CRM.Login)
	if !cfg.CRM.VerifyPeer {
		return CheckResult{Status: StatusWarn, Message: msg + ", TLS verification disabled"}
	}
	return CheckResult{Status: StatusPass, Message: msg}
}

// checkEndpoint dials the instance host without sending a request.
func checkEndpoint(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil || cfg.CRM.URL == "" {
		return CheckResult{Status: StatusSkip, Message: "no crm.url"}
	}
	addr, err := hostPort(cfg.CRM.URL)
	if err != nil {
		return CheckResult{Status: StatusFail, Message: err.Error()}
	}

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot reach %s: %v", addr, err),
			Fix:     "Check crm.url and network access to the instance",
		}
	}
	conn.Close()
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s reachable", addr)}
}

func hostPort(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid crm.url: %w", err)
	}
	if u.Port() != "" {
		return u.Host, nil
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// checkLogin opens and closes a real session.
func checkLogin(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil || cfg.CRM.URL == "" || cfg.CRM.Login == "" || cfg.CRM.Password == "" {
		return CheckResult{Status: StatusSkip, Message: "credentials incomplete"}
	}
	c, err := connect(ctx, cfg, logger.Discard(), nil)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     "Verify the web-service user and password",
		}
	}
	c.Logout(context.WithoutCancel(ctx))
	return CheckResult{Status: StatusPass, Message: "session opened and closed"}
}

// checkAuditPath verifies the audit directory is writable when auditing is on.
func checkAuditPath(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil || !cfg.Audit.Enabled {
		return CheckResult{Status: StatusSkip, Message: "audit disabled"}
	}
	dir := filepath.Dir(cfg.Audit.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return CheckResult{Status: StatusFail, Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s is not writable: %v", dir, err),
			Fix:     "Fix permissions or change audit.path",
		}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s backend at %s", cfg.Audit.Backend, cfg.Audit.Path)}
}
