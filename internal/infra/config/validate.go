package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"sugarcrm-client/internal/domain"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// Unwrap lets errors.Is match domain.ErrConfigLoad.
func (v *ValidationError) Unwrap() error { return domain.ErrConfigLoad }

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
//
// Missing credentials are not reported here; the client rejects them at
// construction so that commands which never log in still work.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateCRM(cfg, ve)
	validateTransport(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	validateAudit(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCRM(cfg *Config, ve *ValidationError) {
	if raw := strings.TrimSpace(cfg.CRM.URL); raw != "" {
		u, err := url.Parse(raw)
		switch {
		case err != nil:
			ve.Add("crm.url is not a valid URL: %v", err)
		case u.Scheme != "http" && u.Scheme != "https":
			ve.Add("crm.url scheme must be http or https, got %q", u.Scheme)
		case u.Host == "":
			ve.Add("crm.url has no host")
		case strings.HasSuffix(u.Path, "rest.php"):
			ve.Add("crm.url must be the instance base URL, not the REST entry point")
		}
	}
	if IsEncrypted(cfg.CRM.Password) || IsEncrypted(cfg.CRM.Login) {
		ve.Add("crm credentials are encrypted but %s is not set", EnvConfigKey)
	}
}

func validateTransport(cfg *Config, ve *ValidationError) {
	t := cfg.Transport
	if t.ConnTimeout < 0 {
		ve.Add("transport.conn_timeout must be >= 0")
	}
	if t.Timeout < 0 {
		ve.Add("transport.timeout must be >= 0")
	}
	if t.RateLimit.RequestsPerSecond < 0 {
		ve.Add("transport.rate_limit.requests_per_second must be >= 0")
	}
	if t.RateLimit.RequestsPerSecond > 0 && t.RateLimit.Burst < 1 {
		ve.Add("transport.rate_limit.burst must be >= 1 when rate limiting is enabled")
	}
	if t.Breaker.Enabled {
		if t.Breaker.MaxFailures == 0 {
			ve.Add("transport.breaker.max_failures must be > 0")
		}
		if t.Breaker.Timeout <= 0 {
			ve.Add("transport.breaker.timeout must be > 0")
		}
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not one of debug, info, warn, error", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is not one of text, json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout":
	default:
		ve.Add("tracer.exporter %q is not one of noop, stdout", cfg.Tracer.Exporter)
	}
}

func validateAudit(cfg *Config, ve *ValidationError) {
	if !cfg.Audit.Enabled {
		return
	}
	switch cfg.Audit.Backend {
	case "jsonl", "sqlite":
	default:
		ve.Add("audit.backend %q is not one of jsonl, sqlite", cfg.Audit.Backend)
	}
	if cfg.Audit.Path == "" {
		ve.Add("audit.path is required when audit is enabled")
	}
	if cfg.Audit.MaxAge != "" {
		if d, err := time.ParseDuration(cfg.Audit.MaxAge); err != nil || d < 0 {
			ve.Add("audit.max_age %q is not a valid duration", cfg.Audit.MaxAge)
		}
	}
}
