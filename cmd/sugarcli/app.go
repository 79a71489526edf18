package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"sugarcrm-client/internal/adapter/audit"
	"sugarcrm-client/internal/adapter/transport"
	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/infra/config"
	"sugarcrm-client/internal/infra/logger"
	"sugarcrm-client/internal/infra/tracer"
	"sugarcrm-client/internal/usecase/crm"
)

// app carries what every command needs.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	audit   domain.AuditLogger
	out     io.Writer
	jsonOut bool
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, jsonOut bool, out io.Writer) (*app, error) {
	a := &app{cfg: cfg, out: out, jsonOut: jsonOut}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, err
	}
	a.logger = log
	a.closers = append(a.closers, closeLog)

	shutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("setup tracer: %w", err)
	}
	a.closers = append(a.closers, func() error { return shutdown(context.Background()) })

	auditLog, err := audit.Open(ctx, cfg.Audit, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.audit = auditLog
	a.closers = append(a.closers, auditLog.Close)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// newTransport builds the HTTP transport and its optional decorators.
func newTransport(cfg *config.Config, log *slog.Logger) domain.Transport {
	stack := transport.StackConfig{
		HTTP: transport.HTTPConfig{
			BaseURL:     cfg.CRM.URL,
			VerifyPeer:  cfg.CRM.VerifyPeer,
			ConnTimeout: cfg.Transport.ConnTimeout,
			Timeout:     cfg.Transport.Timeout,
		},
		RequestsPerSecond: cfg.Transport.RateLimit.RequestsPerSecond,
		Burst:             cfg.Transport.RateLimit.Burst,
	}
	if b := cfg.Transport.Breaker; b.Enabled {
		stack.Breaker = &transport.BreakerConfig{
			MaxFailures: b.MaxFailures,
			Timeout:     b.Timeout,
			Interval:    b.Interval,
		}
	}
	return transport.NewStack(stack, log)
}

// connect logs in with the configured credentials.
func connect(ctx context.Context, cfg *config.Config, log *slog.Logger, auditLog domain.AuditLogger) (*crm.Client, error) {
	return crm.New(ctx,
		crm.Credentials{URL: cfg.CRM.URL, Login: cfg.CRM.Login, Password: cfg.CRM.Password},
		crm.WithTransport(newTransport(cfg, log)),
		crm.WithLogger(log),
		crm.WithAuditLogger(auditLog),
	)
}

// withSession runs fn inside a fresh session and logs out afterwards, even
// when ctx has been cancelled.
func (a *app) withSession(ctx context.Context, fn func(*crm.Client) error) error {
	c, err := connect(ctx, a.cfg, a.logger, a.audit)
	if err != nil {
		return err
	}
	defer c.Logout(context.WithoutCancel(ctx))

	a.logger.Debug("session open", "url", c.BaseURL(), "session", logger.Redact(c.Session()))
	return fn(c)
}
