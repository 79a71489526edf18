package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/infra/config"
)

// Open returns the audit logger selected by cfg and applies its retention
// once. A disabled audit yields domain.NoopAuditLogger.
func Open(ctx context.Context, cfg config.AuditConfig, logger *slog.Logger) (domain.AuditLogger, error) {
	if !cfg.Enabled {
		return domain.NoopAuditLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	var maxAge time.Duration
	if cfg.MaxAge != "" {
		d, err := time.ParseDuration(cfg.MaxAge)
		if err != nil {
			return nil, domain.NewDomainError("audit.Open", domain.ErrConfigLoad, fmt.Sprintf("max_age: %v", err))
		}
		maxAge = d
	}

	switch cfg.Backend {
	case "sqlite":
		l, err := NewSQLiteLogger(cfg.Path)
		if err != nil {
			return nil, err
		}
		if n, err := l.Prune(ctx, maxAge); err != nil {
			logger.Warn("audit retention failed", "backend", cfg.Backend, "error", err)
		} else if n > 0 {
			logger.Debug("audit retention", "backend", cfg.Backend, "removed", n)
		}
		return l, nil
	case "jsonl", "":
		maxSize, err := ParseSize(cfg.MaxSize)
		if err != nil {
			return nil, domain.NewDomainError("audit.Open", domain.ErrConfigLoad, fmt.Sprintf("max_size: %v", err))
		}
		l, err := NewFileLogger(cfg.Path)
		if err != nil {
			return nil, err
		}
		l.SetRetention(RetentionPolicy{MaxAge: maxAge, MaxSize: maxSize})
		if n, err := l.EnforceRetention(ctx); err != nil {
			logger.Warn("audit retention failed", "backend", "jsonl", "error", err)
		} else if n > 0 {
			logger.Debug("audit retention", "backend", "jsonl", "removed", n)
		}
		return l, nil
	default:
		return nil, domain.NewDomainError("audit.Open", domain.ErrConfigLoad, fmt.Sprintf("unknown backend %q", cfg.Backend))
	}
}
