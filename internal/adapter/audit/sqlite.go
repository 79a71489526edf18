package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sugarcrm-client/internal/domain"
)

// SQLiteLogger implements domain.AuditLogger as a queryable call journal.
type SQLiteLogger struct {
	db *sql.DB
}

// NewSQLiteLogger opens (or creates) the journal at dbPath and runs the
// schema migration.
func NewSQLiteLogger(dbPath string) (*SQLiteLogger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &SQLiteLogger{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS crm_calls (
			seq       INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			type      TEXT NOT NULL,
			actor     TEXT NOT NULL DEFAULT '',
			resource  TEXT NOT NULL DEFAULT '',
			action    TEXT NOT NULL DEFAULT '',
			outcome   TEXT NOT NULL DEFAULT '',
			detail    TEXT NOT NULL DEFAULT '{}'
		)
	`); err != nil {
		return err
	}
	_, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_crm_calls_timestamp ON crm_calls (timestamp)")
	return err
}

// Log inserts one event.
func (s *SQLiteLogger) Log(ctx context.Context, event domain.AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return domain.NewDomainError("SQLiteLogger.Log", domain.ErrAuditWrite, err.Error())
	}
	if event.Detail == nil {
		detail = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO crm_calls (timestamp, type, actor, resource, action, outcome, detail) VALUES (?, ?, ?, ?, ?, ?, ?)",
		event.Timestamp.UTC().Format(time.RFC3339Nano), string(event.Type),
		event.Actor, event.Resource, event.Action, event.Outcome, string(detail),
	)
	if err != nil {
		return domain.NewDomainError("SQLiteLogger.Log", domain.ErrAuditWrite, err.Error())
	}
	addSpanEvent(ctx, event)
	return nil
}

// Recent returns up to n events, newest first.
func (s *SQLiteLogger) Recent(ctx context.Context, n int) ([]domain.AuditEvent, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT timestamp, type, actor, resource, action, outcome, detail FROM crm_calls ORDER BY seq DESC LIMIT ?", n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.AuditEvent
	for rows.Next() {
		var e domain.AuditEvent
		var ts, typ, detail string
		if err := rows.Scan(&ts, &typ, &e.Actor, &e.Resource, &e.Action, &e.Outcome, &detail); err != nil {
			return nil, err
		}
		e.Type = domain.AuditEventType(typ)
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if err := json.Unmarshal([]byte(detail), &e.Detail); err != nil {
			return nil, fmt.Errorf("unmarshal audit detail: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune deletes events older than maxAge and returns how many were removed.
func (s *SQLiteLogger) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, "DELETE FROM crm_calls WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the underlying database connection.
func (s *SQLiteLogger) Close() error {
	return s.db.Close()
}

var _ domain.AuditLogger = (*SQLiteLogger)(nil)
