// Package audit persists one event per CRM call.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/infra/tracer"
)

// RetentionPolicy controls how long JSONL audit entries are kept.
type RetentionPolicy struct {
	MaxAge  time.Duration // 0 = no limit
	MaxSize int64         // bytes; 0 = no limit
}

// FileLogger implements domain.AuditLogger by appending JSON lines to a file.
type FileLogger struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	retention *RetentionPolicy
}

// NewFileLogger appends to path, creating the file with 0600 permissions
// and its directory with 0700.
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &FileLogger{file: f, path: path}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// SetRetention configures the policy applied by EnforceRetention.
func (l *FileLogger) SetRetention(policy RetentionPolicy) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.retention = &policy
}

// Log writes event as a single JSON line and mirrors it onto the active span.
func (l *FileLogger) Log(ctx context.Context, event domain.AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return domain.NewDomainError("FileLogger.Log", domain.ErrAuditWrite, err.Error())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return domain.NewDomainError("FileLogger.Log", domain.ErrAuditWrite, err.Error())
	}

	addSpanEvent(ctx, event)
	return nil
}

// addSpanEvent records event on the span in ctx, if one is recording.
func addSpanEvent(ctx context.Context, event domain.AuditEvent) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := make([]attribute.KeyValue, 0, len(event.Detail)+2)
	attrs = append(attrs,
		tracer.StringAttr("audit.action", event.Action),
		tracer.StringAttr("audit.outcome", event.Outcome),
	)
	for k, v := range event.Detail {
		attrs = append(attrs, tracer.StringAttr("audit."+k, v))
	}
	span.AddEvent("audit."+string(event.Type), trace.WithAttributes(attrs...))
}

// Recent returns up to n events, newest first. Unreadable lines are skipped.
func (l *FileLogger) Recent(_ context.Context, n int) ([]domain.AuditEvent, error) {
	if n <= 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	lines, _, _, err := readKept(l.path, time.Time{})
	if err != nil {
		return nil, err
	}
	events := make([]domain.AuditEvent, 0, n)
	for i := len(lines) - 1; i >= 0 && len(events) < n; i-- {
		var e domain.AuditEvent
		if json.Unmarshal(lines[i], &e) != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

// Close closes the log file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// EnforceRetention rewrites the log keeping only entries that satisfy the
// policy: entries older than MaxAge go first, then the oldest entries until
// the file fits MaxSize.
func (l *FileLogger) EnforceRetention(_ context.Context) (removed int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	policy := l.retention
	if policy == nil || (policy.MaxAge == 0 && policy.MaxSize == 0) {
		return 0, nil
	}

	if policy.MaxAge == 0 {
		info, err := os.Stat(l.path)
		if err != nil {
			return 0, fmt.Errorf("stat audit log: %w", err)
		}
		if info.Size() <= policy.MaxSize {
			return 0, nil
		}
	}

	var cutoff time.Time
	if policy.MaxAge > 0 {
		cutoff = time.Now().Add(-policy.MaxAge)
	}

	if err := l.file.Close(); err != nil {
		return 0, fmt.Errorf("close for retention: %w", err)
	}
	// The append handle is always restored, whatever happens below.
	defer func() {
		f, openErr := openAppend(l.path)
		if openErr != nil && err == nil {
			err = fmt.Errorf("reopen after retention: %w", openErr)
		}
		l.file = f
	}()

	kept, keptSize, removed, err := readKept(l.path, cutoff)
	if err != nil {
		return 0, err
	}

	for policy.MaxSize > 0 && len(kept) > 0 && keptSize > policy.MaxSize {
		keptSize -= int64(len(kept[0])) + 1
		kept = kept[1:]
		removed++
	}

	if err := writeLines(l.path, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

// readKept returns the lines of path whose timestamp is not before cutoff.
// Lines without a readable timestamp are kept.
func readKept(path string, cutoff time.Time) (kept [][]byte, size int64, removed int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open for reading: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if !cutoff.IsZero() {
			var entry struct {
				Timestamp time.Time `json:"timestamp"`
			}
			if json.Unmarshal(line, &entry) == nil && !entry.Timestamp.IsZero() && entry.Timestamp.Before(cutoff) {
				removed++
				continue
			}
		}
		kept = append(kept, append([]byte(nil), line...))
		size += int64(len(line)) + 1
	}
	if err := sc.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("scan audit log: %w", err)
	}
	return kept, size, removed, nil
}

// writeLines replaces path atomically with lines.
func writeLines(path string, lines [][]byte) error {
	tmpPath := path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// ParseSize parses a human-readable size such as "512KB", "10MB" or "1GB".
// An empty string is 0.
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("parse size %q: invalid number", s)
	}
	return n * multiplier, nil
}

var _ domain.AuditLogger = (*FileLogger)(nil)
