package domain

import (
	"context"
	"time"
)

// AuditEventType classifies audit log entries.
type AuditEventType string

const (
	AuditCRMCall       AuditEventType = "crm_call"
	AuditSessionCreate AuditEventType = "session_create"
	AuditSessionDelete AuditEventType = "session_delete"
)

// Call outcomes recorded in AuditEvent.Outcome.
const (
	OutcomeOK             = "ok"
	OutcomeNoResult       = "no_result"
	OutcomeTransportError = "transport_error"
)

// AuditEvent represents a single auditable action.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      AuditEventType    `json:"type"`
	Detail    map[string]string `json:"detail"`

	// Optional, zero values omitted.
	Actor    string `json:"actor,omitempty"`
	Resource string `json:"resource,omitempty"`
	Action   string `json:"action,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
}

// AuditLogger writes audit events to a persistent log.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent) error
	Close() error
}

// NoopAuditLogger discards events.
type NoopAuditLogger struct{}

func (NoopAuditLogger) Log(context.Context, AuditEvent) error { return nil }
func (NoopAuditLogger) Close() error                          { return nil }
