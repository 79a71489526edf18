package domain

import (
	"errors"
	"fmt"
)

// Category sentinels for the CRM client. Every error returned across a
// package boundary wraps exactly one of these.
var (
	// ErrConfiguration is returned when the client is constructed with an
	// empty URL, login or password.
	ErrConfiguration = fmt.Errorf("invalid configuration")
	// ErrAuthentication is returned when login produced no usable session.
	ErrAuthentication = fmt.Errorf("authentication failed")
	// ErrTransport is returned when the remote endpoint could not be reached.
	ErrTransport = fmt.Errorf("transport failure")
	// ErrStructural is returned when a response does not have the shape an
	// operation requires.
	ErrStructural = fmt.Errorf("unexpected response structure")
)

// Sentinel errors for the supporting layers.
var (
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")
	ErrDecryption   = fmt.Errorf("decryption failed")
	ErrEncryption   = fmt.Errorf("encryption operation failed")
	ErrAuditWrite   = fmt.Errorf("audit log write failed")
	ErrInvalidInput = fmt.Errorf("invalid input")

	// ErrCircuitOpen is a transport failure reported without reaching the
	// endpoint because the breaker is open.
	ErrCircuitOpen = fmt.Errorf("circuit open: %w", ErrTransport)
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Client.LoadBean")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for scripts and logs.
type ErrorCode string

const (
	CodeUnknown        ErrorCode = "UNKNOWN"
	CodeConfiguration  ErrorCode = "CONFIGURATION"
	CodeAuthentication ErrorCode = "AUTHENTICATION"
	CodeTransport      ErrorCode = "TRANSPORT"
	CodeStructural     ErrorCode = "STRUCTURAL"
	CodeConfigLoad     ErrorCode = "CONFIG_LOAD"
	CodeDecryption     ErrorCode = "DECRYPTION"
	CodeEncryption     ErrorCode = "ENCRYPTION"
	CodeAuditWrite     ErrorCode = "AUDIT_WRITE"
	CodeCircuitOpen    ErrorCode = "CIRCUIT_OPEN"
	CodeInvalidInput   ErrorCode = "INVALID_INPUT"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrConfiguration:  CodeConfiguration,
	ErrAuthentication: CodeAuthentication,
	ErrTransport:      CodeTransport,
	ErrStructural:     CodeStructural,
	ErrConfigLoad:     CodeConfigLoad,
	ErrDecryption:     CodeDecryption,
	ErrEncryption:     CodeEncryption,
	ErrAuditWrite:     CodeAuditWrite,
	ErrCircuitOpen:    CodeCircuitOpen,
	ErrInvalidInput:   CodeInvalidInput,
}

// codePriority fixes the lookup order when an error chain matches more than
// one sentinel (an open circuit is also a transport failure).
var codePriority = []error{
	ErrCircuitOpen,
	ErrConfiguration,
	ErrAuthentication,
	ErrStructural,
	ErrTransport,
	ErrConfigLoad,
	ErrDecryption,
	ErrEncryption,
	ErrAuditWrite,
	ErrInvalidInput,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	for _, sentinel := range codePriority {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
