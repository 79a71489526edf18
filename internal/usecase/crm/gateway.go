package crm

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"sugarcrm-client/internal/domain"
	"sugarcrm-client/internal/infra/tracer"
)

// Call issues method with args and returns the decoded response. The held
// session is attached to every call except login unless args already carry
// a session. A response with nothing usable is domain.NoResult with a nil
// error; an unreachable endpoint is domain.NoResult with an error wrapping
// domain.ErrTransport.
func (c *Client) Call(ctx context.Context, method string, args domain.Args) (domain.Value, error) {
	method = strings.TrimSpace(method)
	args = injectSession(c.session, method, args)

	restData, err := json.Marshal(args)
	if err != nil {
		return domain.NoResult, domain.NewDomainError("Client.Call", domain.ErrInvalidInput, err.Error())
	}

	callID := ulid.Make().String()
	ctx, span := tracer.StartSpan(ctx, "crm.call",
		trace.WithAttributes(
			tracer.StringAttr("crm.method", method),
			tracer.StringAttr("crm.call_id", callID),
		),
	)
	defer span.End()

	start := time.Now()
	body, err := c.transport.Do(ctx, domain.Envelope{
		Method:       method,
		InputType:    domain.EncodingJSON,
		ResponseType: domain.EncodingJSON,
		RestData:     string(restData),
	})
	elapsed := time.Since(start)

	if err != nil {
		if !errors.Is(err, domain.ErrTransport) {
			err = domain.NewDomainError("Client.Call", domain.ErrTransport, err.Error())
		}
		tracer.RecordError(span, err)
		c.logger.Warn("crm call failed", "method", method, "call_id", callID, "error", err)
		c.recordCall(ctx, callID, method, args, domain.OutcomeTransportError, domain.NoResult, elapsed)
		return domain.NoResult, err
	}

	resp := domain.Decode(body)
	span.SetAttributes(
		tracer.StringAttr("crm.result_kind", resp.Kind().String()),
		tracer.IntAttr("crm.response_bytes", len(body)),
	)
	tracer.SetOK(span)

	outcome := domain.OutcomeOK
	if resp.IsNone() {
		outcome = domain.OutcomeNoResult
	}
	c.logger.Debug("crm call",
		"method", method,
		"call_id", callID,
		"result", resp.Kind().String(),
		"bytes", len(body),
		"duration", elapsed,
	)
	c.recordCall(ctx, callID, method, args, outcome, resp, elapsed)
	return resp, nil
}

// injectSession returns args with the session appended. Login never gets a
// session, and a caller-supplied session key is kept whatever its value.
// args is not modified.
func injectSession(session, method string, args domain.Args) domain.Args {
	out := args.Clone()
	if method == domain.MethodLogin || session == "" || out.Has("session") {
		return out
	}
	return append(out, domain.Arg{Key: "session", Value: session})
}

func (c *Client) recordCall(ctx context.Context, callID, method string, args domain.Args, outcome string, resp domain.Value, elapsed time.Duration) {
	module := ""
	if v, ok := args.Get("modulename"); ok {
		module, _ = v.(string)
	}
	c.writeAudit(ctx, domain.AuditEvent{
		Timestamp: time.Now(),
		Type:      domain.AuditCRMCall,
		Actor:     c.user,
		Resource:  module,
		Action:    method,
		Outcome:   outcome,
		Detail: map[string]string{
			"call_id":     callID,
			"result_kind": resp.Kind().String(),
			"duration_ms": strconv.FormatInt(elapsed.Milliseconds(), 10),
		},
	})
}

func (c *Client) recordSession(ctx context.Context, typ domain.AuditEventType, outcome string) {
	c.writeAudit(ctx, domain.AuditEvent{
		Timestamp: time.Now(),
		Type:      typ,
		Actor:     c.user,
		Resource:  c.baseURL,
		Outcome:   outcome,
		Detail:    map[string]string{},
	})
}

// writeAudit never fails a call; audit problems are logged.
func (c *Client) writeAudit(ctx context.Context, event domain.AuditEvent) {
	if err := c.audit.Log(ctx, event); err != nil {
		c.logger.Warn("audit write failed", "type", string(event.Type), "error", err)
	}
}
