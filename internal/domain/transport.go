package domain

import (
	"context"
	"net/url"
)

// Fixed envelope markers of the REST protocol.
const (
	EncodingJSON = "JSON"
	MethodLogin  = "login"
	MethodLogout = "logout"
)

// Envelope is the form submission carrying one remote call.
type Envelope struct {
	Method       string
	InputType    string
	ResponseType string
	RestData     string // JSON-encoded Args
}

// Form returns the envelope as form fields.
func (e Envelope) Form() url.Values {
	return url.Values{
		"method":        {e.Method},
		"input_type":    {e.InputType},
		"response_type": {e.ResponseType},
		"rest_data":     {e.RestData},
	}
}

// Transport submits an envelope to the remote endpoint and returns the raw
// response body. An error means the endpoint was not reached or the
// exchange broke off; HTTP status codes are not errors.
type Transport interface {
	Do(ctx context.Context, env Envelope) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, env Envelope) ([]byte, error)

// Do implements Transport.
func (f TransportFunc) Do(ctx context.Context, env Envelope) ([]byte, error) {
	return f(ctx, env)
}
