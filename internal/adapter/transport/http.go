package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"sugarcrm-client/internal/domain"
)

// Compile-time interface assertion.
var _ domain.Transport = (*HTTPTransport)(nil)

// APIPath is the REST entry point below the instance base URL.
const APIPath = "/service/v4/rest.php"

// defaultMaxResponseBody is the largest response body accepted from the endpoint.
const defaultMaxResponseBody = 32 * 1024 * 1024 // 32 MB

const defaultConnTimeout = 30 * time.Second

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	BaseURL     string        // instance URL without the API path
	VerifyPeer  bool          // verify the server certificate chain
	ConnTimeout time.Duration // dial timeout; 0 = 30s
	Timeout     time.Duration // whole-exchange timeout; 0 = none

	// MaxResponseBytes caps the response body; 0 = 32 MB. A larger body is
	// a transport failure, never a truncated result.
	MaxResponseBytes int64
}

// HTTPTransport posts envelopes as form submissions. Every request uses a
// fresh connection, no HTTP/2 and no redirects: the legacy endpoint speaks
// HTTP/1.0 semantics only.
type HTTPTransport struct {
	endpoint string
	client   *http.Client
	maxBody  int64
	logger   *slog.Logger
}

// NewHTTPTransport creates a transport posting to cfg.BaseURL + APIPath.
func NewHTTPTransport(cfg HTTPConfig, logger *slog.Logger) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxResponseBytes
	if maxBody <= 0 {
		maxBody = defaultMaxResponseBody
	}
	return &HTTPTransport{
		endpoint: Endpoint(cfg.BaseURL),
		client:   NewHTTPClient(cfg),
		maxBody:  maxBody,
		logger:   logger,
	}
}

// Endpoint returns the REST URL for an instance base URL.
func Endpoint(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + APIPath
}

// NewHTTPClient creates the *http.Client used by HTTPTransport.
func NewHTTPClient(cfg HTTPConfig) *http.Client {
	connTimeout := cfg.ConnTimeout
	if connTimeout == 0 {
		connTimeout = defaultConnTimeout
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: connTimeout,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !cfg.VerifyPeer, //nolint:gosec // opt-in for self-signed instances
			},
			DisableKeepAlives: true,
			ForceAttemptHTTP2: false,
			// A non-nil empty map disables HTTP/2 negotiation.
			TLSNextProto: map[string]func(string, *tls.Conn) http.RoundTripper{},
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
		Timeout: cfg.Timeout,
	}
}

// Endpoint returns the URL this transport posts to.
func (t *HTTPTransport) Endpoint() string { return t.endpoint }

// Do implements domain.Transport. The body is returned whatever the HTTP
// status; only a failed exchange is an error.
func (t *HTTPTransport) Do(ctx context.Context, env domain.Envelope) ([]byte, error) {
	form := env.Form().Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(form))
	if err != nil {
		return nil, domain.NewDomainError("HTTPTransport.Do", domain.ErrTransport, fmt.Sprintf("create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Close = true

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewDomainError("HTTPTransport.Do", domain.ErrTransport, fmt.Sprintf("http request: %v", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, t.maxBody+1))
	if err != nil {
		return nil, domain.NewDomainError("HTTPTransport.Do", domain.ErrTransport, fmt.Sprintf("read response: %v", err))
	}
	if int64(len(body)) > t.maxBody {
		t.logger.Warn("crm response too large", "method", env.Method, "limit", t.maxBody)
		return nil, domain.NewDomainError("HTTPTransport.Do", domain.ErrTransport,
			fmt.Sprintf("response body exceeds %d bytes", t.maxBody))
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		t.logger.Warn("crm endpoint returned non-success status",
			"method", env.Method,
			"status", httpResp.StatusCode,
			"bytes", len(body),
		)
	}

	return body, nil
}
