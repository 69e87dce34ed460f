package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tombee/apibind/internal/log"
	"github.com/tombee/apibind/internal/tracing"
)

// maxErrorBodyInMessage bounds how much of an error body is copied into TransportError.Message.
const maxErrorBodyInMessage = 500

// HTTPTransport implements Transport over an injected *http.Client.
type HTTPTransport struct {
	config      *HTTPTransportConfig
	baseURL     *url.URL
	client      *http.Client
	rateLimiter RateLimiter
	logger      *slog.Logger
}

// HTTPTransportConfig configures the HTTP transport.
type HTTPTransportConfig struct {
	// BaseURL resolves relative request URLs (required)
	BaseURL string

	// Client performs the requests (required). Build it with pkg/httpclient.
	Client *http.Client

	// Headers are default headers applied to all requests
	Headers map[string]string

	// RetryConfig configures retry of whole requests, including non-idempotent
	// ones. Nil means a single attempt; idempotent retries are already handled
	// by the pkg/httpclient middleware.
	RetryConfig *RetryConfig

	// Logger for transport events. Nil uses slog.Default().
	Logger *slog.Logger
}

// Validate checks if the configuration is valid.
func (c *HTTPTransportConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return fmt.Errorf("base_url must include scheme (http:// or https://)")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base_url must include host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base_url scheme must be http or https, got %q", parsedURL.Scheme)
	}

	if c.Client == nil {
		return fmt.Errorf("http client is required")
	}

	if c.RetryConfig != nil {
		if err := c.RetryConfig.Validate(); err != nil {
			return fmt.Errorf("invalid retry configuration: %w", err)
		}
	}

	return nil
}

// NewHTTPTransport creates a new HTTP transport with the given configuration.
func NewHTTPTransport(config *HTTPTransportConfig) (*HTTPTransport, error) {
	if config == nil {
		return nil, fmt.Errorf("transport config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	base, _ := url.Parse(strings.TrimSuffix(config.BaseURL, "/") + "/")

	return &HTTPTransport{
		config:  config,
		baseURL: base,
		client:  config.Client,
		logger:  log.WithComponent(config.Logger, "transport"),
	}, nil
}

// Name returns "http".
func (t *HTTPTransport) Name() string {
	return "http"
}

// BaseURL returns the configured base URL without a trailing slash.
func (t *HTTPTransport) BaseURL() string {
	return strings.TrimSuffix(t.baseURL.String(), "/")
}

// SetRateLimiter configures rate limiting for this transport.
func (t *HTTPTransport) SetRateLimiter(limiter RateLimiter) {
	t.rateLimiter = limiter
}

// Execute sends an HTTP request and returns the response.
// Non-2xx responses are returned as *TransportError.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := t.validateRequest(req); err != nil {
		return nil, &TransportError{
			Type:      ErrorTypeInvalidReq,
			Message:   fmt.Sprintf("invalid request: %s", err.Error()),
			Retryable: false,
			Cause:     err,
		}
	}

	retryConfig := t.config.RetryConfig
	if retryConfig == nil {
		retryConfig = NoRetry()
	}

	ctx, span := tracing.StartClientSpan(ctx, "http "+req.Method, tracing.AttrHTTPMethod.String(req.Method))
	resp, err := Execute(ctx, retryConfig, func(ctx context.Context) (*Response, error) {
		return t.executeOnce(ctx, req)
	})
	if resp != nil {
		span.SetAttributes(tracing.AttrHTTPStatusCode.Int(resp.StatusCode))
	} else {
		var te *TransportError
		if errors.As(err, &te) && te.StatusCode != 0 {
			span.SetAttributes(tracing.AttrHTTPStatusCode.Int(te.StatusCode))
		}
	}
	tracing.EndSpan(span, err)

	return resp, err
}

// executeOnce executes a single HTTP request without retry logic.
func (t *HTTPTransport) executeOnce(ctx context.Context, req *Request) (*Response, error) {
	if t.rateLimiter != nil {
		if err := t.rateLimiter.Wait(ctx); err != nil {
			return nil, &TransportError{
				Type:      ErrorTypeCancelled,
				Message:   "rate limit wait cancelled",
				Retryable: false,
				Cause:     err,
			}
		}
	}

	httpReq, err := t.buildHTTPRequest(ctx, req)
	if err != nil {
		return nil, &TransportError{
			Type:      ErrorTypeInvalidReq,
			Message:   fmt.Sprintf("failed to build HTTP request: %s", err.Error()),
			Retryable: false,
			Cause:     err,
		}
	}

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, t.classifyHTTPError(ctx, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{
			Type:      ErrorTypeConnection,
			Message:   fmt.Sprintf("failed to read response body: %s", err.Error()),
			Retryable: true,
			Cause:     err,
		}
	}

	log.Trace(ctx, t.logger, "response body",
		slog.Int("status", httpResp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Int64(log.DurationKey, time.Since(start).Milliseconds()),
	)

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Metadata:   make(map[string]interface{}),
	}

	requestID := requestIDFrom(httpResp.Header)
	if requestID != "" {
		resp.Metadata[MetadataRequestID] = requestID
	}

	if httpResp.StatusCode >= 400 {
		if retryAfter := httpResp.Header.Get("Retry-After"); retryAfter != "" {
			resp.Metadata[MetadataRetryAfter] = retryAfter
		}
		terr := classifyHTTPStatusError(httpResp.StatusCode, body, resp.Metadata)
		terr.RequestID = requestID
		terr.Headers = httpResp.Header
		return nil, terr
	}

	return resp, nil
}

func requestIDFrom(h http.Header) string {
	for _, name := range []string{"X-Request-ID", "X-GitHub-Request-Id", "X-Slack-Req-Id"} {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// validateRequest checks if the request is valid.
func (t *HTTPTransport) validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}
	if req.Method == "" {
		return fmt.Errorf("method is required")
	}

	switch req.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
		http.MethodPatch, http.MethodHead, http.MethodOptions:
	default:
		return fmt.Errorf("invalid HTTP method: %q", req.Method)
	}

	if req.URL == "" {
		return fmt.Errorf("URL is required")
	}
	if _, err := url.Parse(req.URL); err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	return nil
}

// resolveURL resolves a relative request URL against the base URL.
// Leading slashes are stripped so the base path is kept. Absolute URLs, such
// as Link header targets, must point at the base URL's scheme and host so
// credentials never leave the configured service.
func (t *HTTPTransport) resolveURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		if !strings.EqualFold(u.Scheme, t.baseURL.Scheme) || !strings.EqualFold(u.Host, t.baseURL.Host) {
			return "", fmt.Errorf("refusing request to %s://%s: not the configured host %s", u.Scheme, u.Host, t.baseURL.Host)
		}
		return u.String(), nil
	}
	rel, err := url.Parse(strings.TrimPrefix(raw, "/"))
	if err != nil {
		return "", err
	}
	return t.baseURL.ResolveReference(rel).String(), nil
}

// buildHTTPRequest constructs an http.Request from a transport Request.
func (t *HTTPTransport) buildHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	target, err := t.resolveURL(req.URL)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, err
	}

	for key, value := range t.config.Headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	return httpReq, nil
}

// classifyHTTPError classifies HTTP client errors into TransportError types.
func (t *HTTPTransport) classifyHTTPError(ctx context.Context, err error) *TransportError {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return &TransportError{
			Type:      ErrorTypeCancelled,
			Message:   "request cancelled",
			Retryable: false,
			Cause:     err,
		}
	}

	if isTimeoutError(err) {
		return &TransportError{
			Type:      ErrorTypeTimeout,
			Message:   "request timeout",
			Retryable: true,
			Cause:     err,
		}
	}

	if isConnectionError(err) {
		return &TransportError{
			Type:      ErrorTypeConnection,
			Message:   "connection error",
			Retryable: true,
			Cause:     err,
		}
	}

	return &TransportError{
		Type:      ErrorTypeConnection,
		Message:   fmt.Sprintf("HTTP error: %s", err.Error()),
		Retryable: true,
		Cause:     err,
	}
}

// classifyHTTPStatusError classifies HTTP status code errors into TransportError types.
func classifyHTTPStatusError(statusCode int, body []byte, metadata map[string]interface{}) *TransportError {
	var errorType ErrorType
	var retryable bool

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		errorType = ErrorTypeAuth
	case statusCode == http.StatusTooManyRequests:
		errorType = ErrorTypeRateLimit
		retryable = true
	case statusCode >= 500:
		errorType = ErrorTypeServer
		retryable = true
	case statusCode == http.StatusRequestTimeout:
		errorType = ErrorTypeTimeout
		retryable = true
	default:
		errorType = ErrorTypeClient
	}

	message := fmt.Sprintf("HTTP %d", statusCode)
	if len(body) > 0 && len(body) < maxErrorBodyInMessage {
		message = fmt.Sprintf("HTTP %d: %s", statusCode, strings.TrimSpace(string(body)))
	}

	return &TransportError{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
		Retryable:  retryable,
		Body:       body,
		Metadata:   metadata,
	}
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	for _, keyword := range []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network unreachable",
		"eof",
	} {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}

	return false
}
