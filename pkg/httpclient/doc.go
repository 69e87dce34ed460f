// Package httpclient builds the *http.Client shared by every apibind binding
// and by the token exchangers.
//
// The client composes two transport layers over a pooled http.Transport:
//   - Retries with exponential backoff and jitter (cenkalti/backoff)
//   - Request logging with sanitized URLs, User-Agent and correlation ID injection
//
// # Usage
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Logger = logger
//	client, err := httpclient.New(cfg)
//	if err != nil {
//	    return err
//	}
//
// The returned client is injected into auth.New and api.NewBaseClient. Nothing
// in apibind uses http.DefaultClient.
//
// # Retry Behavior
//
//   - Retries HTTP 5xx, 408 and 429 (honoring Retry-After, capped at MaxBackoff)
//   - Retries transient network errors (connection refused/reset, timeouts)
//   - Never retries other 4xx responses or context cancellation
//   - Only retries GET, HEAD and OPTIONS unless AllowNonIdempotentRetry is set
//
// A request body is replayed on retry only when req.GetBody is available.
// Token exchange POSTs are therefore never retried by this layer.
//
// # Security
//
// Sensitive query parameters are redacted from logs. Authorization headers are
// never logged.
package httpclient
