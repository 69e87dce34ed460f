// Package transport executes HTTP requests for the API bindings.
//
// The transport layer separates protocol concerns (request construction,
// status classification, retry, rate limiting) from binding concerns
// (endpoint paths, typed bodies, service error formats). Credentials are not
// handled here: the api package asks an auth.Authorizer for the Authorization
// header and passes it in Request.Headers.
package transport

import (
	"context"
	"net/http"
)

// Transport executes requests with protocol-specific handling.
type Transport interface {
	// Execute sends a request and returns a response.
	// The context controls cancellation and deadlines.
	// Returns *TransportError on failure, including non-2xx responses.
	Execute(ctx context.Context, req *Request) (*Response, error)

	// Name returns the transport identifier (e.g., "http").
	Name() string

	// SetRateLimiter configures rate limiting for this transport.
	// Rate limiting occurs before each attempt.
	SetRateLimiter(limiter RateLimiter)
}

// Request represents a single API call.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS).
	Method string

	// URL is the absolute request URL, or a path resolved against the
	// transport's base URL.
	URL string

	// Headers are request headers. They override the transport defaults.
	Headers map[string]string

	// Body is the request body. Nil means no body.
	Body []byte

	// Metadata carries per-request data for logging and tests.
	Metadata map[string]interface{}
}

// Response represents a completed API call.
type Response struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Headers contains response headers
	Headers http.Header

	// Body is the response body
	Body []byte

	// Metadata contains transport data such as the retry count and request ID
	Metadata map[string]interface{}
}

// Header returns the first value of the named response header.
func (r *Response) Header(name string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return r.Headers.Get(name)
}

// Standard metadata keys
const (
	// MetadataRequestID is the service request ID (X-Request-ID, X-GitHub-Request-Id, ...)
	MetadataRequestID = "request_id"

	// MetadataRetryCount is the number of retries performed for this request
	MetadataRetryCount = "retry_count"

	// MetadataRetryAfter is the raw Retry-After header of an error response
	MetadataRetryAfter = "retry_after"
)

// RateLimiter provides rate limiting for transport requests.
// *rate.Limiter from golang.org/x/time/rate satisfies it.
type RateLimiter interface {
	// Wait blocks until a request is allowed under the rate limit.
	// Returns an error if the context is cancelled before the request can proceed.
	Wait(ctx context.Context) error
}
