package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tombee/apibind/internal/log"
)

// errRetryableStatus marks an attempt whose response status warrants a retry.
var errRetryableStatus = errors.New("retryable response status")

// retryTransport wraps an http.RoundTripper to add retry logic with exponential backoff.
type retryTransport struct {
	base                    http.RoundTripper
	maxRetries              int
	baseBackoff             time.Duration
	maxBackoff              time.Duration
	allowNonIdempotentRetry bool
	logger                  *slog.Logger
}

func newRetryTransport(base http.RoundTripper, cfg Config) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &retryTransport{
		base:                    base,
		maxRetries:              cfg.RetryAttempts,
		baseBackoff:             cfg.RetryBackoff,
		maxBackoff:              cfg.MaxBackoff,
		allowNonIdempotentRetry: cfg.AllowNonIdempotentRetry,
		logger:                  log.WithComponent(cfg.Logger, "httpclient"),
	}
}

// RoundTrip implements http.RoundTripper with retry logic.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.isIdempotentMethod(req.Method) && !t.allowNonIdempotentRetry {
		return t.base.RoundTrip(req)
	}
	// A body that cannot be replayed gets exactly one attempt.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return t.base.RoundTrip(req)
	}

	policy := &retryAfterBackOff{BackOff: t.newBackOff(), max: t.maxBackoff}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(t.maxRetries)), req.Context())

	var resp *http.Response
	attempt := 0

	op := func() error {
		attempt++
		if resp != nil {
			drainAndClose(resp)
			resp = nil
		}

		attemptReq := req
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			attemptReq = req.Clone(req.Context())
			attemptReq.Body = body
		}

		r, err := t.base.RoundTrip(attemptReq)
		if err != nil {
			if t.isRetryableError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		resp = r
		if !t.shouldRetryStatus(r.StatusCode) {
			return nil
		}
		policy.retryAfter = parseRetryAfter(r)
		return errRetryableStatus
	}

	notify := func(err error, delay time.Duration) {
		t.logger.DebugContext(req.Context(), "retrying http request",
			"method", req.Method,
			"url", sanitizeURL(req.URL),
			log.AttemptKey, attempt,
			"delay_ms", delay.Milliseconds(),
			log.Error(err),
		)
	}

	err := backoff.RetryNotify(op, b, notify)
	if err == nil {
		return resp, nil
	}
	// Retries exhausted on a retryable status: hand the last response to the caller.
	if errors.Is(err, errRetryableStatus) && resp != nil {
		return resp, nil
	}
	if resp != nil {
		drainAndClose(resp)
	}
	return nil, err
}

// newBackOff builds the exponential policy: baseBackoff doubling up to
// maxBackoff with 20% jitter, bounded by attempt count rather than elapsed time.
func (t *retryTransport) newBackOff() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = t.baseBackoff
	eb.MaxInterval = t.maxBackoff
	eb.Multiplier = 2
	eb.RandomizationFactor = 0.2
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// isIdempotentMethod reports whether method is safe to replay automatically.
// PUT and DELETE are excluded because not every API implements them idempotently.
func (t *retryTransport) isIdempotentMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// shouldRetryStatus determines if an HTTP status code should trigger a retry.
func (t *retryTransport) shouldRetryStatus(statusCode int) bool {
	switch {
	case statusCode >= 500 && statusCode < 600:
		return true
	case statusCode == http.StatusRequestTimeout:
		return true
	case statusCode == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// isRetryableError determines if a transport error should trigger a retry.
func (t *retryTransport) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		if t.isRetryableError(urlErr.Err) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	transientKeywords := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"network unreachable",
		"temporary failure in name resolution",
		"eof",
	}

	for _, keyword := range transientKeywords {
		if strings.Contains(errMsg, keyword) {
			return true
		}
	}

	return false
}

// retryAfterBackOff substitutes a server-provided Retry-After delay for the
// next computed delay, capped at max.
type retryAfterBackOff struct {
	backoff.BackOff
	max        time.Duration
	retryAfter time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if b.retryAfter > 0 {
		next = b.retryAfter
		if b.max > 0 && next > b.max {
			next = b.max
		}
		b.retryAfter = 0
	}
	return next
}

// parseRetryAfter extracts the Retry-After header value.
// Supports both seconds (integer) and HTTP-date formats.
// Returns 0 if header is missing or invalid.
func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(header); err == nil {
		if delay := time.Until(retryTime); delay > 0 {
			return delay
		}
	}

	return 0
}

func drainAndClose(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
