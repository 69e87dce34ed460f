package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures retry behavior for transport operations.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first (default: 3)
	MaxAttempts int `yaml:"max_attempts"`

	// InitialBackoff is the initial backoff duration (default: 1s)
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// MaxBackoff caps the backoff and any Retry-After value (default: 30s)
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// BackoffFactor is the exponential backoff multiplier (default: 2.0)
	BackoffFactor float64 `yaml:"backoff_factor"`

	// RetryableErrors is the list of HTTP status codes that should be retried
	// Default: [408, 429, 500, 502, 503, 504]
	RetryableErrors []int `yaml:"retryable_errors"`
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialBackoff:  1 * time.Second,
		MaxBackoff:      30 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: []int{408, 429, 500, 502, 503, 504},
	}
}

// NoRetry returns a configuration that performs exactly one attempt.
func NoRetry() *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 1
	return cfg
}

// Validate checks if the retry configuration is valid.
func (c *RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.InitialBackoff < 0 {
		return fmt.Errorf("initial_backoff must be non-negative, got %v", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff (%v) must be >= initial_backoff (%v)", c.MaxBackoff, c.InitialBackoff)
	}
	if c.BackoffFactor < 1.0 {
		return fmt.Errorf("backoff_factor must be >= 1.0, got %f", c.BackoffFactor)
	}
	return nil
}

// IsRetryable returns true if the given status code should be retried.
func (c *RetryConfig) IsRetryable(statusCode int) bool {
	for _, code := range c.RetryableErrors {
		if code == statusCode {
			return true
		}
	}
	return false
}

// ExecuteFunc executes a single request attempt.
type ExecuteFunc func(ctx context.Context) (*Response, error)

// Execute runs fn with retry logic.
//
// Retry behavior:
//   - Retries *TransportError values marked Retryable whose status (if any) is in RetryableErrors
//   - Honors Retry-After on 429 and 503, capped at MaxBackoff
//   - Never retries other errors
//   - Stops immediately on context cancellation
func Execute(ctx context.Context, config *RetryConfig, fn ExecuteFunc) (*Response, error) {
	if config == nil {
		config = DefaultRetryConfig()
	}

	policy := &retryAfterBackOff{BackOff: newExponential(config), max: config.MaxBackoff}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(max(config.MaxAttempts-1, 0))), ctx)

	var resp *Response
	attempts := 0

	op := func() error {
		attempts++
		r, err := fn(ctx)
		if err == nil {
			resp = r
			return nil
		}

		shouldRetry, retryAfter := shouldRetryError(err, config)
		if !shouldRetry {
			return backoff.Permanent(err)
		}
		policy.retryAfter = retryAfter
		return err
	}

	if err := backoff.Retry(op, b); err != nil {
		var te *TransportError
		if !errors.As(err, &te) && ctx.Err() != nil {
			return nil, &TransportError{
				Type:      ErrorTypeCancelled,
				Message:   "request cancelled during retry backoff",
				Retryable: false,
				Cause:     err,
			}
		}
		return nil, err
	}

	if resp.Metadata == nil {
		resp.Metadata = make(map[string]interface{})
	}
	resp.Metadata[MetadataRetryCount] = attempts - 1
	return resp, nil
}

func newExponential(config *RetryConfig) *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = config.InitialBackoff
	eb.MaxInterval = config.MaxBackoff
	eb.Multiplier = config.BackoffFactor
	eb.RandomizationFactor = 0.1
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// retryAfterBackOff replaces the computed delay with a server-provided
// Retry-After value for one step.
type retryAfterBackOff struct {
	backoff.BackOff
	max        time.Duration
	retryAfter time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop || b.retryAfter <= 0 {
		return next
	}
	next = b.retryAfter
	if b.max > 0 && next > b.max {
		next = b.max
	}
	b.retryAfter = 0
	return next
}

// shouldRetryError determines if an error should be retried and extracts Retry-After if present.
func shouldRetryError(err error, config *RetryConfig) (shouldRetry bool, retryAfter time.Duration) {
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		return false, 0
	}

	if !transportErr.Retryable {
		return false, 0
	}

	if transportErr.StatusCode > 0 {
		if !config.IsRetryable(transportErr.StatusCode) {
			return false, 0
		}
		if transportErr.StatusCode == http.StatusTooManyRequests || transportErr.StatusCode == http.StatusServiceUnavailable {
			retryAfter = extractRetryAfter(transportErr)
		}
	}

	return true, retryAfter
}

// extractRetryAfter reads the Retry-After value recorded in the error metadata.
// Supports delta-seconds and HTTP-date. Returns 0 if absent or invalid.
func extractRetryAfter(err *TransportError) time.Duration {
	raw, ok := err.Metadata[MetadataRetryAfter].(string)
	if !ok || raw == "" {
		return 0
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second
	}

	retryTime, parseErr := http.ParseTime(raw)
	if parseErr != nil {
		return 0
	}
	if delay := time.Until(retryTime); delay > 0 {
		return delay
	}
	return 0
}
