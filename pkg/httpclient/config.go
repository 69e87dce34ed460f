package httpclient

import (
	"fmt"
	"log/slog"
	"time"
)

// Config configures the HTTP client with timeout, retry, and logging settings.
type Config struct {
	// Timeout is the total request timeout (includes retries).
	// Default: 30s. Must be > 0.
	Timeout time.Duration `yaml:"timeout"`

	// RetryAttempts is the maximum number of retry attempts (0 = no retries).
	// Default: 3. Must be >= 0.
	RetryAttempts int `yaml:"retry_attempts"`

	// RetryBackoff is the initial backoff delay before first retry.
	// Default: 100ms. Must be > 0 if RetryAttempts > 0.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// MaxBackoff caps both the exponential delay and any Retry-After value.
	// Default: 30s. Must be >= RetryBackoff.
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// UserAgent is the User-Agent header value.
	// Required. Must be non-empty.
	UserAgent string `yaml:"user_agent"`

	// AllowNonIdempotentRetry enables retry for POST, PUT, PATCH and DELETE.
	// Default: false.
	AllowNonIdempotentRetry bool `yaml:"allow_non_idempotent_retry"`

	// Logger receives request logs. Nil uses slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:                 30 * time.Second,
		RetryAttempts:           3,
		RetryBackoff:            100 * time.Millisecond,
		MaxBackoff:              30 * time.Second,
		UserAgent:               "apibind/1.0",
		AllowNonIdempotentRetry: false,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be >= 0, got %d", c.RetryAttempts)
	}

	if c.RetryAttempts > 0 {
		if c.RetryBackoff <= 0 {
			return fmt.Errorf("retry_backoff must be > 0 when retry_attempts > 0, got %v", c.RetryBackoff)
		}
		if c.MaxBackoff < c.RetryBackoff {
			return fmt.Errorf("max_backoff (%v) must be >= retry_backoff (%v)", c.MaxBackoff, c.RetryBackoff)
		}
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}

	return nil
}
