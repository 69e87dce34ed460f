package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// New creates a new HTTP client with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*http.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		},

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: Wrap(baseTransport, cfg),
		Timeout:   cfg.Timeout,
	}, nil
}

// Wrap layers logging and (when enabled) retries over base.
// Tests use it to keep httptest transports while getting production behavior.
func Wrap(base http.RoundTripper, cfg Config) http.RoundTripper {
	// Layer 1: logging, User-Agent, correlation ID
	var rt http.RoundTripper = newLoggingTransport(base, cfg.UserAgent, cfg.Logger)

	// Layer 2: retries
	if cfg.RetryAttempts > 0 {
		rt = newRetryTransport(rt, cfg)
	}
	return rt
}
