package httpclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tombee/apibind/internal/log"
	"github.com/tombee/apibind/internal/tracing"
)

// loggingTransport sets User-Agent, propagates correlation IDs and logs
// each round trip with a sanitized URL.
type loggingTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *slog.Logger
}

func newLoggingTransport(base http.RoundTripper, userAgent string, logger *slog.Logger) *loggingTransport {
	if base == nil {
		base = http.DefaultTransport
	}

	return &loggingTransport{
		base:      base,
		userAgent: userAgent,
		logger:    log.WithComponent(logger, "httpclient"),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())

	if req.Header.Get("User-Agent") == "" && t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	tracing.InjectIntoRequest(req.Context(), req)

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()

	logURL := sanitizeURL(req.URL)

	if err != nil {
		t.logger.WarnContext(req.Context(), "http request failed",
			"method", req.Method,
			"url", logURL,
			log.DurationKey, duration,
			log.Error(err),
		)
		return nil, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}
	t.logger.Log(req.Context(), level, "http request",
		"method", req.Method,
		"url", logURL,
		"status", resp.StatusCode,
		log.DurationKey, duration,
	)

	return resp, nil
}
