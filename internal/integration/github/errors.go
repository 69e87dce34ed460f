package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tombee/apibind/internal/transport"
)

// GitHubError represents a GitHub API error response.
type GitHubError struct {
	Message          string                  `json:"message"`
	DocumentationURL string                  `json:"documentation_url,omitempty"`
	Errors           []GitHubValidationError `json:"errors,omitempty"`
	StatusCode       int
	RequestID        string

	// RateLimitRemaining is -1 when the response carried no rate limit headers.
	RateLimitRemaining int
	RateLimitReset     time.Time

	// Cause is the transport error the response arrived as.
	Cause *transport.TransportError
}

// GitHubValidationError represents a validation error in a GitHub API response.
type GitHubValidationError struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
}

// Error implements the error interface.
func (e *GitHubError) Error() string {
	msg := fmt.Sprintf("GitHub API error: %s (status %d)", e.Message, e.StatusCode)

	if e.DocumentationURL != "" {
		msg += fmt.Sprintf(" - see %s", e.DocumentationURL)
	}

	if len(e.Errors) > 0 {
		msg += " - validation errors:"
		for _, ve := range e.Errors {
			msg += fmt.Sprintf(" [%s.%s: %s]", ve.Resource, ve.Field, ve.Code)
		}
	}

	if e.IsRateLimited() {
		msg += fmt.Sprintf(" - rate limit exceeded, resets at %s", e.RateLimitReset.Format(time.RFC3339))
	}

	return msg
}

// Unwrap returns the transport error so errors.As keeps working on it.
func (e *GitHubError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// IsRateLimited reports whether the primary rate limit is exhausted.
func (e *GitHubError) IsRateLimited() bool {
	return e.RateLimitRemaining == 0
}

// ParseError converts an error response into a *GitHubError.
// Errors that did not come from a GitHub response (exchange failures,
// connection errors, decode errors) are returned unchanged.
func ParseError(err error) error {
	var tErr *transport.TransportError
	if !errors.As(err, &tErr) || tErr.StatusCode < 400 {
		return err
	}

	ghErr := &GitHubError{
		StatusCode:         tErr.StatusCode,
		RequestID:          tErr.RequestID,
		RateLimitRemaining: -1,
		Cause:              tErr,
	}

	// Parse rate limit headers
	if remaining := tErr.Headers.Get("X-Ratelimit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			ghErr.RateLimitRemaining = val
		}
	}
	if reset := tErr.Headers.Get("X-Ratelimit-Reset"); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			ghErr.RateLimitReset = time.Unix(val, 0)
		}
	}

	// Try to parse error body
	if len(tErr.Body) > 0 {
		var errResp struct {
			Message          string                  `json:"message"`
			DocumentationURL string                  `json:"documentation_url"`
			Errors           []GitHubValidationError `json:"errors"`
		}

		if err := json.Unmarshal(tErr.Body, &errResp); err == nil {
			ghErr.Message = errResp.Message
			ghErr.DocumentationURL = errResp.DocumentationURL
			ghErr.Errors = errResp.Errors
		} else {
			// Fallback to raw body as message
			ghErr.Message = string(tErr.Body)
		}
	}

	// If no message was parsed, use a generic message based on status code
	if ghErr.Message == "" {
		ghErr.Message = getDefaultMessage(tErr.StatusCode)
	}

	return ghErr
}

// getDefaultMessage returns a default error message for a status code.
func getDefaultMessage(statusCode int) string {
	switch statusCode {
	case 400:
		return "Bad request"
	case 401:
		return "Unauthorized - check your credentials"
	case 403:
		return "Forbidden - check your permissions"
	case 404:
		return "Not found"
	case 422:
		return "Unprocessable entity - validation failed"
	case 429:
		return "Rate limit exceeded"
	case 500:
		return "Internal server error"
	case 502:
		return "Bad gateway"
	case 503:
		return "Service unavailable"
	default:
		return fmt.Sprintf("Request failed with status %d", statusCode)
	}
}
