package slack

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tombee/apibind/internal/transport"
)

// SlackError represents a Slack API error.
type SlackError struct {
	ErrorCode  string
	Message    string
	StatusCode int

	// Cause is set when the error arrived as a non-2xx HTTP response.
	Cause *transport.TransportError
}

// Error implements the error interface.
func (e *SlackError) Error() string {
	msg := fmt.Sprintf("Slack API error: %s", e.ErrorCode)

	// Add helpful context for common errors
	if suggestion := getErrorSuggestion(e.ErrorCode); suggestion != "" {
		msg += fmt.Sprintf(" - %s", suggestion)
	}

	if e.Message != "" && e.Message != e.ErrorCode {
		msg += fmt.Sprintf(" (%s)", e.Message)
	}

	return msg
}

// Unwrap returns the transport error, if any.
func (e *SlackError) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// ParseError converts a non-2xx transport error into a *SlackError.
// Other errors are returned unchanged.
func ParseError(err error) error {
	var tErr *transport.TransportError
	if !errors.As(err, &tErr) || tErr.StatusCode < 400 {
		return err
	}

	slackErr := &SlackError{
		ErrorCode:  fmt.Sprintf("http_%d", tErr.StatusCode),
		Message:    getHTTPErrorMessage(tErr.StatusCode),
		StatusCode: tErr.StatusCode,
		Cause:      tErr,
	}
	if tErr.StatusCode == http.StatusTooManyRequests {
		slackErr.ErrorCode = "ratelimited"
		if ra := tErr.Headers.Get("Retry-After"); ra != "" {
			slackErr.Message = fmt.Sprintf("retry after %ss", ra)
		}
	}
	return slackErr
}

// err returns a *SlackError when ok is false.
func (r SlackResponse) err(statusCode int) error {
	if r.OK {
		return nil
	}
	code := r.Error
	if code == "" {
		code = "unknown_error"
	}
	return &SlackError{
		ErrorCode:  code,
		Message:    r.Warning,
		StatusCode: statusCode,
	}
}

// getErrorSuggestion returns a helpful suggestion for common Slack errors.
func getErrorSuggestion(errorCode string) string {
	suggestions := map[string]string{
		"channel_not_found":   "Channel does not exist or bot is not a member",
		"not_in_channel":      "Bot is not in the specified channel. Invite the bot first",
		"user_not_found":      "User does not exist in the workspace",
		"invalid_auth":        "Token is invalid or has been revoked",
		"not_authed":          "No authentication token provided",
		"token_revoked":       "Token has been revoked. Generate a new token",
		"token_expired":       "Token has expired. Refresh or generate a new token",
		"account_inactive":    "Authentication token is for a deleted user or workspace",
		"missing_scope":       "Token does not have the required scope. Check bot permissions",
		"ratelimited":         "Too many requests. Slow down API calls",
		"cant_update_message": "Cannot update message. It may be too old or you lack permissions",
		"message_not_found":   "Message does not exist or has been deleted",
		"cant_delete_message": "Cannot delete message. Check permissions",
		"already_reacted":     "The reaction is already present on the message",
		"is_archived":         "Channel is archived. Unarchive it first",
	}

	if suggestion, ok := suggestions[errorCode]; ok {
		return suggestion
	}

	return ""
}

// getHTTPErrorMessage returns a message for HTTP error codes.
func getHTTPErrorMessage(statusCode int) string {
	switch statusCode {
	case 400:
		return "Bad request - check your parameters"
	case 401:
		return "Unauthorized - check your token"
	case 403:
		return "Forbidden - check your permissions"
	case 404:
		return "Not found"
	case 429:
		return "Rate limited - too many requests"
	case 500:
		return "Internal server error"
	case 503:
		return "Service unavailable"
	default:
		return fmt.Sprintf("HTTP error %d", statusCode)
	}
}
