// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errors defines the error taxonomy shared by every API binding.
//
// Three failure classes matter to callers of a binding:
//   - ExchangeError: a credential could not be obtained (token endpoint failed)
//   - transport.TransportError: the API call itself failed (defined in internal/transport)
//   - DecodeError: the API answered but the body did not match the expected shape
//
// Use errors.As to tell them apart.
package errors

import (
	"fmt"
)

// ValidationError represents invalid input supplied to a binding or constructor.
type ValidationError struct {
	// Field identifies which input failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// IsRetryable implements ErrorClassifier.
func (e *ValidationError) IsRetryable() bool { return false }

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "services.github.auth.app_id")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ExchangeError reports a failed credential exchange against a token-issuing
// endpoint. Every caller that waited on the same exchange receives the same
// ExchangeError value.
type ExchangeError struct {
	// Credential names the credential being exchanged (e.g., "github", "app 123/installation 456")
	Credential string

	// StatusCode is the HTTP status returned by the token endpoint.
	// Zero when the endpoint was never reached.
	StatusCode int

	// Message is a safe-to-log description. Never contains key material.
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	msg := "token exchange failed"
	if e.Credential != "" {
		msg = fmt.Sprintf("token exchange for %s failed", e.Credential)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s [HTTP %d]", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	} else if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ExchangeError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ExchangeError) ErrorType() string { return "exchange" }

// IsRetryable reports whether a later exchange attempt may succeed.
// The token cache itself never retries; this is a hint for callers.
func (e *ExchangeError) IsRetryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// DecodeError reports a response body that could not be decoded into the
// expected type.
type DecodeError struct {
	// Target is the Go type the body was decoded into
	Target string

	// StatusCode is the HTTP status of the response that failed to decode
	StatusCode int

	// Snippet is a short prefix of the offending body, for debugging
	Snippet string

	// Cause is the underlying decode error
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := "failed to decode response"
	if e.Target != "" {
		msg = fmt.Sprintf("failed to decode response into %s", e.Target)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *DecodeError) ErrorType() string { return "decode" }

// IsRetryable implements ErrorClassifier.
func (e *DecodeError) IsRetryable() bool { return false }

// NewDecodeError builds a DecodeError, truncating the body to a short snippet.
func NewDecodeError(target interface{}, statusCode int, body []byte, cause error) *DecodeError {
	const maxSnippet = 200
	snippet := string(body)
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet] + "..."
	}
	return &DecodeError{
		Target:     fmt.Sprintf("%T", target),
		StatusCode: statusCode,
		Snippet:    snippet,
		Cause:      cause,
	}
}
