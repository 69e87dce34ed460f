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

package errors_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	apierrors "github.com/tombee/apibind/pkg/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *apierrors.ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &apierrors.ValidationError{Field: "owner", Message: "required"},
			wantMsg: "validation failed on owner: required",
		},
		{
			name:    "without field",
			err:     &apierrors.ValidationError{Message: "invalid format"},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestExchangeError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *apierrors.ExchangeError
		wantMsg string
	}{
		{
			name:    "status and message",
			err:     &apierrors.ExchangeError{Credential: "github", StatusCode: 401, Message: "Bad credentials"},
			wantMsg: "token exchange for github failed [HTTP 401]: Bad credentials",
		},
		{
			name:    "cause only",
			err:     &apierrors.ExchangeError{Cause: errors.New("connection refused")},
			wantMsg: "token exchange failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ExchangeError.Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestExchangeError_IsRetryable(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{0, true},
		{401, false},
		{404, false},
		{429, true},
		{502, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := &apierrors.ExchangeError{StatusCode: tt.status}
			if got := err.IsRetryable(); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExchangeError_Unwrap(t *testing.T) {
	root := errors.New("dial tcp: timeout")
	err := fmt.Errorf("issuing request: %w", &apierrors.ExchangeError{Cause: root})

	if !errors.Is(err, root) {
		t.Error("expected errors.Is to find the root cause")
	}
	if !apierrors.IsExchangeError(err) {
		t.Error("expected IsExchangeError to be true")
	}
	if apierrors.IsDecodeError(err) {
		t.Error("expected IsDecodeError to be false")
	}
}

func TestNewDecodeError(t *testing.T) {
	type issue struct{}
	body := []byte(strings.Repeat("x", 500))
	err := apierrors.NewDecodeError(&issue{}, 200, body, errors.New("unexpected EOF"))

	if !strings.Contains(err.Target, "issue") {
		t.Errorf("Target = %q, want it to name the decode target", err.Target)
	}
	if len(err.Snippet) != 203 {
		t.Errorf("Snippet length = %d, want 203", len(err.Snippet))
	}
	if !strings.Contains(err.Error(), "unexpected EOF") {
		t.Errorf("Error() = %q, want cause in message", err.Error())
	}
	if apierrors.IsRetryable(err) {
		t.Error("decode errors must not be retryable")
	}
}

func TestConfigError_Unwrap(t *testing.T) {
	cause := errors.New("no such file")
	err := &apierrors.ConfigError{Key: "services.github", Reason: "unreadable", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected ConfigError to unwrap to its cause")
	}
	if got := err.Error(); got != "config error at services.github: unreadable" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrap(t *testing.T) {
	if apierrors.Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	original := errors.New("root cause")
	wrapped := apierrors.Wrapf(original, "fetching %s", "token")
	if !errors.Is(wrapped, original) {
		t.Error("wrapped error should match original with errors.Is")
	}
	if wrapped.Error() != "fetching token: root cause" {
		t.Errorf("Wrapf() = %q", wrapped.Error())
	}
}
