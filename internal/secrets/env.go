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

package secrets

import (
	"context"
	"fmt"
	"os"
	"regexp"
)

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EnvBackend provides read-only access to secrets via environment variables.
type EnvBackend struct {
	lookup func(string) (string, bool)
}

// NewEnvBackend creates a new environment variable backend.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{lookup: os.LookupEnv}
}

// Scheme returns "env".
func (e *EnvBackend) Scheme() string {
	return "env"
}

// Get retrieves a secret from the named environment variable.
// A variable that is set but empty counts as not found.
func (e *EnvBackend) Get(ctx context.Context, key string) (string, error) {
	if !envNamePattern.MatchString(key) {
		return "", fmt.Errorf("%w: invalid environment variable name %q", ErrInvalidReference, key)
	}

	value, ok := e.lookup(key)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: environment variable %s not set", ErrSecretNotFound, key)
	}
	return value, nil
}

// Available always returns true.
func (e *EnvBackend) Available() bool {
	return true
}
