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
	"regexp"
	"sort"
	"strings"
)

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9]*$`)

// ParseReference splits a secret reference into scheme and key.
// Returns ("env", "VAR") for "${VAR}" or "env:VAR" and ("file", "/path")
// for "file:/path". Anything else fails with ErrInvalidReference.
func ParseReference(reference string) (scheme, key string, err error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return "", "", fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}

	if strings.HasPrefix(reference, "${") && strings.HasSuffix(reference, "}") {
		key = reference[2 : len(reference)-1]
		if key == "" {
			return "", "", fmt.Errorf("%w: empty variable name in %q", ErrInvalidReference, reference)
		}
		return "env", key, nil
	}

	scheme, key, ok := strings.Cut(reference, ":")
	if !ok || !schemePattern.MatchString(scheme) {
		return "", "", fmt.Errorf("%w: expected ${VAR} or scheme:key", ErrInvalidReference)
	}
	if strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("%w: empty key for scheme %q", ErrInvalidReference, scheme)
	}
	return scheme, key, nil
}

// IsReference reports whether value is syntactically a secret reference.
func IsReference(value string) bool {
	_, _, err := ParseReference(value)
	return err == nil
}

// Resolver resolves references by dispatching to the backend for their scheme.
type Resolver struct {
	backends map[string]Backend
	masker   *Masker
}

// NewResolver creates a resolver. Later backends replace earlier ones with
// the same scheme.
func NewResolver(backends ...Backend) *Resolver {
	r := &Resolver{backends: make(map[string]Backend, len(backends)), masker: NewMasker()}
	for _, b := range backends {
		r.backends[b.Scheme()] = b
	}
	return r
}

// NewDefaultResolver returns a resolver with env, file and keychain backends.
func NewDefaultResolver() *Resolver {
	return NewResolver(NewEnvBackend(), NewFileBackend(), NewKeychainBackend(""))
}

// Resolve returns the secret a reference points to.
func (r *Resolver) Resolve(ctx context.Context, reference string) (string, error) {
	scheme, key, err := ParseReference(reference)
	if err != nil {
		return "", err
	}

	backend, ok := r.backends[scheme]
	if !ok {
		return "", fmt.Errorf("%w: unknown scheme %q", ErrInvalidReference, scheme)
	}
	if !backend.Available() {
		return "", fmt.Errorf("%w: %s", ErrBackendUnavailable, scheme)
	}

	value, err := backend.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s secret: %w", scheme, err)
	}
	r.masker.AddSecret(value)
	return value, nil
}

// Masker returns the masker holding every value this resolver has returned.
func (r *Resolver) Masker() *Masker {
	return r.masker
}

// Schemes returns the registered schemes in sorted order.
func (r *Resolver) Schemes() []string {
	schemes := make([]string, 0, len(r.backends))
	for s := range r.backends {
		schemes = append(schemes, s)
	}
	sort.Strings(schemes)
	return schemes
}
