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

package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Authorizer produces the Authorization header value for a request.
type Authorizer interface {
	// Authorization returns the complete header value, e.g. "token ghs_...".
	// Exchange failures are returned as *errors.ExchangeError.
	Authorization(ctx context.Context) (string, error)
}

// Invalidator is implemented by authorizers whose credential can go stale.
// Invalidate is called with the header value the API rejected.
type Invalidator interface {
	Invalidate(authorization string)
}

// StaticAuthorizer attaches a fixed credential. It performs no I/O.
type StaticAuthorizer struct {
	header string
}

// NewStaticAuthorizer returns an Authorizer for an API key.
func NewStaticAuthorizer(cred StaticCredential) (*StaticAuthorizer, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	scheme := cred.Scheme
	if scheme == "" {
		scheme = SchemeBearer
	}
	return &StaticAuthorizer{header: scheme + " " + cred.Token}, nil
}

// Authorization implements Authorizer.
func (a *StaticAuthorizer) Authorization(context.Context) (string, error) {
	return a.header, nil
}

// CachedAuthorizer attaches a token obtained through a TokenCache.
type CachedAuthorizer struct {
	cache  *TokenCache
	scheme string
}

// NewCachedAuthorizer returns an Authorizer that prefixes cached tokens with scheme.
func NewCachedAuthorizer(cache *TokenCache, scheme string) *CachedAuthorizer {
	if scheme == "" {
		scheme = SchemeBearer
	}
	return &CachedAuthorizer{cache: cache, scheme: scheme}
}

// Authorization implements Authorizer.
func (a *CachedAuthorizer) Authorization(ctx context.Context) (string, error) {
	tok, err := a.cache.Token(ctx)
	if err != nil {
		return "", err
	}
	return a.scheme + " " + tok, nil
}

// Invalidate implements Invalidator. Only the rejected token is dropped;
// a token refreshed in the meantime is kept.
func (a *CachedAuthorizer) Invalidate(authorization string) {
	a.cache.InvalidateToken(strings.TrimPrefix(authorization, a.scheme+" "))
}

// Cache returns the underlying token cache.
func (a *CachedAuthorizer) Cache() *TokenCache {
	return a.cache
}

// New builds the Authorizer for cred. Dynamic credentials exchange tokens
// with httpClient; opts configure their TokenCache.
func New(cred Credential, httpClient *http.Client, opts ...CacheOption) (Authorizer, error) {
	if cred == nil {
		return nil, fmt.Errorf("credential is required")
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}

	switch c := cred.(type) {
	case StaticCredential:
		return NewStaticAuthorizer(c)

	case AppCredential:
		if httpClient == nil {
			return nil, fmt.Errorf("%s credentials require an HTTP client", c.Kind())
		}
		ex := &InstallationExchanger{Credential: c, Client: httpClient}
		opts = append([]CacheOption{WithName(c.String())}, opts...)
		return NewCachedAuthorizer(NewTokenCache(ex, opts...), SchemeToken), nil

	case ClientCredentials:
		if httpClient == nil {
			return nil, fmt.Errorf("%s credentials require an HTTP client", c.Kind())
		}
		ex := &ClientCredentialsExchanger{Credential: c, Client: httpClient}
		opts = append([]CacheOption{WithName(c.String())}, opts...)
		return NewCachedAuthorizer(NewTokenCache(ex, opts...), SchemeBearer), nil

	default:
		return nil, fmt.Errorf("unsupported credential kind %q", cred.Kind())
	}
}
