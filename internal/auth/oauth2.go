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
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	apierrors "github.com/tombee/apibind/pkg/errors"
)

// ClientCredentialsExchanger performs an OAuth2 client-credentials grant.
type ClientCredentialsExchanger struct {
	Credential ClientCredentials

	// Client performs the exchange. Required.
	Client *http.Client
}

// Exchange implements Exchanger.
func (e *ClientCredentialsExchanger) Exchange(ctx context.Context) (*CachedToken, error) {
	if err := e.Credential.Validate(); err != nil {
		return nil, &apierrors.ExchangeError{Credential: e.Credential.String(), Message: "invalid credential", Cause: err}
	}
	if e.Client == nil {
		return nil, &apierrors.ExchangeError{Credential: e.Credential.String(), Message: "no HTTP client configured"}
	}

	cfg := &clientcredentials.Config{
		ClientID:     e.Credential.ClientID,
		ClientSecret: e.Credential.ClientSecret,
		TokenURL:     e.Credential.TokenURL,
		Scopes:       e.Credential.Scopes,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.Client)
	tok, err := cfg.Token(ctx)
	if err != nil {
		exErr := &apierrors.ExchangeError{Credential: e.Credential.String(), Cause: err}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			if retrieveErr.Response != nil {
				exErr.StatusCode = retrieveErr.Response.StatusCode
			}
			exErr.Message = retrieveErr.ErrorCode
			if retrieveErr.ErrorDescription != "" {
				exErr.Message = fmt.Sprintf("%s: %s", retrieveErr.ErrorCode, retrieveErr.ErrorDescription)
			}
			if exErr.Message == "" {
				exErr.Message = errorMessage(retrieveErr.Body)
			}
		}
		return nil, exErr
	}

	return &CachedToken{Token: tok.AccessToken, ExpiresAt: tok.Expiry}, nil
}

// TokenSource adapts the cache to oauth2.TokenSource, so it can back an
// oauth2.Transport. Every Token call goes through the cache's coalescing.
func (c *TokenCache) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &cacheTokenSource{ctx: ctx, cache: c}
}

type cacheTokenSource struct {
	ctx   context.Context
	cache *TokenCache
}

func (s *cacheTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.cache.get(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok.Token,
		TokenType:   SchemeBearer,
		Expiry:      tok.ExpiresAt,
	}, nil
}
