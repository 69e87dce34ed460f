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
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	apierrors "github.com/tombee/apibind/pkg/errors"
)

func TestClientCredentialsExchanger_Exchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "read write", r.Form.Get("scope"))

		id, secret, ok := r.BasicAuth()
		if !ok {
			id, secret = r.Form.Get("client_id"), r.Form.Get("client_secret")
		}
		assert.Equal(t, "app", id)
		assert.Equal(t, "s3cr3t", secret)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	ex := &ClientCredentialsExchanger{
		Credential: ClientCredentials{
			ClientID:     "app",
			ClientSecret: "s3cr3t",
			TokenURL:     server.URL + "/oauth/token",
			Scopes:       []string{"read", "write"},
		},
		Client: server.Client(),
	}

	before := time.Now()
	tok, err := ex.Exchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.Token)
	assert.WithinDuration(t, before.Add(time.Hour), tok.ExpiresAt, 10*time.Second)
}

func TestClientCredentialsExchanger_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"bad secret"}`))
	}))
	defer server.Close()

	ex := &ClientCredentialsExchanger{
		Credential: ClientCredentials{ClientID: "app", ClientSecret: "wrong", TokenURL: server.URL},
		Client:     server.Client(),
	}

	_, err := ex.Exchange(context.Background())
	var exErr *apierrors.ExchangeError
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, http.StatusBadRequest, exErr.StatusCode)
	assert.Equal(t, "invalid_client: bad secret", exErr.Message)
	assert.Equal(t, "client app", exErr.Credential)
	assert.False(t, exErr.IsRetryable())
}

func TestTokenCache_TokenSource(t *testing.T) {
	var exchanges atomic.Int32
	expires := time.Now().Add(time.Hour)
	cache := NewTokenCache(ExchangerFunc(func(ctx context.Context) (*CachedToken, error) {
		exchanges.Add(1)
		return &CachedToken{Token: "T1", ExpiresAt: expires}, nil
	}))

	var (
		mu   sync.Mutex
		seen []string
	)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer api.Close()

	client := &http.Client{Transport: &oauth2.Transport{Source: cache.TokenSource(context.Background()), Base: api.Client().Transport}}
	for i := 0; i < 3; i++ {
		resp, err := client.Get(api.URL)
		require.NoError(t, err)
		resp.Body.Close()
	}

	mu.Lock()
	assert.Equal(t, []string{"Bearer T1", "Bearer T1", "Bearer T1"}, seen)
	mu.Unlock()
	assert.Equal(t, int32(1), exchanges.Load())

	tok, err := cache.TokenSource(context.Background()).Token()
	require.NoError(t, err)
	assert.True(t, expires.Equal(tok.Expiry))
	assert.True(t, tok.Valid())
}
