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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/tombee/apibind/pkg/errors"
)

// DefaultGitHubBaseURL is used when AppCredential.BaseURL is empty.
const DefaultGitHubBaseURL = "https://api.github.com"

const (
	// assertionBackdate absorbs clock drift between us and the token issuer.
	assertionBackdate = 60 * time.Second
	// assertionLifetime is the maximum GitHub accepts.
	assertionLifetime = 10 * time.Minute

	maxTokenResponseBytes = 1 << 20
)

// InstallationExchanger exchanges a signed app assertion for an installation
// access token.
type InstallationExchanger struct {
	Credential AppCredential

	// Client performs the exchange. Required.
	Client *http.Client

	// Now is the clock for assertion claims. Nil uses time.Now.
	Now func() time.Time
}

type installationTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Assertion returns the RS256 JWT presented to the token endpoint.
func (e *InstallationExchanger) Assertion() (string, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	issued := now().Add(-assertionBackdate)

	claims := jwt.RegisteredClaims{
		Issuer:    e.Credential.AppID,
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(assertionBackdate + assertionLifetime)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(e.Credential.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign app assertion: %w", err)
	}
	return signed, nil
}

// TokenURL returns the installation access token endpoint.
func (e *InstallationExchanger) TokenURL() string {
	base := e.Credential.BaseURL
	if base == "" {
		base = DefaultGitHubBaseURL
	}
	return fmt.Sprintf("%s/app/installations/%s/access_tokens",
		strings.TrimSuffix(base, "/"), url.PathEscape(e.Credential.InstallationID))
}

// Exchange implements Exchanger.
func (e *InstallationExchanger) Exchange(ctx context.Context) (*CachedToken, error) {
	if err := e.Credential.Validate(); err != nil {
		return nil, &apierrors.ExchangeError{Credential: e.Credential.String(), Message: "invalid credential", Cause: err}
	}
	if e.Client == nil {
		return nil, &apierrors.ExchangeError{Credential: e.Credential.String(), Message: "no HTTP client configured"}
	}

	assertion, err := e.Assertion()
	if err != nil {
		return nil, &apierrors.ExchangeError{Credential: e.Credential.String(), Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.TokenURL(), nil)
	if err != nil {
		return nil, &apierrors.ExchangeError{Credential: e.Credential.String(), Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+assertion)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, &apierrors.ExchangeError{Credential: e.Credential.String(), Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, &apierrors.ExchangeError{
			Credential: e.Credential.String(),
			StatusCode: resp.StatusCode,
			Message:    "failed to read token response",
			Cause:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apierrors.ExchangeError{
			Credential: e.Credential.String(),
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	var out installationTokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &apierrors.ExchangeError{
			Credential: e.Credential.String(),
			StatusCode: resp.StatusCode,
			Message:    "malformed token response",
			Cause:      apierrors.NewDecodeError(&out, resp.StatusCode, body, err),
		}
	}
	if out.Token == "" {
		return nil, &apierrors.ExchangeError{
			Credential: e.Credential.String(),
			StatusCode: resp.StatusCode,
			Message:    "malformed token response",
			Cause:      apierrors.NewDecodeError(&out, resp.StatusCode, body, fmt.Errorf("missing token field")),
		}
	}

	return &CachedToken{Token: out.Token, ExpiresAt: out.ExpiresAt}, nil
}

// errorMessage extracts a short message from a token endpoint error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Message != "":
			return payload.Message
		case payload.ErrorDescription != "":
			return payload.Error + ": " + payload.ErrorDescription
		case payload.Error != "":
			return payload.Error
		}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
