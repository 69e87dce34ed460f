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

// Package auth supplies the Authorization header for outbound API calls.
//
// Static credentials are attached as-is. Dynamic credentials (GitHub App
// installations, OAuth2 client credentials) are exchanged for short-lived
// tokens through a TokenCache, which guarantees that at most one exchange per
// credential is in flight no matter how many requests need a token at once.
package auth

import (
	"crypto/rsa"
	"fmt"
	"strings"

	apierrors "github.com/tombee/apibind/pkg/errors"
)

// Default Authorization header schemes.
const (
	SchemeBearer = "Bearer"
	SchemeToken  = "token"
)

// Credential describes how requests to one service are authenticated.
// Implementations are immutable once constructed.
type Credential interface {
	// Kind returns the credential kind as used in configuration.
	Kind() string

	// Validate checks that the credential is complete.
	Validate() error
}

// StaticCredential is an opaque API key sent on every request.
type StaticCredential struct {
	Token string

	// Scheme prefixes the token in the Authorization header. Default: Bearer.
	Scheme string
}

// Kind implements Credential.
func (c StaticCredential) Kind() string { return "static" }

// Validate implements Credential.
func (c StaticCredential) Validate() error {
	if strings.TrimSpace(c.Token) == "" {
		return &apierrors.ValidationError{Field: "token", Message: "static token is empty"}
	}
	return nil
}

// AppCredential identifies a GitHub App installation. A signed assertion
// built from PrivateKey and AppID is exchanged for an installation token.
type AppCredential struct {
	// AppID is the issuer of the signed assertion.
	AppID string

	// InstallationID selects the installation the token is scoped to.
	InstallationID string

	// PrivateKey signs the RS256 assertion.
	PrivateKey *rsa.PrivateKey

	// BaseURL of the API that issues installation tokens.
	// Default: https://api.github.com
	BaseURL string
}

// Kind implements Credential.
func (c AppCredential) Kind() string { return "app_installation" }

// Validate implements Credential.
func (c AppCredential) Validate() error {
	switch {
	case c.AppID == "":
		return &apierrors.ValidationError{Field: "app_id", Message: "app ID is required"}
	case c.InstallationID == "":
		return &apierrors.ValidationError{Field: "installation_id", Message: "installation ID is required"}
	case c.PrivateKey == nil:
		return &apierrors.ValidationError{
			Field:      "private_key",
			Message:    "private key is required",
			Suggestion: "reference the PEM file with file:/path/to/key.pem or keychain:apibind/<name>",
		}
	}
	return nil
}

// String names the credential without exposing key material.
func (c AppCredential) String() string {
	return fmt.Sprintf("app %s/installation %s", c.AppID, c.InstallationID)
}

// ClientCredentials is an OAuth2 client-credentials grant.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Kind implements Credential.
func (c ClientCredentials) Kind() string { return "client_credentials" }

// Validate implements Credential.
func (c ClientCredentials) Validate() error {
	switch {
	case c.ClientID == "":
		return &apierrors.ValidationError{Field: "client_id", Message: "client ID is required"}
	case c.ClientSecret == "":
		return &apierrors.ValidationError{Field: "client_secret", Message: "client secret is required"}
	case c.TokenURL == "":
		return &apierrors.ValidationError{Field: "token_url", Message: "token URL is required"}
	}
	return nil
}

// String names the credential without exposing the secret.
func (c ClientCredentials) String() string {
	return fmt.Sprintf("client %s", c.ClientID)
}
