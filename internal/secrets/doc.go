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

// Package secrets resolves secret references used in apibind configuration.
//
// Credential material (static tokens, app private keys, OAuth2 client
// secrets) is never written literally in configuration. Instead a reference
// names where to find it:
//
//	${GITHUB_TOKEN}              environment variable
//	env:GITHUB_TOKEN             environment variable
//	file:/etc/apibind/app.pem    file contents, trailing whitespace trimmed
//	keychain:github-app-key      OS keychain entry (service "apibind")
//
// A Resolver maps each scheme to a Backend. Backends report missing
// secrets with ErrSecretNotFound and unusable stores with
// ErrBackendUnavailable so callers can tell the two apart with errors.Is.
package secrets
