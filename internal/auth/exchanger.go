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

import "context"

// Exchanger obtains a fresh token from a token-issuing endpoint.
// Implementations perform exactly one network exchange per call and never retry.
type Exchanger interface {
	Exchange(ctx context.Context) (*CachedToken, error)
}

// ExchangerFunc adapts a function to the Exchanger interface.
type ExchangerFunc func(ctx context.Context) (*CachedToken, error)

// Exchange implements Exchanger.
func (f ExchangerFunc) Exchange(ctx context.Context) (*CachedToken, error) {
	return f(ctx)
}
