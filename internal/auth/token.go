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

import "time"

// CachedToken is a token obtained from an exchange. It is replaced wholesale
// on refresh and never mutated.
type CachedToken struct {
	Token     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token can be used at now. A zero ExpiresAt
// never expires. skew moves the expiry earlier.
func (t CachedToken) ValidAt(now time.Time, skew time.Duration) bool {
	if t.Token == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(skew).Before(t.ExpiresAt)
}
