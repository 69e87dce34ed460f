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
	"log/slog"
	"sync"
	"time"

	"github.com/tombee/apibind/internal/log"
	"github.com/tombee/apibind/internal/tracing"
	apierrors "github.com/tombee/apibind/pkg/errors"
)

// TokenCache caches the token produced by an Exchanger and coalesces
// concurrent misses into a single exchange.
//
// State is one of Empty, Pending(exchange) or Ready(token), guarded by mu.
// An exchange runs in its own goroutine on a context detached from the
// caller that started it, so cancelling any one waiter never aborts it.
// Failures are delivered to every waiter of that exchange and never cached.
type TokenCache struct {
	exchanger Exchanger
	name      string
	now       func() time.Time
	skew      time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	token   *CachedToken
	pending *exchange
}

// exchange is the shared result of one in-flight exchange.
// token and err are written before done is closed and never after.
type exchange struct {
	done  chan struct{}
	token *CachedToken
	err   error
}

// CacheOption configures a TokenCache.
type CacheOption func(*TokenCache)

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) CacheOption {
	return func(c *TokenCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRefreshSkew treats tokens as expired skew before their ExpiresAt.
// Default: 0.
func WithRefreshSkew(skew time.Duration) CacheOption {
	return func(c *TokenCache) {
		if skew > 0 {
			c.skew = skew
		}
	}
}

// WithLogger sets the logger for exchange events.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *TokenCache) {
		c.logger = logger
	}
}

// WithName labels the cache in logs, metrics, spans and errors.
func WithName(name string) CacheOption {
	return func(c *TokenCache) {
		c.name = name
	}
}

// NewTokenCache creates an empty cache over ex.
func NewTokenCache(ex Exchanger, opts ...CacheOption) *TokenCache {
	c := &TokenCache{
		exchanger: ex,
		name:      "default",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = log.WithComponent(c.logger, "auth").With("credential", c.name)
	return c
}

// Name returns the cache label.
func (c *TokenCache) Name() string {
	return c.name
}

// Token returns a valid token, exchanging for a new one when the cache is
// empty or expired. Concurrent callers share a single exchange.
//
// Exchange failures are returned as *errors.ExchangeError. If ctx is done
// before the exchange finishes, Token returns ctx.Err() and the exchange
// continues for the remaining waiters.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	tok, err := c.get(ctx)
	if err != nil {
		return "", err
	}
	return tok.Token, nil
}

func (c *TokenCache) get(ctx context.Context) (CachedToken, error) {
	c.mu.Lock()
	if c.token != nil && c.token.ValidAt(c.now(), c.skew) {
		tok := *c.token
		c.mu.Unlock()
		tokenCacheHits.WithLabelValues(c.name).Inc()
		return tok, nil
	}

	ex := c.pending
	if ex == nil {
		ex = &exchange{done: make(chan struct{})}
		c.pending = ex
		go c.run(context.WithoutCancel(ctx), ex)
	} else {
		tokenCoalescedWaiters.WithLabelValues(c.name).Inc()
	}
	c.mu.Unlock()

	select {
	case <-ex.done:
		if ex.err != nil {
			return CachedToken{}, ex.err
		}
		return *ex.token, nil
	case <-ctx.Done():
		return CachedToken{}, ctx.Err()
	}
}

// run performs one exchange and publishes its outcome.
func (c *TokenCache) run(ctx context.Context, ex *exchange) {
	ctx, span := tracing.StartClientSpan(ctx, "auth.exchange", tracing.AttrCredential.String(c.name))
	start := time.Now()

	tok, err := c.exchanger.Exchange(ctx)
	if err == nil && (tok == nil || tok.Token == "") {
		err = &apierrors.ExchangeError{Message: "token endpoint returned an empty token"}
	}
	if err != nil {
		err = c.exchangeError(err)
		tok = nil
	}

	c.mu.Lock()
	if err == nil {
		c.token = tok
	}
	ex.token, ex.err = tok, err
	c.pending = nil
	c.mu.Unlock()
	close(ex.done)

	elapsed := time.Since(start)
	recordExchange(c.name, elapsed.Seconds(), err)
	tracing.EndSpan(span, err)

	if err != nil {
		c.logger.WarnContext(ctx, "token exchange failed",
			log.DurationKey, elapsed.Milliseconds(),
			log.Error(err),
		)
		return
	}
	c.logger.DebugContext(ctx, "token exchanged",
		"token", log.SanitizeToken(tok.Token),
		"expires_at", tok.ExpiresAt,
		log.DurationKey, elapsed.Milliseconds(),
	)
}

// exchangeError normalizes err to an *ExchangeError labelled with the cache name.
func (c *TokenCache) exchangeError(err error) error {
	var exErr *apierrors.ExchangeError
	if errors.As(err, &exErr) {
		if exErr.Credential != "" {
			return exErr
		}
		labelled := *exErr
		labelled.Credential = c.name
		return &labelled
	}
	return &apierrors.ExchangeError{Credential: c.name, Cause: err}
}

// Cached returns the cached token without triggering an exchange.
// The token may be expired.
func (c *TokenCache) Cached() (CachedToken, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return CachedToken{}, false
	}
	return *c.token, true
}

// Invalidate drops the cached token. An exchange already in flight is not
// affected and will populate the cache when it completes.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
}

// InvalidateToken drops the cached token only if it is still token.
// It reports whether anything was dropped.
func (c *TokenCache) InvalidateToken(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil || c.token.Token != token {
		return false
	}
	c.token = nil
	return true
}
