package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0, 10))
	assert.Nil(t, NewRateLimiter(-1, 10))

	limiter := NewRateLimiter(20, 1)
	require.NotNil(t, limiter)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	// burst 1 at 20/s: the 2nd and 3rd calls wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestNewRateLimiter_ContextCancelled(t *testing.T) {
	limiter := NewRateLimiter(0.1, 1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx))
}
