package apiclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BurstUpToCapacity(t *testing.T) {
	rl := NewRateLimiter(3, 1.0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		err := rl.Acquire(ctx)
		require.NoError(t, err)
	}

	assert.Less(t, time.Since(start), 100*time.Millisecond, "Full bucket should allow a burst without waiting")
}

func TestRateLimiter_BlocksWhenExhausted(t *testing.T) {
	rl := NewRateLimiter(1, 20.0) // refills a token every 50ms
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx))

	start := time.Now()
	err := rl.Acquire(ctx)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond, "Empty bucket should wait for refill")
	assert.Less(t, elapsed, 500*time.Millisecond, "Wait should be bounded by the refill rate")
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	rl := NewRateLimiter(1, 0.01) // over a minute per token
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, rl.Acquire(ctx))

	cancel()
	err := rl.Acquire(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
