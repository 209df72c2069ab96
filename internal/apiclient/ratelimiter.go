package apiclient

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket: a capped token count replenished at a fixed
// rate, one token consumed per outbound request. Callers block until a token
// is available. Each client instance owns its own limiter, so the bucket
// scope matches the client lifetime.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func NewRateLimiter(maxTokens int, refillPerSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:     float64(maxTokens),
		maxTokens:  float64(maxTokens),
		refillRate: refillPerSecond,
		lastRefill: time.Now(),
	}
}

func (rl *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens = min(rl.maxTokens, rl.tokens+elapsed*rl.refillRate)
	rl.lastRefill = now
}

// Acquire takes one token, blocking until the bucket refills if none is
// available. The wait is (1 - tokens) / refillRate, the time until a full
// token has accrued. Returns early with the context error on cancellation.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	rl.refill(now)

	if rl.tokens >= 1 {
		rl.tokens--
		rl.mu.Unlock()
		return nil
	}

	wait := time.Duration((1 - rl.tokens) / rl.refillRate * float64(time.Second))
	rl.mu.Unlock()

	select {
	case <-time.After(wait):
	case <-ctx.Done():
		return ctx.Err()
	}

	rl.mu.Lock()
	rl.tokens = 0
	rl.lastRefill = time.Now()
	rl.mu.Unlock()
	return nil
}
