package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled at a fixed rate per minute. Waiters
// sleep exactly until their token is due instead of polling.
type RateLimiter struct {
	mu       sync.Mutex
	rate     float64 // tokens per second; 0 means unlimited
	burst    float64
	tokens   float64
	lastTime time.Time
	now      func() time.Time
}

// NewRateLimiter allows perMinute requests per minute with at most burst of
// them back to back. A non-positive perMinute disables limiting; burst is at
// least one.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		burst:  float64(burst),
		tokens: float64(burst),
		now:    time.Now,
	}
	if perMinute > 0 {
		rl.rate = float64(perMinute) / 60
	}
	rl.lastTime = rl.now()
	return rl
}

// reserve takes a token if one is available, or reports how long until the
// next one is.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.rate == 0 {
		return 0
	}
	now := rl.now()
	rl.tokens = min(rl.burst, rl.tokens+now.Sub(rl.lastTime).Seconds()*rl.rate)
	rl.lastTime = now

	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	return time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := rl.reserve()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
