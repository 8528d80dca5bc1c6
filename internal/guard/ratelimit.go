package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
)

// RateLimiter implements a sliding window rate limiter keyed by client.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter with the given limit per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Check returns a GuardResult indicating whether the key is within rate limits.
// A blocked result carries the time until the oldest request leaves the window.
func (rl *RateLimiter) Check(_ context.Context, key string) domain.GuardResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.prune(key, now)

	if len(valid) >= rl.limit {
		rl.windows[key] = valid
		retry := rl.window
		if len(valid) > 0 {
			retry = valid[0].Add(rl.window).Sub(now)
		}
		return domain.GuardResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("rate limit exceeded: %d/%s", rl.limit, rl.window),
			Guard:      "rate_limiter",
			RetryAfter: retry,
		}
	}

	rl.windows[key] = append(valid, now)
	return domain.GuardResult{Allowed: true}
}

// Sweep drops keys with no requests inside the window.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key := range rl.windows {
		if valid := rl.prune(key, now); len(valid) == 0 {
			delete(rl.windows, key)
		} else {
			rl.windows[key] = valid
		}
	}
}

// Keys reports how many clients are currently tracked.
func (rl *RateLimiter) Keys() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

func (rl *RateLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-rl.window)
	entries := rl.windows[key]
	valid := entries[:0]
	for _, t := range entries {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}
