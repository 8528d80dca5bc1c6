package guard

import (
	"context"
	"sync"
	"time"

	"github.com/attaboy/lifestats/internal/domain"
)

// IdempotencyGuard deduplicates record creation by Idempotency-Key. Keys are
// forgotten after ttl.
type IdempotencyGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewIdempotencyGuard creates an in-memory idempotency guard.
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	return &IdempotencyGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Check returns whether the given key has already been processed. An empty
// key is always allowed.
func (ig *IdempotencyGuard) Check(_ context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	now := ig.now()
	if at, ok := ig.seen[key]; ok && (ig.ttl <= 0 || now.Sub(at) < ig.ttl) {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "duplicate request: idempotency key already processed",
			Guard:   "idempotency",
		}
	}

	ig.seen[key] = now
	return domain.GuardResult{Allowed: true}
}

// Remove deletes a key so a failed request can be retried.
func (ig *IdempotencyGuard) Remove(key string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	delete(ig.seen, key)
}

// Sweep forgets keys older than the ttl.
func (ig *IdempotencyGuard) Sweep() {
	if ig.ttl <= 0 {
		return
	}
	ig.mu.Lock()
	defer ig.mu.Unlock()
	now := ig.now()
	for key, at := range ig.seen {
		if now.Sub(at) >= ig.ttl {
			delete(ig.seen, key)
		}
	}
}
