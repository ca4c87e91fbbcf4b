package ipc

import (
	"sync"
	"time"
)

// RateLimiter caps authentication attempts in a sliding window. The window
// is global rather than per-client: peers are local processes and anything
// they claim about themselves (like a PID) is under their control, so a
// per-identity budget would be trivial to sidestep.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	mu          sync.Mutex
	attempts    []time.Time
}

// NewRateLimiter creates a rate limiter with the given max attempts per window.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Allow checks whether another auth attempt may proceed. If allowed, it
// records the attempt.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	// Prune expired entries
	pruned := r.attempts[:0]
	for _, t := range r.attempts {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}
	r.attempts = pruned

	if len(r.attempts) >= r.maxAttempts {
		return false
	}
	r.attempts = append(r.attempts, now)
	return true
}

// Reset clears all rate limit state (for testing).
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = nil
}
