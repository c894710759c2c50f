package osrs

import (
	"sync"
	"time"
)

// RateLimiter tracks upstream request budget over a one minute window.
// The wiki API is free and unauthenticated; staying well under its
// courtesy limits avoids an IP ban that would starve the whole cache.
type RateLimiter struct {
	mu             sync.Mutex
	requestCount   int
	requestResetAt time.Time
	maxRequests    int
}

// NewRateLimiter creates a limiter allowing maxPerMinute requests
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	if maxPerMinute <= 0 {
		maxPerMinute = 30
	}
	return &RateLimiter{
		maxRequests:    maxPerMinute,
		requestResetAt: time.Now().Add(time.Minute),
	}
}

// TryAcquire atomically checks and records one request slot.
// Returns false plus a suggested wait time when the budget is spent.
func (r *RateLimiter) TryAcquire() (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.After(r.requestResetAt) {
		r.requestCount = 0
		r.requestResetAt = now.Add(time.Minute)
	}

	if r.requestCount >= r.maxRequests {
		wait := time.Until(r.requestResetAt)
		if wait < 0 {
			wait = 100 * time.Millisecond
		}
		return false, wait
	}

	r.requestCount++
	return true, 0
}
