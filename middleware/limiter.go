package middleware

import (
	"sync"
	"time"
)

// RateLimiter spaces completion calls at least interval apart across all
// roles sharing the middleware instance. With interval 0 it is a no-op.
type RateLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewRateLimiter creates a pacing middleware.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Name returns the middleware name.
func (m *RateLimiter) Name() string { return "RateLimiter" }

// Execute waits for the next allowed slot, then continues the chain.
func (m *RateLimiter) Execute(ctx *Context, next Handler) error {
	if m.interval > 0 {
		m.mu.Lock()
		now := time.Now()
		wait := m.next.Sub(now)
		if wait < 0 {
			wait = 0
		}
		m.next = now.Add(wait + m.interval)
		m.mu.Unlock()

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Context().Done():
				timer.Stop()
				return ctx.Context().Err()
			case <-timer.C:
			}
		}
	}
	return next(ctx)
}
