package meli

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between calls across every caller
// sharing one client. Contended callers serialize at the wait boundary only.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
}

// NewRateLimiter creates a limiter for the given calls-per-second budget.
func NewRateLimiter(callsPerSecond float64) (*RateLimiter, error) {
	if callsPerSecond <= 0 {
		return nil, fmt.Errorf("calls per second must be positive, got %v", callsPerSecond)
	}
	return &RateLimiter{
		minInterval: time.Duration(float64(time.Second) / callsPerSecond),
	}, nil
}

// Wait blocks until the minimum interval since the previous call has
// elapsed, or the context is cancelled. The reservation is taken before
// sleeping, so concurrent callers each get their own slot. A caller that is
// cancelled mid-wait keeps its reservation, so the next caller still waits
// out a slot for a call that never happened; the budget stays conservative.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	next := r.last.Add(r.minInterval)
	if next.Before(now) {
		next = now
	}
	r.last = next
	r.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// MinInterval exposes the configured interval.
func (r *RateLimiter) MinInterval() time.Duration {
	return r.minInterval
}
