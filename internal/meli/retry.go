package meli

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig is pure configuration; ExponentialBackoff adds the per-call
// attempt counter.
type RetryConfig struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	ExponentialBase   float64
	JitterMin         float64 // multiplicative
	JitterMax         float64
	RespectRetryAfter bool
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       4,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		ExponentialBase:   2.0,
		JitterMin:         0.5,
		JitterMax:         1.5,
		RespectRetryAfter: true,
	}
}

// ExponentialBackoff computes per-attempt delays for one logical operation.
// Not safe for concurrent use; create one per operation.
type ExponentialBackoff struct {
	cfg     RetryConfig
	attempt int
	rng     *rand.Rand
}

// NewBackoff creates a backoff for one operation.
func NewBackoff(cfg RetryConfig) *ExponentialBackoff {
	return &ExponentialBackoff{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// newSeededBackoff pins the jitter source, for deterministic tests.
func newSeededBackoff(cfg RetryConfig, seed int64) *ExponentialBackoff {
	return &ExponentialBackoff{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Next returns the delay before the next attempt and advances the counter.
// The exponential value is capped at MaxDelay before jitter is applied.
func (b *ExponentialBackoff) Next() time.Duration {
	d := time.Duration(float64(b.cfg.InitialDelay) * math.Pow(b.cfg.ExponentialBase, float64(b.attempt)))
	b.attempt++
	if d > b.cfg.MaxDelay || d <= 0 {
		d = b.cfg.MaxDelay
	}
	jitter := b.cfg.JitterMin + b.rng.Float64()*(b.cfg.JitterMax-b.cfg.JitterMin)
	return time.Duration(float64(d) * jitter)
}

// Reset rewinds the attempt counter for a new logical operation.
func (b *ExponentialBackoff) Reset() { b.attempt = 0 }

// Attempt returns how many delays have been handed out.
func (b *ExponentialBackoff) Attempt() int { return b.attempt }

// retryableStatus reports whether an HTTP status is worth retrying: 5xx and
// 429 only. Every other 4xx is a terminal answer, not a transient fault.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// attemptOutcome is what one attempt tells the retry loop.
type attemptOutcome struct {
	err        error // transport-level failure, retryable
	status     int   // HTTP status, 0 when err != nil
	retryAfter string
}

// retry runs fn up to MaxAttempts times, sleeping between attempts. fn
// returns (done, outcome): done stops the loop regardless of outcome. A
// Retry-After value on a 429/503 overrides the computed backoff when the
// policy says to respect it.
func retry(ctx context.Context, cfg RetryConfig, fn func() (bool, attemptOutcome)) (attemptOutcome, int) {
	backoff := NewBackoff(cfg)
	var last attemptOutcome

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		done, out := fn()
		last = out
		if done {
			return out, attempt + 1
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		delay := backoff.Next()
		if cfg.RespectRetryAfter && out.retryAfter != "" &&
			(out.status == http.StatusTooManyRequests || out.status == http.StatusServiceUnavailable) {
			delay = time.Duration(ParseRetryAfter(out.retryAfter)) * time.Second
		}

		select {
		case <-ctx.Done():
			return last, attempt + 1
		case <-time.After(delay):
		}
	}
	return last, cfg.MaxAttempts
}
