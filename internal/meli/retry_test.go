package meli

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffCappedAndJittered(t *testing.T) {
	cfg := RetryConfig{
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        1 * time.Second,
		ExponentialBase: 2.0,
		JitterMin:       0.5,
		JitterMax:       1.5,
	}
	b := newSeededBackoff(cfg, 42)

	prevBase := time.Duration(0)
	for i := 0; i < 10; i++ {
		d := b.Next()
		if d > time.Duration(float64(cfg.MaxDelay)*cfg.JitterMax) {
			t.Errorf("attempt %d: delay %v exceeds jittered cap", i, d)
		}
		if d < time.Duration(float64(cfg.InitialDelay)*cfg.JitterMin) {
			t.Errorf("attempt %d: delay %v below jittered floor", i, d)
		}
		_ = prevBase
	}
	if b.Attempt() != 10 {
		t.Errorf("attempt counter = %d, want 10", b.Attempt())
	}

	b.Reset()
	if b.Attempt() != 0 {
		t.Error("Reset should rewind the counter")
	}
}

func TestBackoffDeterministicWithSeed(t *testing.T) {
	cfg := DefaultRetryConfig()
	a := newSeededBackoff(cfg, 7)
	b := newSeededBackoff(cfg, 7)
	for i := 0; i < 5; i++ {
		if da, db := a.Next(), b.Next(); da != db {
			t.Fatalf("attempt %d: %v != %v for identical seeds", i, da, db)
		}
	}
}

func TestRetryableStatus(t *testing.T) {
	for _, s := range []int{429, 500, 502, 503, 504} {
		if !retryableStatus(s) {
			t.Errorf("status %d should be retryable", s)
		}
	}
	for _, s := range []int{400, 401, 403, 404, 200} {
		if retryableStatus(s) {
			t.Errorf("status %d should not be retryable", s)
		}
	}
}

func TestRetryStopsWhenDone(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, ExponentialBase: 2, JitterMin: 1, JitterMax: 1}

	calls := 0
	_, attempts := retry(context.Background(), cfg, func() (bool, attemptOutcome) {
		calls++
		return true, attemptOutcome{status: 200}
	})
	if calls != 1 || attempts != 1 {
		t.Errorf("calls = %d attempts = %d, want 1 and 1", calls, attempts)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, ExponentialBase: 2, JitterMin: 1, JitterMax: 1}

	calls := 0
	out, attempts := retry(context.Background(), cfg, func() (bool, attemptOutcome) {
		calls++
		return false, attemptOutcome{err: errors.New("reset")}
	})
	if calls != 3 || attempts != 3 {
		t.Errorf("calls = %d attempts = %d, want 3 and 3", calls, attempts)
	}
	if out.err == nil {
		t.Error("last outcome should carry the transient error")
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       2,
		InitialDelay:      1 * time.Millisecond,
		MaxDelay:          1 * time.Millisecond,
		ExponentialBase:   2,
		JitterMin:         1,
		JitterMax:         1,
		RespectRetryAfter: true,
	}

	start := time.Now()
	retry(context.Background(), cfg, func() (bool, attemptOutcome) {
		return false, attemptOutcome{status: 429, retryAfter: "1"}
	})
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Errorf("elapsed = %v, want Retry-After of 1s to override the 1ms backoff", elapsed)
	}
}

func TestRetryIgnoresRetryAfterWhenDisabled(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:     2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        time.Millisecond,
		ExponentialBase: 2,
		JitterMin:       1,
		JitterMax:       1,
	}

	start := time.Now()
	retry(context.Background(), cfg, func() (bool, attemptOutcome) {
		return false, attemptOutcome{status: 429, retryAfter: "2"}
	})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("elapsed = %v, want header ignored when RespectRetryAfter is off", elapsed)
	}
}
