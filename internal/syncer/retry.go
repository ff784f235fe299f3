package syncer

import (
	"math"
	"time"

	"smartstock/internal/config"
)

// RetryPolicy defines exponential backoff parameters for failed
// submissions. When disabled, failed operations are retried on every
// subsequent pass with no delay.
type RetryPolicy struct {
	Enabled       bool
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// PolicyFromConfig builds a policy from the sync backoff section.
func PolicyFromConfig(cfg config.BackoffConfig) RetryPolicy {
	return RetryPolicy{
		Enabled:       cfg.Enabled,
		InitialDelay:  cfg.InitialDelay(),
		MaxDelay:      cfg.MaxDelay(),
		BackoffFactor: cfg.BackoffFactor,
	}
}

// NextDelay returns the delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// NextRetryAt computes the earliest time the next attempt may run, or nil
// when backoff is disabled.
func (r RetryPolicy) NextRetryAt(now time.Time, attempt int) *time.Time {
	if !r.Enabled {
		return nil
	}
	at := now.Add(r.NextDelay(attempt))
	return &at
}
