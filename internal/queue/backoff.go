package queue

import "time"

// BackoffPolicy describes the exponential backoff applied between retry
// attempts for one item.
type BackoffPolicy struct {
	// MaxRetries is the number of retries permitted after the first attempt.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
}

// DefaultBackoffPolicy returns a BackoffPolicy with reasonable defaults.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		MaxRetries: 2,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Backoff computes the delay before retry number attempt (zero-based):
// min(BaseDelay * 2^attempt, MaxDelay). Negative attempts are treated as
// zero.
func (p BackoffPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}

	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}
