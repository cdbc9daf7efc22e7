package generation

import "time"

// RetryPolicy bounds same-tier retries of transient failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy allows two retries (three attempts per tier) spaced
// one and two seconds apart.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 2, BaseDelay: time.Second}

// ShouldRetry reports whether attempt attemptIndex (0-based within the tier)
// that failed with kind is followed by another attempt at the same tier.
func (p RetryPolicy) ShouldRetry(attemptIndex int, kind ErrorKind) bool {
	return kind.Transient() && attemptIndex < p.retries()
}

// Backoff is the delay before retry number attemptIndex (1-based).
func (p RetryPolicy) Backoff(attemptIndex int) time.Duration {
	if attemptIndex < 1 || p.BaseDelay <= 0 {
		return 0
	}
	return time.Duration(attemptIndex) * p.BaseDelay
}

// MaxAttempts is the hard upper bound on attempts across a cascade of
// the given size.
func (p RetryPolicy) MaxAttempts(tiers int) int {
	return tiers * (p.retries() + 1)
}

func (p RetryPolicy) retries() int {
	if p.MaxRetries < 0 {
		return 0
	}
	return p.MaxRetries
}
