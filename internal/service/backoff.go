package service

import "time"

const (
	DefaultRetryBaseDelay = 5 * time.Minute
	DefaultMaxAttempts    = 3
)

// BackoffPolicy decides when a failed post may be attempted again. It holds
// no state; callers pass the current time in.
type BackoffPolicy struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

func NewBackoffPolicy(baseDelay time.Duration, maxAttempts int) BackoffPolicy {
	if baseDelay <= 0 {
		baseDelay = DefaultRetryBaseDelay
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return BackoffPolicy{BaseDelay: baseDelay, MaxAttempts: maxAttempts}
}

// NextDelay is BaseDelay * 2^(attemptCount-1).
func (b BackoffPolicy) NextDelay(attemptCount int) time.Duration {
	if attemptCount < 1 {
		attemptCount = 1
	}
	// keep the shift in range
	if attemptCount > 30 {
		attemptCount = 30
	}
	return b.BaseDelay * time.Duration(1<<(attemptCount-1))
}

func (b BackoffPolicy) IsEligible(attemptCount int, lastAttemptAt *time.Time, now time.Time) bool {
	if lastAttemptAt == nil {
		return true
	}
	return !now.Before(lastAttemptAt.Add(b.NextDelay(attemptCount)))
}

// CanRetry reports whether the attempt ceiling still leaves room for another try.
func (b BackoffPolicy) CanRetry(attemptCount int) bool {
	return attemptCount < b.MaxAttempts
}
