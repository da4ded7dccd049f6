package service

import (
	"time"

	"picksearch-partner-api/internal/core/domain"
)

// DefaultRetryIntervals is the delay before retry N (15s, 1m, 2m, 5m, 10m).
var DefaultRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// RetryPolicy decides what happens to a delivery after each attempt.
type RetryPolicy struct {
	intervals []time.Duration
}

// NewRetryPolicy creates a policy. Empty intervals mean DefaultRetryIntervals.
func NewRetryPolicy(intervals []time.Duration) *RetryPolicy {
	if len(intervals) == 0 {
		intervals = DefaultRetryIntervals
	}
	return &RetryPolicy{intervals: intervals}
}

// MaxAttempts is the first attempt plus one per interval.
func (p *RetryPolicy) MaxAttempts() int {
	return len(p.intervals) + 1
}

// Apply records result on the attempt and moves it to its next status.
// attempt.Attempts must already count the attempt that produced result.
func (p *RetryPolicy) Apply(attempt *domain.DeliveryAttempt, result domain.DeliveryResult, now time.Time) domain.DeliveryStatus {
	attempt.UpdatedAt = now
	attempt.HTTPStatus = nil
	if result.StatusCode > 0 {
		code := result.StatusCode
		attempt.HTTPStatus = &code
	}

	if result.Outcome == domain.OutcomeDelivered {
		attempt.Status = domain.DeliveryStatusDelivered
		attempt.DeliveredAt = &now
		attempt.NextAttemptAt = nil
		attempt.LastError = nil
		return attempt.Status
	}

	msg := result.ErrorMessage()
	attempt.LastError = &msg

	if !result.Retryable() || attempt.Attempts >= p.MaxAttempts() {
		attempt.Status = domain.DeliveryStatusExhausted
		attempt.NextAttemptAt = nil
		return attempt.Status
	}

	idx := attempt.Attempts - 1
	if idx < 0 {
		idx = 0
	}
	next := now.Add(p.intervals[idx])
	attempt.Status = domain.DeliveryStatusFailed
	attempt.NextAttemptAt = &next
	return attempt.Status
}
