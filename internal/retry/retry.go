// Package retry runs operations with jittered exponential backoff.
package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// Policy controls how often and how long to retry.
type Policy struct {
	Attempts int           // Total attempts including the first.
	Base     time.Duration // Delay before the second attempt.
	Max      time.Duration // Cap on the un-jittered delay.
}

// DefaultPolicy matches the rationale client's retry budget.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Base: time.Second, Max: 30 * time.Second}
}

// Backoff returns a duration for attempt n (0-indexed) with up to 50% jitter.
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.Base << uint(attempt)
	if p.Max > 0 && (base > p.Max || base <= 0) {
		base = p.Max
	}
	if base <= 0 {
		return 0
	}
	half := int64(base) / 2
	if half <= 0 {
		return base
	}
	return base + time.Duration(rand.Int64N(half))
}

// Do calls fn until it succeeds, returns an error retryable rejects, or the
// attempts run out. A nil retryable treats every error as retryable. The
// last error is returned; ctx cancellation during a wait returns ctx.Err().
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := range attempts {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(p.Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
