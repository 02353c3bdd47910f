package orchestrator

import (
	"context"
	"math/rand"
	"time"

	"github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/config"
	bferrors "github.com/kashif-saeed1122/Booking-writting-ai-agent/pkg/errors"
)

// retryer runs an operation with bounded retries for transient
// failures. Permanent errors come back immediately.
type retryer struct {
	policy config.RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

func newRetryer(policy config.RetryPolicy) *retryer {
	return &retryer{
		policy: policy,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// do runs fn until it succeeds, fails permanently, or the retry budget
// is spent. The attempt count passed to fn starts at 0.
func (r *retryer) do(ctx context.Context, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := r.sleep(ctx, r.backoff(attempt-1)); err != nil {
				return err
			}
		}
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if !bferrors.IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// backoff calculates the delay before the next attempt using
// exponential growth with jitter so parallel workers do not retry in
// lockstep.
func (r *retryer) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return r.policy.InitialBackoff
	}

	delay := float64(r.policy.InitialBackoff)
	for i := 0; i < attempt; i++ {
		delay *= r.policy.Multiplier
	}
	if delay > float64(r.policy.MaxBackoff) {
		delay = float64(r.policy.MaxBackoff)
	}

	jitter := time.Duration(rand.Float64() * delay * 0.5)
	delay = delay*0.75 + float64(jitter)

	return time.Duration(delay)
}
