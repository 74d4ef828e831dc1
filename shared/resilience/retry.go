package resilience

import (
	"context"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type RetryConfig struct {
	MaxAttempts       uint
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2,
	}
}

type RetryHook func(ctx context.Context, attempt uint, err error, nextDelay time.Duration)

// Retryable marks an error as transient. Errors that do not implement it
// abort the retry loop immediately.
type Retryable interface {
	Retryable() (bool, time.Duration)
}

// Do runs fn until it succeeds, the attempt budget is spent, or the context
// is done. Delays follow an exponential schedule up to MaxDelay unless the
// error carries its own retry-after hint.
func Do(ctx context.Context, cfg *RetryConfig, hook RetryHook, fn func(ctx context.Context) error) error {
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = cfg.InitialDelay
	schedule.MaxInterval = cfg.MaxDelay
	schedule.Multiplier = cfg.BackoffMultiplier

	var attempt uint
	operation := func() (struct{}, error) {
		attempt++
		err := fn(ctx)
		if err == nil {
			return struct{}{}, nil
		}

		var retryable Retryable
		if !asRetryable(err, &retryable) {
			return struct{}{}, backoff.Permanent(err)
		}
		canRetry, after := retryable.Retryable()
		if !canRetry {
			return struct{}{}, backoff.Permanent(err)
		}
		if after > 0 {
			return struct{}{}, backoff.RetryAfter(int(math.Ceil(after.Seconds())))
		}
		return struct{}{}, err
	}

	notify := func(err error, next time.Duration) {
		if hook != nil {
			hook(ctx, attempt, err, next)
		}
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(schedule),
		backoff.WithMaxTries(cfg.MaxAttempts),
		backoff.WithNotify(notify),
	)
	return err
}

func asRetryable(err error, target *Retryable) bool {
	for err != nil {
		if r, ok := err.(Retryable); ok {
			*target = r
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
