package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

// Policy controls how often and how patiently a call is retried.
type Policy struct {
	MaxRetries int
	Backoff    time.Duration
	// Timeout bounds each attempt. Zero means only ctx bounds it.
	Timeout time.Duration
}

var DefaultPolicy = Policy{MaxRetries: 3, Backoff: 500 * time.Millisecond, Timeout: 30 * time.Second}

// Permanent marks err so that Do returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return retry.Unrecoverable(err)
}

// Do calls fn until it succeeds, returns a Permanent error or the policy is
// exhausted. The delay doubles after every failed attempt.
func Do[T any](ctx context.Context, policy Policy, logger *zap.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	if policy.Backoff <= 0 {
		policy.Backoff = 100 * time.Millisecond
	}

	var out T
	err := retry.Do(
		func() error {
			actx := ctx
			if policy.Timeout > 0 {
				var cancel context.CancelFunc
				actx, cancel = context.WithTimeout(ctx, policy.Timeout)
				defer cancel()
			}
			var err error
			out, err = fn(actx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(policy.MaxRetries)+1),
		retry.Delay(policy.Backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("retrying", zap.String("op", op), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	return out, err
}
