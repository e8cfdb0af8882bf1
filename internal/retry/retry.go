package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"p2p-premium/internal/premium"
)

// Policy bounds how often and how long an operation is retried.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

// DefaultPolicy mirrors the refresh cadence of the dashboard: three tries,
// two seconds apart, five seconds each.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: 2 * time.Second, Timeout: 5 * time.Second}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Retrier applies a Policy to fetch operations.
type Retrier struct {
	policy Policy
	sleep  Sleeper
	logger zerolog.Logger
}

// Option customises a Retrier.
type Option func(*Retrier)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s Sleeper) Option {
	return func(r *Retrier) {
		if s != nil {
			r.sleep = s
		}
	}
}

// New builds a Retrier. Non-positive attempts fall back to one try.
func New(policy Policy, logger zerolog.Logger, opts ...Option) *Retrier {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}
	if policy.Delay < 0 {
		policy.Delay = 0
	}
	r := &Retrier{
		policy: policy,
		sleep:  sleepContext,
		logger: logger.With().Str("component", "retry").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the effective policy.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs fn until it succeeds or the policy is exhausted. The returned error,
// if any, always matches premium.ErrDataUnavailable and wraps the last cause.
func Do[T any](ctx context.Context, r *Retrier, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		value, err := runAttempt(ctx, r.policy.Timeout, fn)
		if err == nil {
			if attempt > 1 {
				r.logger.Debug().Str("op", name).Int("attempt", attempt).Msg("succeeded after retry")
			}
			return value, nil
		}
		lastErr = err

		r.logger.Debug().Err(err).Str("op", name).Int("attempt", attempt).Int("attempts", r.policy.Attempts).Msg("attempt failed")

		if attempt == r.policy.Attempts {
			break
		}
		if err := r.sleep(ctx, r.policy.Delay); err != nil {
			lastErr = err
			break
		}
	}

	r.logger.Warn().Err(lastErr).Str("op", name).Msg("retries exhausted")
	return zero, &UnavailableError{Op: name, Err: lastErr}
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (value T, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	return fn(ctx)
}

// UnavailableError reports an operation whose retry budget ran out.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, premium.ErrDataUnavailable)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, premium.ErrDataUnavailable, e.Err)
}

// Is matches premium.ErrDataUnavailable.
func (e *UnavailableError) Is(target error) bool {
	return target == premium.ErrDataUnavailable
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
