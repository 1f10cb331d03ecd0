// Package retry wraps pipeline steps with a fixed-delay retry policy.
package retry

import (
	"context"
	"time"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

const (
	// DefaultMaxAttempts is the number of tries, including the first.
	DefaultMaxAttempts = 3

	// DefaultDelay is the wait between attempts.
	DefaultDelay = 60 * time.Second
)

// Policy defines retry behavior
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	// ShouldRetry decides whether a failed attempt is worth repeating.
	// nil means errors.IsRetryable.
	ShouldRetry func(error) bool
}

// DefaultPolicy retries transient I/O failures three times, one minute apart.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		ShouldRetry: errors.IsRetryable,
	}
}

// NoRetry runs a step exactly once.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

// WithDelay returns a copy of the policy with a different delay
func (p Policy) WithDelay(d time.Duration) Policy {
	p.Delay = d
	return p
}

// WithMaxAttempts returns a copy of the policy with a different attempt count
func (p Policy) WithMaxAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

// Execute runs fn until it succeeds, returns a non-retryable error, or the
// attempts run out. The wait between attempts ends early when ctx is done.
func (p Policy) Execute(ctx context.Context, name string, fn func(context.Context) error) error {
	logger := log.GetLoggerWithName("retry").With(log.StepKey, name)

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = errors.IsRetryable
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		err := fn(ctx)
		if err == nil {
			logger.Debug("Step succeeded", log.AttemptKey, attempt, log.DurationMsKey, time.Since(start))
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			logger.Error("Step failed", err, log.AttemptKey, attempt)
			return errors.Wrapf(err, "step %s", name)
		}
		if attempt == attempts {
			break
		}

		logger.Warn("Step failed, retrying", err, log.AttemptKey, attempt, "delay", p.Delay)

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrapf(ctx.Err(), "step %s: retry cancelled after attempt %d: %v", name, attempt, lastErr)
		case <-timer.C:
		}
	}

	logger.Error("Step failed, attempts exhausted", lastErr, log.AttemptKey, attempts)
	return errors.Wrapf(lastErr, "step %s: all %d attempts failed", name, attempts)
}

// Step decorates fn so every call runs under the policy.
func Step[T any](name string, p Policy, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		var out T
		err := p.Execute(ctx, name, func(ctx context.Context) error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			out = v
			return nil
		})
		return out, err
	}
}
