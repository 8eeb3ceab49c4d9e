// Package retry re-runs a unit of work with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

type Config struct {
	MaxAttempts  int           // including the first call
	InitialDelay time.Duration // wait after the first failure
	MaxDelay     time.Duration // cap for a single wait
	Multiplier   float64
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so Do stops immediately. Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}

// Unwrap strips the permanent marker, if any.
func Unwrap(err error) error {
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return permanentErr.Err
	}
	return err
}

type Result struct {
	Attempts int
	Duration time.Duration
	Err      error
}

// Do calls fn until it succeeds, returns a permanent error, the context ends
// or MaxAttempts is reached.
func Do(ctx context.Context, cfg Config, fn func() error) Result {
	return DoWithCallback(ctx, cfg, fn, nil)
}

// DoWithCallback is Do with a hook called before each wait.
func DoWithCallback(ctx context.Context, cfg Config, fn func() error, onRetry func(attempt int, err error, nextDelay time.Duration)) Result {
	start := time.Now()
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{Attempts: attempt, Duration: time.Since(start), Err: err}
		}

		err := fn()
		if err == nil || IsPermanent(err) {
			return Result{Attempts: attempt, Duration: time.Since(start), Err: err}
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		delay := backoff(attempt, cfg)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Attempts: attempt, Duration: time.Since(start), Err: ctx.Err()}
		case <-timer.C:
		}
	}

	return Result{Attempts: maxAttempts, Duration: time.Since(start), Err: lastErr}
}

// backoff is InitialDelay * Multiplier^(attempt-1), capped, with +/-25% jitter.
func backoff(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	delay += delay * 0.25 * (rand.Float64()*2 - 1)
	return time.Duration(delay)
}
