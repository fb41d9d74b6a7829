package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Veraticus/ecolens/internal/service"
)

var (
	// ErrRateLimit indicates that the backend rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError marks whether a failed remote call is worth repeating.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err may succeed on another attempt. A
// RetryableError decides for itself; otherwise only context errors are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var marked *RetryableError
	if errors.As(err, &marked) {
		return marked.Retryable
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func normalizeRetry(opts service.RetryOptions) service.RetryOptions {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}
	return opts
}

// backoff returns the wait after the given failed attempt, counting from 1.
func backoff(opts service.RetryOptions, attempt int, err error) time.Duration {
	if errors.Is(err, ErrRateLimit) {
		return opts.MaxDelay
	}
	d := float64(opts.InitialDelay) * math.Pow(opts.Multiplier, float64(attempt-1))
	if d > float64(opts.MaxDelay) {
		return opts.MaxDelay
	}
	return time.Duration(d)
}

// WithRetry runs operation until it succeeds, fails permanently, or runs out
// of attempts. Rate limited attempts wait the full MaxDelay.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	opts = normalizeRetry(opts)

	var err error
	for attempt := 1; ; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, attempt, err)
		}

		delay := backoff(opts, attempt, err)
		slog.Warn("Remote call failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
