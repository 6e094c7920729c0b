package base

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/errors"
)

// RetryPolicy retries an operation with exponential backoff and jitter.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts (first try included)
	MaxAttempts int
	// InitialDelay is the first backoff delay
	InitialDelay time.Duration
	// MaxDelay caps the backoff delay
	MaxDelay time.Duration
	// Multiplier grows the delay between attempts
	Multiplier float64
	// Jitter randomizes each delay by up to this fraction
	Jitter float64

	logger *zap.Logger
}

// NewRetryPolicy creates a retry policy with the given settings.
func NewRetryPolicy(maxAttempts int, initialDelay, maxDelay time.Duration, multiplier float64, logger *zap.Logger) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if multiplier <= 1 {
		multiplier = 2.0
	}
	return &RetryPolicy{
		MaxAttempts:  maxAttempts,
		InitialDelay: initialDelay,
		MaxDelay:     maxDelay,
		Multiplier:   multiplier,
		Jitter:       0.2,
		logger:       logger,
	}
}

// Execute runs fn, retrying retryable errors per the error taxonomy.
func (rp *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	return rp.ExecuteWithCondition(ctx, fn, errors.IsRetryable)
}

// ExecuteWithCondition runs fn, retrying while shouldRetry approves the
// returned error. The last error is returned when attempts are exhausted.
func (rp *RetryPolicy) ExecuteWithCondition(ctx context.Context, fn func() error, shouldRetry func(error) bool) error {
	var lastErr error
	delay := rp.InitialDelay

	for attempt := 1; attempt <= rp.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeTimeout, "retry cancelled")
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt == rp.MaxAttempts {
			break
		}

		sleep := rp.jittered(delay)
		rp.logger.Warn("operation failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", rp.MaxAttempts),
			zap.Duration("delay", sleep),
			zap.Error(lastErr))

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "retry cancelled")
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * rp.Multiplier)
		if rp.MaxDelay > 0 && delay > rp.MaxDelay {
			delay = rp.MaxDelay
		}
	}

	rp.logger.Error("retries exhausted", zap.Int("attempts", rp.MaxAttempts), zap.Error(lastErr))
	return lastErr
}

// jittered randomizes d by up to ±Jitter.
func (rp *RetryPolicy) jittered(d time.Duration) time.Duration {
	if rp.Jitter <= 0 {
		return d
	}
	spread := float64(d) * rp.Jitter
	offset := (rand.Float64()*2 - 1) * spread
	result := time.Duration(float64(d) + offset)
	if result < 0 {
		return 0
	}
	return result
}
