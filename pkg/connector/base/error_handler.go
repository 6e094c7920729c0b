package base

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/errors"
)

// ErrorAction is what the pipeline should do with a failed operation.
type ErrorAction int

const (
	// ActionRetry retries the operation
	ActionRetry ErrorAction = iota
	// ActionSkip drops the failing record and continues
	ActionSkip
	// ActionAbort stops the stream
	ActionAbort
)

// ErrorHandler maps typed errors to pipeline actions. Transient failures
// retry, bad records skip up to a ceiling, everything else aborts.
type ErrorHandler struct {
	logger *zap.Logger

	// MaxSkips aborts the stream once this many records were skipped
	// (0 = unlimited)
	MaxSkips int64

	skipped int64
}

// NewErrorHandler creates an error handler.
func NewErrorHandler(logger *zap.Logger, maxSkips int64) *ErrorHandler {
	return &ErrorHandler{logger: logger, MaxSkips: maxSkips}
}

// Handle classifies err and returns the action to take.
func (eh *ErrorHandler) Handle(err error, stream string) ErrorAction {
	if err == nil {
		return ActionSkip
	}

	if errors.IsRetryable(err) {
		return ActionRetry
	}

	if errors.IsType(err, errors.ErrorTypeData) || errors.IsType(err, errors.ErrorTypeNotFound) {
		skipped := atomic.AddInt64(&eh.skipped, 1)
		eh.logger.Warn("skipping record",
			zap.String("stream", stream),
			zap.Int64("skipped_total", skipped),
			zap.Error(err))
		if eh.MaxSkips > 0 && skipped > eh.MaxSkips {
			eh.logger.Error("skip ceiling exceeded, aborting stream",
				zap.String("stream", stream),
				zap.Int64("max_skips", eh.MaxSkips))
			return ActionAbort
		}
		return ActionSkip
	}

	eh.logger.Error("fatal stream error",
		zap.String("stream", stream),
		zap.Error(err))
	return ActionAbort
}

// Skipped returns how many records were skipped so far.
func (eh *ErrorHandler) Skipped() int64 {
	return atomic.LoadInt64(&eh.skipped)
}
