package clients

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/syphon-data/syphon/pkg/errors"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int32

const (
	// StateClosed allows all requests to pass through
	StateClosed CircuitState = iota
	// StateOpen blocks all requests
	StateOpen
	// StateHalfOpen allows a limited number of probe requests
	StateHalfOpen
)

// String returns the state name for logging.
func (s CircuitState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreakerConfig configures failure thresholds and recovery timing.
type CircuitBreakerConfig struct {
	// FailureThreshold is consecutive failures before opening
	FailureThreshold int
	// SuccessThreshold is consecutive successes in half-open before closing
	SuccessThreshold int
	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration
}

// CircuitBreaker prevents hammering an upstream that is already failing.
// After FailureThreshold consecutive failures it rejects requests for
// Timeout, then lets probes through until SuccessThreshold successes
// close it again.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	logger *zap.Logger

	state                CircuitState
	consecutiveFailures  int
	consecutiveSuccesses int
	nextRetryTime        time.Time

	mu sync.Mutex
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		config: config,
		logger: logger.With(zap.String("component", "circuit_breaker")),
		state:  StateClosed,
	}
}

// Allow reports whether a request may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Now().After(cb.nextRetryTime) {
			cb.transition(StateHalfOpen)
			return true
		}
		return false
	}
	return true
}

// Execute runs fn under circuit breaker protection.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return errors.New(errors.ErrorTypeConnection, "circuit breaker is open")
	}

	err := fn()
	if err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// RecordSuccess registers a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	if cb.state == StateHalfOpen {
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.config.SuccessThreshold {
			cb.transition(StateClosed)
		}
	}
}

// RecordFailure registers a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveSuccesses = 0
	cb.consecutiveFailures++

	switch cb.state {
	case StateClosed:
		if cb.consecutiveFailures >= cb.config.FailureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		// A failed probe reopens immediately
		cb.transition(StateOpen)
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transition changes state. Caller holds mu.
func (cb *CircuitBreaker) transition(to CircuitState) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to
	cb.consecutiveSuccesses = 0

	if to == StateOpen {
		cb.nextRetryTime = time.Now().Add(cb.config.Timeout)
	}
	if to == StateClosed {
		cb.consecutiveFailures = 0
	}

	cb.logger.Info("circuit breaker state change",
		zap.String("from", from.String()),
		zap.String("to", to.String()))
}
