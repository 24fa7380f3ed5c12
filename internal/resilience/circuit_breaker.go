package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// MarshalText renders the state by name in JSON health output
func (s CircuitBreakerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // Number of failures before opening
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`  // Time to wait before attempting recovery
	SuccessThreshold int           `json:"success_threshold"` // Number of successes needed to close circuit
}

// CircuitBreaker stops calling a failing inference endpoint until it has had time to recover
type CircuitBreaker struct {
	config    CircuitBreakerConfig
	state     int32
	failures  int32
	successes int32

	mu          sync.Mutex
	nextAttempt time.Time
}

// NewCircuitBreaker creates a new circuit breaker, filling unset config with defaults
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 2
	}

	return &CircuitBreaker{
		config: config,
		state:  int32(StateClosed),
	}
}

// CallContext executes fn with circuit breaker protection. An error returned
// after ctx is done is the caller giving up, not the backend failing, so it
// leaves the breaker's counters untouched.
func (cb *CircuitBreaker) CallContext(ctx context.Context, fn func() error) error {
	if CircuitBreakerState(atomic.LoadInt32(&cb.state)) == StateOpen {
		cb.mu.Lock()
		wait := time.Now().Before(cb.nextAttempt)
		cb.mu.Unlock()
		if wait {
			return NewCircuitBreakerError("circuit breaker is open", StateOpen)
		}
		if atomic.CompareAndSwapInt32(&cb.state, int32(StateOpen), int32(StateHalfOpen)) {
			atomic.StoreInt32(&cb.successes, 0)
		}
	}

	if err := fn(); err != nil {
		if ctx.Err() == nil {
			cb.onFailure()
		}
		return err
	}

	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) onFailure() {
	failures := atomic.AddInt32(&cb.failures, 1)
	atomic.StoreInt32(&cb.successes, 0)

	// a failed probe while half-open reopens immediately
	if failures >= int32(cb.config.FailureThreshold) || cb.State() == StateHalfOpen {
		cb.mu.Lock()
		cb.nextAttempt = time.Now().Add(cb.config.RecoveryTimeout)
		cb.mu.Unlock()
		atomic.StoreInt32(&cb.state, int32(StateOpen))
	}
}

func (cb *CircuitBreaker) onSuccess() {
	atomic.StoreInt32(&cb.failures, 0)

	if cb.State() == StateHalfOpen {
		if atomic.AddInt32(&cb.successes, 1) >= int32(cb.config.SuccessThreshold) {
			atomic.StoreInt32(&cb.state, int32(StateClosed))
		}
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	return CircuitBreakerState(atomic.LoadInt32(&cb.state))
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	return int(atomic.LoadInt32(&cb.failures))
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	atomic.StoreInt32(&cb.state, int32(StateClosed))
	atomic.StoreInt32(&cb.failures, 0)
	atomic.StoreInt32(&cb.successes, 0)
}

// Stats returns a snapshot for health reporting
func (cb *CircuitBreaker) Stats() map[string]interface{} {
	return map[string]interface{}{
		"state":    cb.State(),
		"failures": cb.Failures(),
	}
}

// CircuitBreakerError is returned without calling fn while the circuit is open
type CircuitBreakerError struct {
	Message string
	State   CircuitBreakerState
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// NewCircuitBreakerError creates a new circuit breaker error
func NewCircuitBreakerError(message string, state CircuitBreakerState) *CircuitBreakerError {
	return &CircuitBreakerError{
		Message: message,
		State:   state,
	}
}
