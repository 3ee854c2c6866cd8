package insight

import (
	"sync"
	"time"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerConfig tunes a CircuitBreaker.
type BreakerConfig struct {
	MaxFailures     int           // consecutive failures that open the breaker
	ResetTimeout    time.Duration // how long the breaker stays open
	HalfOpenMaxSucc int           // successes needed in half-open to close again
}

// DefaultBreakerConfig returns the settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:     5,
		ResetTimeout:    30 * time.Second,
		HalfOpenMaxSucc: 1,
	}
}

// CircuitBreaker stops calling a remote provider after repeated failures so
// that users get the local insight without waiting for a timeout each time.
type CircuitBreaker struct {
	mu                sync.Mutex
	config            BreakerConfig
	state             BreakerState
	failures          int
	halfOpenSuccesses int
	openedAt          time.Time
	now               func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(config BreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = DefaultBreakerConfig().MaxFailures
	}
	if config.HalfOpenMaxSucc <= 0 {
		config.HalfOpenMaxSucc = 1
	}
	return &CircuitBreaker{config: config, now: time.Now}
}

// Allow reports whether a call may proceed. An open breaker moves to
// half-open once the reset timeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerOpen && cb.now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.state = BreakerHalfOpen
		cb.halfOpenSuccesses = 0
	}
	return cb.state != BreakerOpen
}

// RecordSuccess registers a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.config.HalfOpenMaxSucc {
			cb.state = BreakerClosed
			cb.failures = 0
		}
	case BreakerClosed:
		cb.failures = 0
	}
}

// RecordFailure registers a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerHalfOpen:
		cb.open()
	case BreakerClosed:
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.open()
		}
	}
}

func (cb *CircuitBreaker) open() {
	cb.state = BreakerOpen
	cb.openedAt = cb.now()
	cb.halfOpenSuccesses = 0
}

// State returns the current state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
