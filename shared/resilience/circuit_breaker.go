package resilience

import (
	"sync"
	"time"
)

type CircuitBreaker struct {
	mu               sync.Mutex
	provider         string
	failureThreshold int
	resetTimeout     time.Duration

	consecutiveFailures int
	state               CircuitState
	reopenAt            time.Time
}

type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func NewCircuitBreaker(provider string, threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		provider:         provider,
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		state:            CircuitClosed,
	}
}

func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitOpen:
		if time.Now().After(cb.reopenAt) {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

func (cb *CircuitBreaker) RecordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.consecutiveFailures = 0
		if cb.state == CircuitHalfOpen {
			cb.state = CircuitClosed
		}
		return
	}

	cb.consecutiveFailures++
	if cb.consecutiveFailures >= cb.failureThreshold {
		cb.state = CircuitOpen
		cb.reopenAt = time.Now().Add(cb.resetTimeout)
	}
}

func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
