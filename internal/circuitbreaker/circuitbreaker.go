// Package circuitbreaker tracks the health of remote hosts and stops calls to
// a host after repeated transport failures.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// ErrOpen is returned by callers that short-circuit on an open breaker.
var ErrOpen = errors.New("circuit breaker is open")

const (
	defaultFailureThreshold         = 5                // Number of failures to open the circuit
	defaultResetTimeout             = 30 * time.Second // Time before transitioning from Open to HalfOpen
	defaultHalfOpenSuccessThreshold = 2                // Number of successful requests in HalfOpen to close circuit
)

// Config holds the breaker thresholds. Zero values take the defaults.
type Config struct {
	FailureThreshold         int
	ResetTimeout             time.Duration
	HalfOpenSuccessThreshold int
}

// hostState holds the current state for a single host.
type hostState struct {
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int // Used in HalfOpen state
	openUntil            time.Time
}

// CircuitBreaker monitors host health. This is an in-memory implementation.
type CircuitBreaker struct {
	mu    sync.Mutex
	hosts map[string]*hostState
	cfg   Config
	now   func() time.Time
}

// NewCircuitBreaker creates a new CircuitBreaker.
func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	if cfg.HalfOpenSuccessThreshold <= 0 {
		cfg.HalfOpenSuccessThreshold = defaultHalfOpenSuccessThreshold
	}
	return &CircuitBreaker{
		hosts: make(map[string]*hostState),
		cfg:   cfg,
		now:   time.Now,
	}
}

// getHostState assumes cb.mu is held.
func (cb *CircuitBreaker) getHostState(host string) *hostState {
	hs, ok := cb.hosts[host]
	if !ok {
		hs = &hostState{state: StateClosed}
		cb.hosts[host] = hs
	}
	return hs
}

// AllowRequest reports whether a call to host may proceed. An open circuit
// whose reset timeout has elapsed moves to half-open and lets calls through.
func (cb *CircuitBreaker) AllowRequest(host string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hs := cb.getHostState(host)
	switch hs.state {
	case StateOpen:
		if cb.now().After(hs.openUntil) {
			hs.state = StateHalfOpen
			hs.consecutiveSuccesses = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordFailure records a transport failure for host.
func (cb *CircuitBreaker) RecordFailure(host string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hs := cb.getHostState(host)
	switch hs.state {
	case StateClosed:
		hs.consecutiveFailures++
		if hs.consecutiveFailures >= cb.cfg.FailureThreshold {
			hs.state = StateOpen
			hs.openUntil = cb.now().Add(cb.cfg.ResetTimeout)
		}
	case StateHalfOpen:
		// any failure while probing re-opens immediately
		hs.state = StateOpen
		hs.openUntil = cb.now().Add(cb.cfg.ResetTimeout)
		hs.consecutiveFailures = cb.cfg.FailureThreshold
		hs.consecutiveSuccesses = 0
	}
}

// RecordSuccess records a completed round trip to host.
func (cb *CircuitBreaker) RecordSuccess(host string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	hs := cb.getHostState(host)
	switch hs.state {
	case StateClosed:
		hs.consecutiveFailures = 0
	case StateHalfOpen:
		hs.consecutiveSuccesses++
		if hs.consecutiveSuccesses >= cb.cfg.HalfOpenSuccessThreshold {
			hs.state = StateClosed
			hs.consecutiveFailures = 0
			hs.consecutiveSuccesses = 0
		}
	}
}

// GetHostStatus returns the state and consecutive failure count for host
// without triggering the Open to HalfOpen transition.
func (cb *CircuitBreaker) GetHostStatus(host string) (State, int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	hs, ok := cb.hosts[host]
	if !ok {
		return StateClosed, 0
	}
	return hs.state, hs.consecutiveFailures
}
