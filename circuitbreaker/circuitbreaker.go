package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"playlist-finder-go/logcolors"
	"playlist-finder-go/services/notifier"

	log "github.com/sirupsen/logrus"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Provider calls allowed
	StateOpen                  // Provider calls rejected until cooldown passes
	StateHalfOpen              // One probe call allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling a provider after a run of consecutive failures
type CircuitBreaker struct {
	name            string
	state           State
	failures        int
	threshold       int
	cooldown        time.Duration
	probeTimeout    time.Duration
	lastFailureTime time.Time
	halfOpenStart   time.Time
	mu              sync.Mutex
}

// Config holds circuit breaker configuration
type Config struct {
	Name         string        // Name for logging
	Threshold    int           // Consecutive failures before opening
	Cooldown     time.Duration // How long to stay open before probing
	ProbeTimeout time.Duration // How long a half-open probe may take before reopening
}

// New creates a new circuit breaker
func New(cfg Config) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 10
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "provider"
	}

	return &CircuitBreaker{
		name:         cfg.Name,
		state:        StateClosed,
		threshold:    cfg.Threshold,
		cooldown:     cfg.Cooldown,
		probeTimeout: cfg.ProbeTimeout,
	}
}

// Allow reports whether a provider call may proceed
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailureTime) < cb.cooldown {
			return false
		}
		cb.state = StateHalfOpen
		cb.halfOpenStart = time.Now()
		log.Infof("%s Cooldown passed, probing provider", logcolors.CircuitBreakerPrefix(cb.name))
		return true

	case StateHalfOpen:
		// a probe is already in flight; give up on it after probeTimeout
		if time.Since(cb.halfOpenStart) >= cb.probeTimeout {
			cb.state = StateOpen
			cb.lastFailureTime = time.Now()
			log.Warnf("%s Probe timed out, reopening", logcolors.CircuitBreakerPrefix(cb.name))
		}
		return false

	default:
		return true
	}
}

// RecordSuccess records a successful provider call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		log.Infof("%s Probe succeeded, closing", logcolors.CircuitBreakerPrefix(cb.name))
		notifier.PublishCircuitBreakerRecovered(cb.name)
	}
	cb.state = StateClosed
	cb.failures = 0
}

// RecordFailure records a failed provider call
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		log.Warnf("%s Probe failed, reopening for %v", logcolors.CircuitBreakerPrefix(cb.name), cb.cooldown)
	case StateClosed:
		if cb.failures >= cb.threshold {
			cb.state = StateOpen
			log.Warnf("%s %d consecutive failures, opening for %v",
				logcolors.CircuitBreakerPrefix(cb.name), cb.failures, cb.cooldown)
			notifier.PublishCircuitBreakerOpen(cb.name, cb.failures, cb.cooldown)
		}
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current consecutive failure count
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Threshold returns the configured failure threshold
func (cb *CircuitBreaker) Threshold() int {
	return cb.threshold
}

// Reset manually closes the circuit
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.lastFailureTime = time.Time{}
	cb.halfOpenStart = time.Time{}
	log.Infof("%s Manually reset to CLOSED", logcolors.CircuitBreakerPrefix(cb.name))
}

// TimeUntilRetry returns the remaining cooldown while open, 0 otherwise
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return 0
	}
	if remaining := cb.cooldown - time.Since(cb.lastFailureTime); remaining > 0 {
		return remaining
	}
	return 0
}
