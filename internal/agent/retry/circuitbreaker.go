package retry

import (
	"sync"
	"time"

	"github.com/rdkcentral/webconfig-agent/internal/agent/metrics"
)

// CircuitBreakerState is the state of a single target's breaker.
type CircuitBreakerState int

const (
	CircuitClosed CircuitBreakerState = iota
	CircuitOpen
	CircuitHalfOpen
)

// CircuitBreakerConfig tunes one breaker instance.
type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	Timeout          time.Duration
}

// DefaultCircuitBreakerConfig mirrors the teacher's publishing breaker
// defaults, scaled for a component RPC rather than an outbound webhook
// call.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreaker guards retries against a single component target so a
// persistently failing component isn't hammered by back-to-back
// EXPIRE/CRASH-triggered retries.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           CircuitBreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time

	targetName string
	metrics    *metrics.Agent
}

// NewCircuitBreaker returns a breaker for targetName in the Closed
// state.
func NewCircuitBreaker(targetName string, config CircuitBreakerConfig, m *metrics.Agent) *CircuitBreaker {
	cb := &CircuitBreaker{config: config, targetName: targetName, metrics: m}
	cb.reportState()
	return cb
}

// Allow reports whether a call against the target may proceed, flipping
// Open breakers to HalfOpen once their timeout has elapsed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) >= cb.config.Timeout {
			cb.state = CircuitHalfOpen
			cb.successCount = 0
			cb.reportStateLocked()
			return true
		}
		return false
	case CircuitHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess registers a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.state = CircuitClosed
			cb.failureCount = 0
			cb.reportStateLocked()
		}
	case CircuitClosed:
		cb.failureCount = 0
	}
}

// RecordFailure registers a failed call, tripping the breaker open once
// FailureThreshold consecutive failures accumulate.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.reportStateLocked()
	case CircuitClosed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.state = CircuitOpen
			cb.reportStateLocked()
		}
	}
}

// State reports the current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) reportState() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reportStateLocked()
}

func (cb *CircuitBreaker) reportStateLocked() {
	if cb.metrics != nil {
		cb.metrics.CircuitState.WithLabelValues(cb.targetName).Set(float64(cb.state))
	}
}

// breakerRegistry is a per-target map of circuit breakers, guarded by a
// RWMutex with double-checked locking on the miss path, following the
// teacher's getCircuitBreaker pattern.
type breakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	config   CircuitBreakerConfig
	metrics  *metrics.Agent
}

func newBreakerRegistry(config CircuitBreakerConfig, m *metrics.Agent) *breakerRegistry {
	return &breakerRegistry{breakers: make(map[string]*CircuitBreaker), config: config, metrics: m}
}

func (r *breakerRegistry) get(target string) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[target]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[target]; ok {
		return cb
	}
	cb = NewCircuitBreaker(target, r.config, r.metrics)
	r.breakers[target] = cb
	return cb
}
