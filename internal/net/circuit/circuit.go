// Package circuit implements the three-state circuit breaker guarding a
// single provider operation.
package circuit

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker refuses a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // requests allowed
	StateOpen                  // requests blocked
	StateHalfOpen              // probing recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config represents circuit breaker thresholds.
type Config struct {
	FailureThreshold int           // consecutive failures to open
	SuccessThreshold int           // consecutive successes to close from half-open
	RecoveryInterval time.Duration // open -> half-open delay
}

// Breaker is a three-state circuit breaker. Transitions:
// closed -> open on FailureThreshold consecutive failures; open -> half-open
// after RecoveryInterval; half-open -> closed on SuccessThreshold
// consecutive successes; half-open -> open on any failure.
type Breaker struct {
	mu              sync.RWMutex
	config          Config
	state           State
	failures        int
	successes       int
	lastFailureTime time.Time
	lastStateChange time.Time
	totalRequests   int64
	totalFailures   int64
}

// NewBreaker creates a circuit breaker with the given thresholds.
func NewBreaker(config Config) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.RecoveryInterval <= 0 {
		config.RecoveryInterval = 60 * time.Second
	}
	return &Breaker{
		config:          config,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// ShouldAllow reports whether a call may proceed, transitioning
// open -> half-open when the recovery interval has elapsed. Callers treat a
// refusal as if the provider had failed.
func (b *Breaker) ShouldAllow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if time.Since(b.lastFailureTime) >= b.config.RecoveryInterval {
			b.setState(StateHalfOpen)
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess reports a successful provider call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.setState(StateClosed)
		}
	}
}

// RecordFailure reports a failed provider call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalRequests++
	b.totalFailures++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		// Any failure while probing re-opens the circuit.
		b.setState(StateOpen)
	}
}

func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}
	b.state = state
	b.lastStateChange = time.Now()
	b.failures = 0
	b.successes = 0
}

// State returns the current circuit breaker state.
func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Reset restores the breaker to closed with clean counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(StateClosed)
	b.totalRequests = 0
	b.totalFailures = 0
}

// Stats represents circuit breaker statistics.
type Stats struct {
	State                string    `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	TotalRequests        int64     `json:"total_requests"`
	TotalFailures        int64     `json:"total_failures"`
	LastFailureTime      time.Time `json:"last_failure_time,omitempty"`
	LastStateChange      time.Time `json:"last_state_change"`
}

// Stats returns a snapshot of the breaker's counters.
func (b *Breaker) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		State:                b.state.String(),
		ConsecutiveFailures:  b.failures,
		ConsecutiveSuccesses: b.successes,
		TotalRequests:        b.totalRequests,
		TotalFailures:        b.totalFailures,
		LastFailureTime:      b.lastFailureTime,
		LastStateChange:      b.lastStateChange,
	}
}

// Manager holds one breaker per provider.
type Manager struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewManager creates an empty breaker manager.
func NewManager() *Manager {
	return &Manager{breakers: make(map[string]*Breaker)}
}

// AddProvider registers a breaker for a provider.
func (m *Manager) AddProvider(name string, config Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakers[name] = NewBreaker(config)
}

// Get returns the breaker for a provider.
func (m *Manager) Get(provider string) (*Breaker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.breakers[provider]
	return b, ok
}

// ShouldAllow reports whether a call to the provider may proceed. Providers
// without a registered breaker are always allowed.
func (m *Manager) ShouldAllow(provider string) bool {
	if b, ok := m.Get(provider); ok {
		return b.ShouldAllow()
	}
	return true
}

// RecordSuccess reports a success for the provider.
func (m *Manager) RecordSuccess(provider string) {
	if b, ok := m.Get(provider); ok {
		b.RecordSuccess()
	}
}

// RecordFailure reports a failure for the provider.
func (m *Manager) RecordFailure(provider string) {
	if b, ok := m.Get(provider); ok {
		b.RecordFailure()
	}
}

// Snapshot returns stats for every registered breaker.
func (m *Manager) Snapshot() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Stats, len(m.breakers))
	for name, b := range m.breakers {
		out[name] = b.Stats()
	}
	return out
}
