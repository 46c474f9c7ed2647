package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Closed → Open → Half-Open breaker guarding outbound calls (SMTP relay).
//
//   - Closed:    calls pass through, consecutive failures are counted
//   - Open:      calls fail immediately with ErrCircuitOpen
//   - Half-Open: calls are let through as probes; enough successes close it

// CBState represents the current circuit breaker state.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by Execute while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int           // consecutive failures that trip the breaker
	SuccessThreshold int           // half-open successes needed to close
	OpenTimeout      time.Duration // time spent open before probing
	Now              func() time.Time
}

func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "smtp",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

type CircuitBreaker struct {
	mu          sync.Mutex
	name        string
	state       CBState
	failures    int
	successes   int
	openedAt    time.Time
	maxFailures int
	minSuccess  int
	openFor     time.Duration
	now         func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 60 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{
		name:        cfg.Name,
		state:       CBClosed,
		maxFailures: cfg.FailureThreshold,
		minSuccess:  cfg.SuccessThreshold,
		openFor:     cfg.OpenTimeout,
		now:         cfg.Now,
	}
}

// State returns the current state, moving Open to Half-Open once the timeout
// has elapsed.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

// The helpers below must be called with mu held.

func (cb *CircuitBreaker) currentState() CBState {
	if cb.state == CBOpen && cb.now().Sub(cb.openedAt) >= cb.openFor {
		cb.setState(CBHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) recordFailure() {
	cb.failures++
	switch cb.currentState() {
	case CBClosed:
		if cb.failures >= cb.maxFailures {
			cb.trip()
		}
	case CBHalfOpen:
		cb.trip()
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	switch cb.currentState() {
	case CBClosed:
		cb.failures = 0
	case CBHalfOpen:
		cb.successes++
		if cb.successes >= cb.minSuccess {
			cb.setState(CBClosed)
		}
	}
}

func (cb *CircuitBreaker) trip() {
	cb.openedAt = cb.now()
	cb.setState(CBOpen)
}

func (cb *CircuitBreaker) setState(s CBState) {
	if cb.state == s {
		return
	}
	log.Warn().Str("breaker", cb.name).Str("from", cb.state.String()).Str("to", s.String()).Msg("circuit breaker state change")
	cb.state = s
	cb.failures = 0
	cb.successes = 0
}
