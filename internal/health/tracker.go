package health

import (
	"sync"

	"github.com/rs/zerolog"
)

// Dependency names tracked by skillswap.
const (
	DependencyCacheStorage = "cache.storage"
	DependencyEventServer  = "channel.server"
)

// Tracker manages per-dependency circuit breakers.
type Tracker struct {
	circuits map[string]*CircuitBreaker
	logger   *zerolog.Logger
	config   CircuitBreakerConfig
	mu       sync.RWMutex
}

// NewTracker creates a new Tracker with the given configuration.
func NewTracker(cfg CircuitBreakerConfig, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		circuits: make(map[string]*CircuitBreaker),
		config:   cfg,
		logger:   logger,
	}
}

// GetOrCreateCircuit returns the circuit breaker for a dependency, creating it if necessary.
func (t *Tracker) GetOrCreateCircuit(name string) *CircuitBreaker {
	t.mu.RLock()
	cb, exists := t.circuits[name]
	t.mu.RUnlock()

	if exists {
		return cb
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring write lock
	if cb, exists = t.circuits[name]; exists {
		return cb
	}

	cb = NewCircuitBreaker(name, t.config, t.logger)
	t.circuits[name] = cb

	if t.logger != nil {
		t.logger.Debug().
			Str("dependency", name).
			Msg("created circuit breaker")
	}

	return cb
}

// IsHealthy reports whether a dependency accepts calls.
// Only an OPEN circuit is unhealthy; HALF-OPEN still lets probe calls through.
func (t *Tracker) IsHealthy(name string) bool {
	return t.GetState(name) != StateOpen
}

// GetState returns the current state of a dependency's circuit breaker.
// Returns StateClosed if no circuit exists yet.
func (t *Tracker) GetState(name string) State {
	t.mu.RLock()
	cb, exists := t.circuits[name]
	t.mu.RUnlock()

	if !exists {
		return StateClosed
	}
	return cb.State()
}

// RecordSuccess records a successful operation for a dependency.
func (t *Tracker) RecordSuccess(name string) {
	cb := t.GetOrCreateCircuit(name)
	cb.ReportSuccess()

	if t.logger != nil {
		t.logger.Debug().
			Str("dependency", name).
			Str("state", cb.State().String()).
			Msg("recorded success")
	}
}

// RecordFailure records a failed operation for a dependency.
func (t *Tracker) RecordFailure(name string, err error) {
	cb := t.GetOrCreateCircuit(name)
	cb.ReportFailure(err)

	if t.logger != nil {
		t.logger.Debug().
			Str("dependency", name).
			Str("state", cb.State().String()).
			Err(err).
			Msg("recorded failure")
	}
}

// AllStates returns a snapshot of all circuit states keyed by dependency name.
func (t *Tracker) AllStates() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := make(map[string]string, len(t.circuits))
	for name, cb := range t.circuits {
		states[name] = cb.State().String()
	}
	return states
}
