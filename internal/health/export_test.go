package health

// ProbeCount returns the number of registered probes under lock (for testing).
func (h *Checker) ProbeCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.probes)
}

// CheckOpenCircuits exports checkOpenCircuits for testing.
func (h *Checker) CheckOpenCircuits() {
	h.checkOpenCircuits()
}

// CryptoRandDurationExported exports cryptoRandDuration for testing.
var CryptoRandDurationExported = cryptoRandDuration

// NewTestBreaker creates a breaker named "test-dependency" with explicit settings.
func NewTestBreaker(failureThreshold, openDurationMS, halfOpenProbes int) *CircuitBreaker {
	return NewCircuitBreaker("test-dependency", CircuitBreakerConfig{
		FailureThreshold: failureThreshold,
		OpenDurationMS:   openDurationMS,
		HalfOpenProbes:   halfOpenProbes,
	}, nil)
}
