package health

import "errors"

// Sentinel errors for health tracking.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
	ErrCircuitOpen = errors.New("health: circuit breaker is open")

	// ErrProbeFailed is returned when a recovery probe reports an unhealthy dependency.
	ErrProbeFailed = errors.New("health: probe failed")
)
