// Package health guards skillswap's outside dependencies, the durable cache
// store and the event server, with one circuit breaker each. A Tracker owns
// the breakers by dependency name and a Checker probes OPEN dependencies so
// they can close again before the cooldown runs out.
package health

import "time"

// Defaults applied to zero or negative settings.
const (
	DefaultFailureThreshold = 5
	DefaultOpenDurationMS   = 30000
	DefaultHalfOpenProbes   = 3
	DefaultHealthCheckMS    = 10000
	DefaultHealthEnabled    = true
)

// CircuitBreakerConfig tunes a breaker. Zero fields take the defaults.
type CircuitBreakerConfig struct {
	// Consecutive failures that open the circuit.
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`
	// How long an open circuit rejects calls before going half-open.
	OpenDurationMS int `yaml:"open_duration_ms" toml:"open_duration_ms"`
	// Calls let through while half-open.
	HalfOpenProbes int `yaml:"half_open_probes" toml:"half_open_probes"`
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// GetFailureThreshold returns FailureThreshold or its default.
func (c *CircuitBreakerConfig) GetFailureThreshold() int {
	return positiveOr(c.FailureThreshold, DefaultFailureThreshold)
}

// GetOpenDuration returns OpenDurationMS as a duration, or its default.
func (c *CircuitBreakerConfig) GetOpenDuration() time.Duration {
	return millis(positiveOr(c.OpenDurationMS, DefaultOpenDurationMS))
}

// GetHalfOpenProbes returns HalfOpenProbes or its default.
func (c *CircuitBreakerConfig) GetHalfOpenProbes() int {
	return positiveOr(c.HalfOpenProbes, DefaultHalfOpenProbes)
}

// CheckConfig controls the recovery probes. Enabled is a pointer so an
// omitted key means on.
type CheckConfig struct {
	Enabled    *bool `yaml:"enabled" toml:"enabled"`
	IntervalMS int   `yaml:"interval_ms" toml:"interval_ms"`
}

// GetInterval returns the time between probe rounds.
func (c *CheckConfig) GetInterval() time.Duration {
	return millis(positiveOr(c.IntervalMS, DefaultHealthCheckMS))
}

// IsEnabled reports whether probes run.
func (c *CheckConfig) IsEnabled() bool {
	if c.Enabled != nil {
		return *c.Enabled
	}
	return DefaultHealthEnabled
}

// Config is the health section of the skillswap config.
type Config struct {
	HealthCheck    CheckConfig          `yaml:"health_check" toml:"health_check"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" toml:"circuit_breaker"`
}
