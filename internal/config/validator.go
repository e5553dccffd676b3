package config

import (
	"net"
	"strings"
)

// Valid logging levels.
var validLogLevels = map[string]bool{
	"":         true, // Empty defaults to info
	LevelDebug: true,
	LevelInfo:  true,
	LevelWarn:  true,
	LevelError: true,
}

// Valid logging formats.
var validLogFormats = map[string]bool{
	"":        true, // Empty auto-detects
	"json":    true,
	"console": true,
	"text":    true, // Alias for console
	"pretty":  true,
}

// Validate checks every section and returns a *ValidationError listing all
// problems, or nil.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateLogging(c, errs)
	validateCache(c, errs)
	validateChannel(c, errs)
	validateServer(c, errs)
	validateHealth(c, errs)

	return errs.Err()
}

func validateLogging(c *Config, errs *ValidationError) {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs.Addf("logging.level is invalid (got %q, valid: debug, info, warn, error)", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		errs.Addf("logging.format is invalid (got %q, valid: json, console, text, pretty)", c.Logging.Format)
	}
}

func validateCache(c *Config, errs *ValidationError) {
	errs.AddErr(c.Cache.Validate())
	if c.Cache.Prefix != "" && strings.ContainsAny(c.Cache.Prefix, " \t\n") {
		errs.Add("cache.prefix must not contain whitespace")
	}
}

func validateChannel(c *Config, errs *ValidationError) {
	errs.AddErr(c.Channel.Validate())
	if c.Channel.TimeoutMS < 0 {
		errs.Add("channel.timeout_ms must be >= 0")
	}
	if c.Channel.AckTimeoutMS < 0 {
		errs.Add("channel.ack_timeout_ms must be >= 0")
	}
}

func validateServer(c *Config, errs *ValidationError) {
	errs.AddErr(c.Server.Validate())
	if _, port, err := net.SplitHostPort(c.Server.GetListen()); err != nil {
		errs.Addf("server.listen must be in host:port format (got %q)", c.Server.Listen)
	} else if port == "" {
		errs.Add("server.listen port is required")
	}
}

func validateHealth(c *Config, errs *ValidationError) {
	if c.Health.HealthCheck.IntervalMS < 0 {
		errs.Add("health.health_check.interval_ms must be >= 0")
	}
	if c.Health.CircuitBreaker.FailureThreshold < 0 {
		errs.Add("health.circuit_breaker.failure_threshold must be >= 0")
	}
	if c.Cache.Storage.CircuitBreaker.FailureThreshold < 0 {
		errs.Add("cache.storage.circuit_breaker.failure_threshold must be >= 0")
	}
}
