package health

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// State is a breaker position: closed, open or half-open.
type State = gobreaker.State

// Breaker positions.
const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// CircuitBreaker guards one named dependency. It uses the two-step gobreaker
// so that callers can report outcomes observed outside a wrapped call.
type CircuitBreaker struct {
	gate *gobreaker.TwoStepCircuitBreaker[struct{}]
	dep  string
}

// NewCircuitBreaker builds a breaker for dependency name. A nil logger
// silences state-change logging.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		gate: gobreaker.NewTwoStepCircuitBreaker[struct{}](breakerSettings(name, cfg, logger)),
		dep:  name,
	}
}

func breakerSettings(name string, cfg CircuitBreakerConfig, logger *zerolog.Logger) gobreaker.Settings {
	// Clamped so the uint32 conversions cannot wrap.
	trip := uint32(max(cfg.GetFailureThreshold(), 1)) //nolint:gosec // bounded above
	probes := uint32(max(cfg.GetHalfOpenProbes(), 1)) //nolint:gosec // bounded above

	s := gobreaker.Settings{
		Name:        name,
		MaxRequests: probes,
		Timeout:     cfg.GetOpenDuration(),
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= trip },
		// A caller giving up is not the dependency failing.
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, context.Canceled) },
	}
	if logger != nil {
		s.OnStateChange = func(dep string, from, to gobreaker.State) {
			ev := logger.Info()
			if to == StateOpen {
				ev = logger.Warn()
			}
			ev.Str("dependency", dep).
				Stringer("from", from).
				Stringer("to", to).
				Msg("circuit breaker state change")
		}
	}
	return s
}

// Allow asks to make one call. It fails with ErrCircuitOpen while the
// breaker rejects calls; otherwise done must be called with the outcome.
func (c *CircuitBreaker) Allow() (done func(err error), err error) {
	done, err = c.gate.Allow()
	if err != nil {
		return nil, ErrCircuitOpen
	}
	return done, nil
}

// Execute runs fn under the breaker and returns its error. Errors matching
// one of expected are handed back but recorded as successes, so a plain
// cache miss never counts against the store.
func (c *CircuitBreaker) Execute(fn func() error, expected ...error) error {
	done, err := c.Allow()
	if err != nil {
		return err
	}
	err = fn()
	done(outcome(err, expected))
	return err
}

func outcome(err error, expected []error) error {
	for _, e := range expected {
		if errors.Is(err, e) {
			return nil
		}
	}
	return err
}

// State returns the current breaker position.
func (c *CircuitBreaker) State() State {
	return c.gate.State()
}

// Name returns the dependency name.
func (c *CircuitBreaker) Name() string {
	return c.dep
}

// ReportSuccess records a success observed elsewhere, such as by a probe.
// It returns false when the breaker is open and nothing was recorded.
// An open breaker only accepts reports after its open duration has passed.
func (c *CircuitBreaker) ReportSuccess() bool {
	return c.report(nil)
}

// ReportFailure records err against the dependency. It returns false when
// the breaker is already open.
func (c *CircuitBreaker) ReportFailure(err error) bool {
	return c.report(err)
}

func (c *CircuitBreaker) report(err error) bool {
	done, allowErr := c.Allow()
	if allowErr != nil {
		return false
	}
	done(err)
	return true
}
