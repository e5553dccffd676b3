// Package di wires skillswap's services together with samber/do v2.
package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/omarluq/skillswap/internal/health"
)

// ConfigPathKey names the config file path value. An empty path runs on
// built-in defaults.
const ConfigPathKey = "config.path"

// Container owns one root scope. Services are built lazily on first Invoke
// and torn down in reverse order by Shutdown.
type Container struct {
	root *do.RootScope
}

// NewContainer registers every provider against the config at configPath.
func NewContainer(configPath string) (*Container, error) {
	root := do.New()
	do.ProvideNamedValue(root, ConfigPathKey, configPath)
	RegisterSingletons(root)
	return &Container{root: root}, nil
}

// Invoke resolves a service, building it and its dependencies if needed.
func Invoke[T any](c *Container) (T, error) {
	return do.Invoke[T](c.root)
}

// MustInvoke is Invoke for startup paths where failure is fatal.
func MustInvoke[T any](c *Container) T {
	return do.MustInvoke[T](c.root)
}

// Shutdown stops every built service.
func (c *Container) Shutdown() error {
	return shutdownErr(c.root.Shutdown())
}

// ShutdownWithContext is Shutdown bounded by ctx.
func (c *Container) ShutdownWithContext(ctx context.Context) error {
	return shutdownErr(c.root.ShutdownWithContext(ctx))
}

func shutdownErr(report *do.ShutdownReport) error {
	if report == nil || report.Succeed {
		return nil
	}
	return fmt.Errorf("shutdown failed: %s", report.Error())
}

// HealthCheck builds the config and cache services and fails while any
// dependency circuit is OPEN.
func (c *Container) HealthCheck() error {
	if _, err := Invoke[*ConfigService](c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := Invoke[*CacheService](c); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	svc, err := Invoke[*HealthTrackerService](c)
	if err != nil {
		return fmt.Errorf("health tracker: %w", err)
	}

	var errs []error
	for dep, state := range svc.Tracker.AllStates() {
		if state == health.StateOpen.String() {
			errs = append(errs, fmt.Errorf("%s: circuit open", dep))
		}
	}
	return errors.Join(errs...)
}
