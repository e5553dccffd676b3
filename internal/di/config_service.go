package di

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/skillswap/internal/config"
)

// ConfigService holds the live configuration. Reads go through an
// atomic.Pointer so a hot-reload never blocks callers.
type ConfigService struct {
	config    atomic.Pointer[config.Config]
	watcher   *config.Watcher
	path      string
	callbacks []config.ReloadCallback
	mu        sync.Mutex
}

// Get returns the current configuration.
func (c *ConfigService) Get() *config.Config {
	return c.config.Load()
}

// Path returns the file the configuration was loaded from, or "" for defaults.
func (c *ConfigService) Path() string {
	return c.path
}

// OnReload registers cb to run after a reloaded config has been stored.
func (c *ConfigService) OnReload(cb config.ReloadCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// apply stores cfg and runs the reload callbacks in registration order.
func (c *ConfigService) apply(cfg *config.Config) error {
	c.config.Store(cfg)

	c.mu.Lock()
	callbacks := append([]config.ReloadCallback(nil), c.callbacks...)
	c.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			log.Error().Err(err).Msg("config reload callback error")
		}
	}
	return nil
}

// StartWatching begins watching the config file. Call it after the container
// is initialized; cancel ctx to stop.
func (c *ConfigService) StartWatching(ctx context.Context) {
	if c.watcher == nil {
		return
	}

	c.watcher.OnReload(func(newCfg *config.Config) error {
		if err := c.apply(newCfg); err != nil {
			return err
		}
		log.Info().Str("path", c.path).Msg("config hot-reloaded successfully")
		return nil
	})

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Info().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads and validates the config file. The watcher is created but
// not started.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)
	svc := &ConfigService{path: path}

	if path == "" {
		svc.config.Store(config.Default())
		return svc, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	svc.config.Store(cfg)

	// Hot-reload is optional; a watcher failure only disables it.
	watcher, err := config.NewWatcher(path, config.WithWatcherLogger(&log.Logger))
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, hot-reload disabled")
	} else {
		svc.watcher = watcher
	}

	return svc, nil
}
