// Package config provides configuration loading, validation and hot-reload for skillswap.
package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/skillswap/internal/cache"
	"github.com/omarluq/skillswap/internal/channel"
	"github.com/omarluq/skillswap/internal/eventserver"
	"github.com/omarluq/skillswap/internal/health"
)

// RuntimeConfig defines the interface for reading configuration that may be
// swapped by hot-reload. Components should call Get per operation rather than
// holding a *Config, which goes stale after a reload.
type RuntimeConfig interface {
	Get() *Config
}

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config represents the complete skillswap configuration.
type Config struct {
	Logging LoggingConfig      `yaml:"logging" toml:"logging"`
	Channel channel.Config     `yaml:"channel" toml:"channel"`
	Server  eventserver.Config `yaml:"server" toml:"server"`
	Health  health.Config      `yaml:"health" toml:"health"`
	Cache   cache.Config       `yaml:"cache" toml:"cache"`
}

// Default returns the reference configuration: file-backed durable tier,
// 5 minute TTL and sweep, local event server.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: LevelInfo, Format: "console"},
		Cache:   cache.DefaultConfig(),
		Channel: channel.DefaultConfig(),
		Server: eventserver.Config{
			Listen: eventserver.DefaultListen,
			Path:   eventserver.DefaultPath,
		},
	}
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json, console, pretty
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
	Pretty bool   `yaml:"pretty" toml:"pretty"` // force colored console output
}

// ParseLevel converts the level string to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetOutputFileOption returns the log file path when output is a file.
func (l *LoggingConfig) GetOutputFileOption() mo.Option[string] {
	switch l.Output {
	case "", "stdout", "stderr":
		return mo.None[string]()
	default:
		return mo.Some(l.Output)
	}
}

// GetCleanupIntervalOption returns the janitor period, or None when periodic
// sweeps are disabled.
func (c *Config) GetCleanupIntervalOption() mo.Option[time.Duration] {
	interval := c.Cache.GetCleanupInterval()
	if interval <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(interval)
}
