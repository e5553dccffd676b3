package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omarluq/skillswap/internal/health"
)

// StorageMode selects the durable tier backend.
type StorageMode string

const (
	// StorageFile keeps durable entries in a local bbolt database (default).
	StorageFile StorageMode = "file"

	// StorageOlric keeps durable entries in an Olric DMap, either on an
	// embedded node or through a cluster client.
	StorageOlric StorageMode = "olric"

	// StorageDisabled turns the durable tier into a noop store.
	// Persistent writes succeed without storing anything and reads always miss.
	StorageDisabled StorageMode = "disabled"
)

// Session keys share the durable Store with cache envelopes. No prefix may
// cover them, or Cleanup and Clear would treat them as cache entries.
const (
	SessionTokenKey = "skillswap_auth_token"
	SessionUserKey  = "skillswap_user_data"
)

var reservedKeys = []string{SessionTokenKey, SessionUserKey}

// Olric environment presets accepted by OlricConfig.Environment.
const (
	EnvLocal = "local"
	EnvLAN   = "lan"
	EnvWAN   = "wan"
)

// Default configuration values.
const (
	DefaultPrefix            = "skillswap_cache"
	DefaultTTLMS             = 5 * 60 * 1000
	DefaultCleanupIntervalMS = 5 * 60 * 1000
	DefaultFilePath          = "skillswap-cache.db"
	DefaultFileBucket        = "cache"
	DefaultDMapName          = "skillswap"
)

// Config defines cache configuration.
// Use Validate() to check for configuration errors before creating a cache.
type Config struct {
	// Prefix namespaces durable keys as <prefix>_<key>.
	Prefix string `yaml:"prefix" toml:"prefix"`

	// DefaultTTLMS is the TTL applied when a write does not specify one.
	// Default: 300000 (5 minutes).
	DefaultTTLMS int `yaml:"default_ttl_ms" toml:"default_ttl_ms"`

	// CleanupIntervalMS is the period of the janitor sweep.
	// Zero uses the 5 minute default; a negative value disables periodic sweeps.
	CleanupIntervalMS int `yaml:"cleanup_interval_ms" toml:"cleanup_interval_ms"`

	Memory  RistrettoConfig `yaml:"memory" toml:"memory"`
	Storage StorageConfig   `yaml:"storage" toml:"storage"`
}

// RistrettoConfig configures the memory tier.
// Every entry costs 1, so MaxCost is the maximum number of in-memory entries.
type RistrettoConfig struct {
	// NumCounters is the number of 4-bit access counters.
	// Recommended: 10x MaxCost.
	NumCounters int64 `yaml:"num_counters" toml:"num_counters"`

	// MaxCost is the maximum number of entries held in memory.
	MaxCost int64 `yaml:"max_cost" toml:"max_cost"`

	// BufferItems is the number of keys per Get buffer. Recommended: 64.
	BufferItems int64 `yaml:"buffer_items" toml:"buffer_items"`
}

// StorageConfig configures the durable tier.
type StorageConfig struct {
	Mode           StorageMode                 `yaml:"mode" toml:"mode"`
	File           FileConfig                  `yaml:"file" toml:"file"`
	Olric          OlricConfig                 `yaml:"olric" toml:"olric"`
	CircuitBreaker health.CircuitBreakerConfig `yaml:"circuit_breaker" toml:"circuit_breaker"`
}

// FileConfig configures the bbolt-backed store.
type FileConfig struct {
	Path          string `yaml:"path" toml:"path"`
	Bucket        string `yaml:"bucket" toml:"bucket"`
	OpenTimeoutMS int    `yaml:"open_timeout_ms" toml:"open_timeout_ms"`
}

// OlricConfig configures the Olric-backed store.
type OlricConfig struct {
	DMapName    string   `yaml:"dmap_name" toml:"dmap_name"`
	BindAddr    string   `yaml:"bind_addr" toml:"bind_addr"`
	Environment string   `yaml:"environment" toml:"environment"`
	Addresses   []string `yaml:"addresses" toml:"addresses"`
	Peers       []string `yaml:"peers" toml:"peers"`
	Embedded    bool     `yaml:"embedded" toml:"embedded"`
}

// GetPrefix returns the durable key prefix with default fallback.
func (c *Config) GetPrefix() string {
	if c.Prefix == "" {
		return DefaultPrefix
	}
	return c.Prefix
}

// GetDefaultTTL returns the default TTL as a duration.
func (c *Config) GetDefaultTTL() time.Duration {
	if c.DefaultTTLMS <= 0 {
		return time.Duration(DefaultTTLMS) * time.Millisecond
	}
	return time.Duration(c.DefaultTTLMS) * time.Millisecond
}

// GetCleanupInterval returns the janitor period. Zero means sweeps are disabled.
func (c *Config) GetCleanupInterval() time.Duration {
	switch {
	case c.CleanupIntervalMS < 0:
		return 0
	case c.CleanupIntervalMS == 0:
		return time.Duration(DefaultCleanupIntervalMS) * time.Millisecond
	default:
		return time.Duration(c.CleanupIntervalMS) * time.Millisecond
	}
}

// GetMode returns the storage mode with default fallback.
func (s *StorageConfig) GetMode() StorageMode {
	if s.Mode == "" {
		return StorageFile
	}
	return s.Mode
}

// GetPath returns the database path with default fallback.
func (f *FileConfig) GetPath() string {
	if f.Path == "" {
		return DefaultFilePath
	}
	return f.Path
}

// GetBucket returns the bucket name with default fallback.
func (f *FileConfig) GetBucket() string {
	if f.Bucket == "" {
		return DefaultFileBucket
	}
	return f.Bucket
}

// GetOpenTimeout returns how long to wait for the database file lock.
func (f *FileConfig) GetOpenTimeout() time.Duration {
	if f.OpenTimeoutMS <= 0 {
		return time.Second
	}
	return time.Duration(f.OpenTimeoutMS) * time.Millisecond
}

// Validate checks the configuration for errors.
// Returns nil if the configuration is valid.
func (c *Config) Validate() error {
	if c.DefaultTTLMS < 0 {
		return errors.New("cache: default_ttl_ms must be >= 0")
	}
	if c.Memory.MaxCost <= 0 {
		return errors.New("cache: memory.max_cost must be positive")
	}
	if c.Memory.NumCounters <= 0 {
		return errors.New("cache: memory.num_counters must be positive")
	}
	ns := c.GetPrefix() + "_"
	for _, key := range reservedKeys {
		if strings.HasPrefix(key, ns) {
			return fmt.Errorf("cache: prefix %q would cover the session key %q", c.GetPrefix(), key)
		}
	}
	return c.Storage.Validate()
}

// Validate checks the storage section for errors.
func (s *StorageConfig) Validate() error {
	switch s.GetMode() {
	case StorageFile:
		// Path and bucket fall back to defaults.
	case StorageOlric:
		if !s.Olric.Embedded && len(s.Olric.Addresses) == 0 {
			return errors.New("cache: storage.olric.addresses required when not embedded")
		}
		if s.Olric.Embedded && s.Olric.BindAddr == "" {
			return errors.New("cache: storage.olric.bind_addr required when embedded")
		}
	case StorageDisabled:
		// No validation needed for disabled mode
	default:
		return fmt.Errorf("cache: unknown storage mode %q", s.Mode)
	}
	return nil
}

// DefaultRistrettoConfig returns a RistrettoConfig sized for ~100K entries.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 1_000_000,
		MaxCost:     100_000,
		BufferItems: 64,
	}
}

// DefaultConfig returns a complete configuration using the file store.
func DefaultConfig() Config {
	return Config{
		Prefix:            DefaultPrefix,
		DefaultTTLMS:      DefaultTTLMS,
		CleanupIntervalMS: DefaultCleanupIntervalMS,
		Memory:            DefaultRistrettoConfig(),
		Storage: StorageConfig{
			Mode: StorageFile,
			File: FileConfig{Path: DefaultFilePath, Bucket: DefaultFileBucket},
		},
	}
}
