package config

import "sync/atomic"

// Runtime holds the live configuration behind an atomic pointer. The watcher
// stores a new value on reload; readers keep whatever value they loaded.
//
//	runtime := config.NewRuntime(cfg)
//	ttl := runtime.Get().Cache.GetDefaultTTL()
type Runtime struct {
	ptr atomic.Pointer[Config]
}

// NewRuntime creates a Runtime holding initial.
func NewRuntime(initial *Config) *Runtime {
	r := &Runtime{}
	r.ptr.Store(initial)
	return r
}

// Get returns the current configuration.
func (r *Runtime) Get() *Config {
	return r.ptr.Load()
}

// Store replaces the current configuration.
func (r *Runtime) Store(cfg *Config) {
	r.ptr.Store(cfg)
}

var _ RuntimeConfig = (*Runtime)(nil)
