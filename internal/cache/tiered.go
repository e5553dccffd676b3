package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/skillswap/internal/health"
)

// Tiered is the two-tier cache. It is safe for concurrent use.
type Tiered struct {
	memory     *memoryTier
	storage    *storageTier
	now        func() time.Time
	log        zerolog.Logger
	defaultTTL atomic.Int64
	hits       atomic.Uint64
	misses     atomic.Uint64
	sets       atomic.Uint64
	deletes    atomic.Uint64
}

// Option configures a Tiered cache.
type Option func(*tieredOptions)

type tieredOptions struct {
	now     func() time.Time
	breaker *health.CircuitBreaker
}

// WithClock replaces time.Now, for deterministic expiry.
func WithClock(now func() time.Time) Option {
	return func(o *tieredOptions) { o.now = now }
}

// WithBreaker guards the durable tier with cb.
// Without it the cache builds its own breaker from Storage.CircuitBreaker.
func WithBreaker(cb *health.CircuitBreaker) Option {
	return func(o *tieredOptions) { o.breaker = cb }
}

// SetOption configures a single write.
type SetOption func(*setOptions)

type setOptions struct {
	ttl        time.Duration
	persistent bool
}

// WithTTL sets the entry lifetime. Non-positive values use the default TTL.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) { o.ttl = ttl }
}

// Persistent also writes the entry to the durable tier.
func Persistent() SetOption {
	return func(o *setOptions) { o.persistent = true }
}

// New creates a Tiered cache over store. The cache does not own store;
// the caller closes it after closing the cache.
func New(cfg *Config, store Store, opts ...Option) (*Tiered, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = newNoopStore()
	}

	o := tieredOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	log := logger()
	if o.breaker == nil {
		o.breaker = health.NewCircuitBreaker(health.DependencyCacheStorage, cfg.Storage.CircuitBreaker, &log)
	}

	memory, err := newMemoryTier(cfg.Memory)
	if err != nil {
		return nil, err
	}

	t := &Tiered{
		memory:  memory,
		storage: newStorageTier(store, cfg.GetPrefix(), o.breaker),
		now:     o.now,
		log:     log,
	}
	t.defaultTTL.Store(int64(cfg.GetDefaultTTL()))

	log.Info().
		Str("prefix", cfg.GetPrefix()).
		Dur("default_ttl", cfg.GetDefaultTTL()).
		Msg("tiered cache created")

	return t, nil
}

// DefaultTTL returns the TTL applied when a write does not specify one.
func (t *Tiered) DefaultTTL() time.Duration {
	return time.Duration(t.defaultTTL.Load())
}

// SetDefaultTTL replaces the default TTL. Non-positive values are ignored.
func (t *Tiered) SetDefaultTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t.defaultTTL.Store(int64(ttl))
}

func (t *Tiered) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return t.DefaultTTL()
	}
	return ttl
}

// encodeValue renders value as JSON. json.RawMessage is stored as given.
func encodeValue(value any) ([]byte, error) {
	if raw, ok := value.(json.RawMessage); ok {
		if !json.Valid(raw) {
			return nil, fmt.Errorf("%w: invalid raw JSON", ErrSerializationFailed)
		}
		return raw, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// SetMemory stores value in the memory tier only.
// Returns an error only if value cannot be encoded as JSON.
func (t *Tiered) SetMemory(key string, value any, ttl time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	t.setMemoryRaw(key, data, ttl)
	return nil
}

func (t *Tiered) setMemoryRaw(key string, data []byte, ttl time.Duration) {
	t.memory.set(key, newEntry(data, t.now(), t.ttlOrDefault(ttl)))
	t.sets.Add(1)
}

// GetMemory returns the raw JSON stored under key in the memory tier.
// An expired entry is removed and counted as a miss.
func (t *Tiered) GetMemory(key string) mo.Option[[]byte] {
	e, ok := t.memory.get(key, t.now())
	if !ok {
		t.misses.Add(1)
		return mo.None[[]byte]()
	}
	t.hits.Add(1)
	return mo.Some(e.Value)
}

// SetStorage stores value in the durable tier only.
// Backend failures are logged and dropped; the returned error only reports
// a value that cannot be encoded as JSON.
func (t *Tiered) SetStorage(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	t.setStorageRaw(ctx, key, data, ttl)
	return nil
}

func (t *Tiered) setStorageRaw(ctx context.Context, key string, data []byte, ttl time.Duration) {
	e := newEntry(data, t.now(), t.ttlOrDefault(ttl))
	if err := t.storage.set(ctx, key, e); err != nil {
		t.log.Warn().Err(err).Str("key", key).Msg("failed to set storage cache")
		return
	}
	t.sets.Add(1)
}

// GetStorage returns the raw JSON stored under key in the durable tier.
// Expired, corrupt and unreachable entries all count as a miss.
func (t *Tiered) GetStorage(ctx context.Context, key string) mo.Option[[]byte] {
	e, err := t.storage.get(ctx, key, t.now())
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, errExpired) {
			t.log.Warn().Err(err).Str("key", key).Msg("failed to get storage cache")
		}
		t.misses.Add(1)
		return mo.None[[]byte]()
	}
	t.hits.Add(1)
	return mo.Some(e.Value)
}

// Set writes value to the memory tier and, with Persistent(), to the durable tier.
func (t *Tiered) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	o := setOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := encodeValue(value)
	if err != nil {
		return err
	}

	t.setMemoryRaw(key, data, o.ttl)
	if o.persistent {
		t.setStorageRaw(ctx, key, data, o.ttl)
	}
	return nil
}

// Get checks the memory tier and then, if persistent, the durable tier.
// A durable hit is copied back into memory with the default TTL.
func (t *Tiered) Get(ctx context.Context, key string, persistent bool) mo.Option[[]byte] {
	if value, ok := t.GetMemory(key).Get(); ok {
		return mo.Some(value)
	}
	if !persistent {
		return mo.None[[]byte]()
	}

	value, ok := t.GetStorage(ctx, key).Get()
	if !ok {
		return mo.None[[]byte]()
	}
	t.setMemoryRaw(key, value, 0)
	return mo.Some(value)
}

// GetAs decodes the cached JSON under key into T.
// A value that does not decode into T is logged and reported as absent.
func GetAs[T any](ctx context.Context, t *Tiered, key string, persistent bool) mo.Option[T] {
	raw, ok := t.Get(ctx, key, persistent).Get()
	if !ok {
		return mo.None[T]()
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.log.Warn().Err(err).Str("key", key).Msg("cached value has unexpected shape")
		return mo.None[T]()
	}
	return mo.Some(out)
}

// Delete removes key from memory and, if persistent, from the durable tier.
func (t *Tiered) Delete(ctx context.Context, key string, persistent bool) {
	t.memory.delete(key)
	if persistent {
		if err := t.storage.delete(ctx, key); err != nil {
			t.log.Warn().Err(err).Str("key", key).Msg("failed to delete storage cache")
		}
	}
	t.deletes.Add(1)
}

// Clear empties the memory tier and, if persistent, every durable entry under the prefix.
func (t *Tiered) Clear(ctx context.Context, persistent bool) {
	t.memory.clear()
	if persistent {
		if err := t.storage.clear(ctx); err != nil {
			t.log.Warn().Err(err).Msg("failed to clear storage cache")
		}
	}
}

// CleanupReport summarizes one sweep.
type CleanupReport struct {
	MemoryExpired  int           `json:"memory_expired"`
	StorageExpired int           `json:"storage_expired"`
	StorageCorrupt int           `json:"storage_corrupt"`
	Duration       time.Duration `json:"duration"`
}

// Cleanup removes every expired entry from both tiers and deletes durable entries
// that cannot be decoded. Durable failures are logged; the sweep never fails.
func (t *Tiered) Cleanup(ctx context.Context) CleanupReport {
	start := time.Now()
	now := t.now()

	report := CleanupReport{MemoryExpired: t.memory.sweep(now)}

	expired, corrupt, err := t.storage.sweep(ctx, now)
	report.StorageExpired = expired
	report.StorageCorrupt = corrupt
	if err != nil {
		t.log.Warn().Err(err).Msg("failed to cleanup storage cache")
	}
	report.Duration = time.Since(start)

	t.log.Debug().
		Int("memory_expired", report.MemoryExpired).
		Int("storage_expired", report.StorageExpired).
		Int("storage_corrupt", report.StorageCorrupt).
		Dur("duration", report.Duration).
		Msg("cache cleanup")

	return report
}

// Warm indexes the durable entries already present in the store and returns how many
// were found, so StorageSize reflects a cold start.
func (t *Tiered) Warm(ctx context.Context) int {
	n, err := t.storage.warm(ctx)
	if err != nil {
		t.log.Warn().Err(err).Msg("failed to warm storage index")
		return 0
	}
	t.log.Info().Int("entries", n).Msg("storage index warmed")
	return n
}

// Stats returns a snapshot of the counters and tier sizes.
func (t *Tiered) Stats() Stats {
	return newStats(
		t.hits.Load(),
		t.misses.Load(),
		t.sets.Load(),
		t.deletes.Load(),
		t.memory.len(),
		t.storage.len(),
	)
}

// Close releases the memory tier. The durable store is left to its owner.
func (t *Tiered) Close() error {
	t.memory.close()
	return nil
}
