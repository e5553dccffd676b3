package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
)

// memoryItem is what the memory tier hands to Ristretto.
// Ristretto only reports key hashes on eviction, so the key travels with the value.
type memoryItem struct {
	key   string
	entry Entry
}

// memoryTier is the in-process tier backed by Ristretto.
// Ristretto cannot enumerate its keys, so the tier keeps an index of live keys
// and their expiry for sweeps and size reporting.
type memoryTier struct {
	cache  *ristretto.Cache[string, memoryItem]
	index  map[string]time.Time
	log    zerolog.Logger
	closed atomic.Bool
	mu     sync.RWMutex
	idxMu  sync.Mutex
}

// newMemoryTier creates the Ristretto-backed memory tier.
// Every entry costs 1, so MaxCost bounds the number of entries.
func newMemoryTier(cfg RistrettoConfig) (*memoryTier, error) {
	log := logger().With().Str("tier", "memory").Logger()

	bufferItems := cfg.BufferItems
	if bufferItems <= 0 {
		bufferItems = 64 // default buffer items
	}

	m := &memoryTier{
		index: make(map[string]time.Time),
		log:   log,
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, memoryItem]{
		NumCounters:        cfg.NumCounters,
		MaxCost:            cfg.MaxCost,
		BufferItems:        bufferItems,
		IgnoreInternalCost: true,
		OnEvict: func(item *ristretto.Item[memoryItem]) {
			m.forget(item.Value.key)
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create ristretto cache")
		return nil, err
	}
	m.cache = cache

	log.Info().
		Int64("num_counters", cfg.NumCounters).
		Int64("max_cost", cfg.MaxCost).
		Int64("buffer_items", bufferItems).
		Msg("memory tier created")

	return m, nil
}

// set stores an entry, replacing any previous one.
// Returns false if Ristretto refused the write.
func (m *memoryTier) set(key string, e Entry) bool {
	if m.closed.Load() {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return false
	}

	// Make a copy to prevent caller from mutating cached data
	value := make([]byte, len(e.Value))
	copy(value, e.Value)
	e.Value = value

	m.cache.Set(key, memoryItem{key: key, entry: e}, 1)
	m.cache.Wait()

	if _, ok := m.cache.Get(key); !ok {
		m.forget(key)
		m.log.Debug().Str("key", key).Msg("memory set rejected")
		return false
	}

	m.idxMu.Lock()
	m.index[key] = e.ExpiresAt
	m.idxMu.Unlock()

	m.log.Debug().
		Str("key", key).
		Int("size", len(value)).
		Time("expires_at", e.ExpiresAt).
		Msg("memory set")
	return true
}

// get returns the live entry for key. An expired entry is removed and reported as a miss.
func (m *memoryTier) get(key string, now time.Time) (Entry, bool) {
	if m.closed.Load() {
		return Entry{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return Entry{}, false
	}

	item, found := m.cache.Get(key)
	if !found {
		m.forget(key)
		m.log.Debug().Str("key", key).Bool("hit", false).Msg("memory get")
		return Entry{}, false
	}

	if item.entry.Expired(now) {
		m.cache.Del(key)
		m.forget(key)
		m.log.Debug().Str("key", key).Bool("hit", false).Bool("expired", true).Msg("memory get")
		return Entry{}, false
	}

	m.log.Debug().Str("key", key).Bool("hit", true).Msg("memory get")

	// Return a copy to prevent mutation of cached data
	out := item.entry
	out.Value = make([]byte, len(item.entry.Value))
	copy(out.Value, item.entry.Value)
	return out, true
}

func (m *memoryTier) delete(key string) {
	if m.closed.Load() {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return
	}

	m.cache.Del(key)
	m.forget(key)
}

func (m *memoryTier) clear() {
	if m.closed.Load() {
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return
	}

	m.cache.Clear()

	m.idxMu.Lock()
	clear(m.index)
	m.idxMu.Unlock()
}

// sweep removes every entry expired at now and returns how many were removed.
func (m *memoryTier) sweep(now time.Time) int {
	if m.closed.Load() {
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return 0
	}

	m.idxMu.Lock()
	expired := make([]string, 0)
	for key, expiresAt := range m.index {
		if now.After(expiresAt) {
			expired = append(expired, key)
			delete(m.index, key)
		}
	}
	m.idxMu.Unlock()

	for _, key := range expired {
		m.cache.Del(key)
	}
	return len(expired)
}

// len returns the number of indexed entries, including expired ones not yet swept.
func (m *memoryTier) len() int {
	m.idxMu.Lock()
	defer m.idxMu.Unlock()
	return len(m.index)
}

func (m *memoryTier) forget(key string) {
	m.idxMu.Lock()
	delete(m.index, key)
	m.idxMu.Unlock()
}

// close releases Ristretto's goroutines. It is idempotent.
func (m *memoryTier) close() {
	if m.closed.Load() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return
	}

	m.closed.Store(true)
	m.cache.Wait()
	m.cache.Close()

	m.log.Info().Msg("memory tier closed")
}
