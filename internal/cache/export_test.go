package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// manualClock is a settable clock for expiry tests.
type manualClock struct {
	now time.Time
	mu  sync.Mutex
}

func newManualClock() *manualClock {
	return &manualClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// mapStore is an in-memory Store with failure injection.
type mapStore struct {
	data    map[string][]byte
	failErr error
	sets    atomic.Int32
	mu      sync.Mutex
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (m *mapStore) fail(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *mapStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.sets.Add(1)
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *mapStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	delete(m.data, key)
	return nil
}

func (m *mapStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *mapStore) Close() error { return nil }

func (m *mapStore) raw(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *mapStore) put(key string, value []byte) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Memory = RistrettoConfig{NumCounters: 10_000, MaxCost: 1_000, BufferItems: 64}
	cfg.Storage.Mode = StorageDisabled
	return &cfg
}

// newTestTiered builds a cache over a mapStore with a manual clock.
func newTestTiered(t *testing.T) (*Tiered, *mapStore, *manualClock) {
	t.Helper()

	store := newMapStore()
	clock := newManualClock()
	c, err := New(testConfig(), store, WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c, store, clock
}
