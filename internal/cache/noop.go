package cache

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// noopStore is the durable backend used when storage is disabled.
// All write operations succeed but do nothing.
// All read operations return ErrNotFound.
type noopStore struct {
	log    zerolog.Logger
	closed atomic.Bool
}

var (
	_ Store  = (*noopStore)(nil)
	_ Pinger = (*noopStore)(nil)
)

func newNoopStore() *noopStore {
	log := logger().With().Str("backend", "noop").Logger()
	log.Debug().Str("note", "durable storage is disabled").Msg("noop store created")
	return &noopStore{
		log: log,
	}
}

// Get always returns ErrNotFound since noopStore stores nothing.
func (n *noopStore) Get(_ context.Context, key string) ([]byte, error) {
	if n.closed.Load() {
		return nil, ErrClosed
	}
	n.log.Debug().
		Str("key", key).
		Bool("hit", false).
		Msg("store get")
	return nil, ErrNotFound
}

// Set is a no-op that always returns nil.
func (n *noopStore) Set(_ context.Context, key string, value []byte) error {
	if n.closed.Load() {
		return ErrClosed
	}
	n.log.Debug().
		Str("key", key).
		Int("size", len(value)).
		Msg("store set")
	return nil
}

// Delete is a no-op that always returns nil.
func (n *noopStore) Delete(_ context.Context, _ string) error {
	if n.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Keys always returns an empty list.
func (n *noopStore) Keys(_ context.Context, _ string) ([]string, error) {
	if n.closed.Load() {
		return nil, ErrClosed
	}
	return nil, nil
}

// Ping succeeds until the store is closed.
func (n *noopStore) Ping(_ context.Context) error {
	if n.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close marks the store as closed. It is idempotent.
func (n *noopStore) Close() error {
	if n.closed.Swap(true) {
		return nil
	}
	n.log.Info().Msg("noop store closed")
	return nil
}
