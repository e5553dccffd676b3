// Package cache provides the two-tier expiring cache used by skillswap.
//
// Every entry lives in a fast in-process memory tier (Ristretto). Entries written
// with Persistent() are also serialized into a durable tier backed by a Store:
//   - File mode (bbolt): local database that survives process restarts
//   - Olric mode: embedded node or cluster client for shared deployments
//   - Disabled mode (Noop): durable writes are dropped and reads always miss
//
// Expiry is lazy. Entries are checked when read and swept by Cleanup, which the
// Janitor runs on a fixed interval. Durable-tier failures never reach the caller:
// they are logged and surface as a miss.
//
// Basic usage:
//
//	store, err := cache.NewStore(ctx, &cfg.Storage)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	c, err := cache.New(&cfg, store)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	_ = c.Set(ctx, "profile", profile, cache.WithTTL(time.Minute), cache.Persistent())
//	if raw, ok := c.Get(ctx, "profile", true).Get(); ok {
//		// use raw JSON
//	}
package cache

import "context"

// Store is the durable tier backend: a byte-oriented key/value store.
// All implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a value.
	// Returns ErrNotFound if the key does not exist.
	// Returns ErrClosed if the store has been closed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value, replacing any previous one.
	// Returns ErrClosed if the store has been closed.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key.
	// Returns nil if the key does not exist (idempotent).
	Delete(ctx context.Context, key string) error

	// Keys lists every key starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources associated with the store.
	// After Close is called, all operations will return ErrClosed.
	// Close is idempotent.
	Close() error
}

// Pinger is an optional interface for stores that support health checks.
//
//	if p, ok := store.(cache.Pinger); ok {
//		if err := p.Ping(ctx); err != nil {
//			// durable tier unreachable
//		}
//	}
type Pinger interface {
	Ping(ctx context.Context) error
}
