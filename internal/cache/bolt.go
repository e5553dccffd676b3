package cache

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

// boltStore implements Store on a local bbolt database file.
// It is the default durable backend and survives process restarts.
type boltStore struct {
	db     *bolt.DB
	log    zerolog.Logger
	bucket []byte
	closed atomic.Bool
	mu     sync.RWMutex
}

// Ensure boltStore implements the required interfaces.
var (
	_ Store  = (*boltStore)(nil)
	_ Pinger = (*boltStore)(nil)
)

// newBoltStore opens (or creates) the database at cfg.Path and its bucket.
func newBoltStore(cfg *FileConfig) (*boltStore, error) {
	log := logger().With().Str("backend", "bolt").Logger()

	path := cfg.GetPath()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error().Err(err).Str("path", path).Msg("bolt: failed to create directory")
			return nil, err
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: cfg.GetOpenTimeout()})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("bolt: failed to open database")
		return nil, err
	}

	bucket := []byte(cfg.GetBucket())
	err = db.Update(func(tx *bolt.Tx) error {
		_, bucketErr := tx.CreateBucketIfNotExists(bucket)
		return bucketErr
	})
	if err != nil {
		log.Error().Err(err).Str("bucket", string(bucket)).Msg("bolt: failed to create bucket")
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("bolt: failed to close after bucket creation error")
		}
		return nil, err
	}

	log.Info().
		Str("path", path).
		Str("bucket", string(bucket)).
		Msg("bolt store opened")

	return &boltStore{
		db:     db,
		bucket: bucket,
		log:    log,
	}, nil
}

// Get retrieves a value.
// Returns ErrNotFound if the key does not exist.
// Returns ErrClosed if the store has been closed.
func (b *boltStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if b.closed.Load() {
		return nil, ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed.Load() {
		return nil, ErrClosed
	}

	var result []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(b.bucket).Get([]byte(key))
		if value == nil {
			return ErrNotFound
		}
		// Values are only valid for the life of the transaction
		result = make([]byte, len(value))
		copy(result, value)
		return nil
	})
	if err != nil {
		b.log.Debug().
			Str("key", key).
			Bool("hit", false).
			Msg("store get")
		return nil, err
	}

	b.log.Debug().
		Str("key", key).
		Bool("hit", true).
		Int("size", len(result)).
		Msg("store get")

	return result, nil
}

// Set stores a value, replacing any previous one.
// Returns ErrClosed if the store has been closed.
func (b *boltStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed.Load() {
		return ErrClosed
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Put([]byte(key), value)
	})
	if err != nil {
		b.log.Debug().
			Str("key", key).
			Int("size", len(value)).
			Err(err).
			Msg("store set error")
		return err
	}

	b.log.Debug().
		Str("key", key).
		Int("size", len(value)).
		Msg("store set")

	return nil
}

// Delete removes a key.
// Returns nil if the key does not exist (idempotent).
func (b *boltStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed.Load() {
		return ErrClosed
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(key))
	})
	if err != nil {
		return err
	}

	b.log.Debug().
		Str("key", key).
		Msg("store delete")

	return nil
}

// Keys lists every key starting with prefix, in byte order.
func (b *boltStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if b.closed.Load() {
		return nil, ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed.Load() {
		return nil, ErrClosed
	}

	var keys []string
	p := []byte(prefix)
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(b.bucket).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys, err
}

// Ping verifies the database is open and its bucket readable.
func (b *boltStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if b.closed.Load() {
		return ErrClosed
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(b.bucket) == nil {
			return errors.New("cache: bolt bucket missing")
		}
		return nil
	})
}

// Close closes the database file. It is idempotent.
func (b *boltStore) Close() error {
	if b.closed.Load() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed.Load() {
		return nil
	}

	b.closed.Store(true)

	if err := b.db.Close(); err != nil {
		b.log.Error().Err(err).Msg("bolt: close error")
		return err
	}

	b.log.Info().Msg("bolt store closed")
	return nil
}
