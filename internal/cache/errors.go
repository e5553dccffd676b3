package cache

import "errors"

// Standard errors for cache operations.
//
// Use errors.Is to check for these errors:
//
//	data, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrNotFound) {
//		// handle miss
//	}
var (
	// ErrNotFound is returned when a key does not exist in a store.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("cache: cache is closed")

	// ErrSerializationFailed is returned when a value cannot be encoded as JSON.
	ErrSerializationFailed = errors.New("cache: serialization failed")

	// ErrCorruptEntry is returned when a durable envelope cannot be decoded.
	ErrCorruptEntry = errors.New("cache: corrupt cached data")

	// errExpired marks a durable entry that was found but is past its expiry.
	errExpired = errors.New("cache: entry expired")
)
