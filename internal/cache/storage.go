package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/skillswap/internal/health"
)

// storageTier is the durable tier: envelopes in a Store under <prefix>_<key>,
// guarded by a circuit breaker so a failing backend degrades to misses quickly.
type storageTier struct {
	store   Store
	breaker *health.CircuitBreaker
	index   map[string]struct{}
	prefix  string
	log     zerolog.Logger
	mu      sync.Mutex
}

func newStorageTier(store Store, prefix string, breaker *health.CircuitBreaker) *storageTier {
	return &storageTier{
		store:   store,
		breaker: breaker,
		index:   make(map[string]struct{}),
		prefix:  prefix + "_",
		log:     logger().With().Str("tier", "storage").Logger(),
	}
}

func (s *storageTier) durableKey(key string) string {
	return s.prefix + key
}

// guard runs op through the breaker. A miss is an ordinary answer, not a backend failure.
func (s *storageTier) guard(op func() error) error {
	if s.breaker == nil {
		return op()
	}
	return s.breaker.Execute(op, ErrNotFound)
}

// set writes the envelope for e. Failures are returned so the caller can log them.
func (s *storageTier) set(ctx context.Context, key string, e Entry) error {
	data, err := encodeEnvelope(e)
	if err != nil {
		return errors.Join(ErrSerializationFailed, err)
	}

	if err := s.guard(func() error {
		return s.store.Set(ctx, s.durableKey(key), data)
	}); err != nil {
		return err
	}

	s.remember(key)
	return nil
}

// get reads and decodes the envelope for key.
// Expired entries are deleted and reported as errExpired. Corrupt entries are
// reported as ErrCorruptEntry and left in place for the next sweep.
func (s *storageTier) get(ctx context.Context, key string, now time.Time) (Entry, error) {
	var data []byte
	err := s.guard(func() error {
		var getErr error
		data, getErr = s.store.Get(ctx, s.durableKey(key))
		return getErr
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.forget(key)
		}
		return Entry{}, err
	}

	e, err := decodeEnvelope(data)
	if err != nil {
		return Entry{}, err
	}

	if e.Expired(now) {
		if delErr := s.delete(ctx, key); delErr != nil {
			s.log.Debug().Err(delErr).Str("key", key).Msg("failed to delete expired entry")
		}
		return Entry{}, errExpired
	}

	s.remember(key)
	return e, nil
}

func (s *storageTier) delete(ctx context.Context, key string) error {
	err := s.guard(func() error {
		return s.store.Delete(ctx, s.durableKey(key))
	})
	if err == nil {
		s.forget(key)
	}
	return err
}

// keys lists the logical keys currently held by the store under this prefix.
func (s *storageTier) keys(ctx context.Context) ([]string, error) {
	var durable []string
	err := s.guard(func() error {
		var keysErr error
		durable, keysErr = s.store.Keys(ctx, s.prefix)
		return keysErr
	})
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(durable))
	for _, k := range durable {
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
	}
	return keys, nil
}

// clear removes every entry under this prefix. Keys owned by others are untouched.
func (s *storageTier) clear(ctx context.Context) error {
	keys, err := s.keys(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, key := range keys {
		if delErr := s.delete(ctx, key); delErr != nil {
			errs = append(errs, delErr)
		}
	}

	s.mu.Lock()
	clear(s.index)
	s.mu.Unlock()

	return errors.Join(errs...)
}

// sweep deletes expired and unparsable entries. It returns how many of each were removed.
func (s *storageTier) sweep(ctx context.Context, now time.Time) (expired, corrupt int, err error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, key := range keys {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return expired, corrupt, ctxErr
		}

		var data []byte
		getErr := s.guard(func() error {
			var e error
			data, e = s.store.Get(ctx, s.durableKey(key))
			return e
		})
		if errors.Is(getErr, ErrNotFound) {
			s.forget(key)
			continue
		}
		if getErr != nil {
			return expired, corrupt, getErr
		}

		expiresAt, decodeErr := envelopeExpiry(data)
		switch {
		case decodeErr != nil:
			if delErr := s.delete(ctx, key); delErr == nil {
				corrupt++
			}
		case now.After(expiresAt):
			if delErr := s.delete(ctx, key); delErr == nil {
				expired++
			}
		default:
			s.remember(key)
		}
	}

	return expired, corrupt, nil
}

// warm rebuilds the key index from the store and returns the number of keys found.
func (s *storageTier) warm(ctx context.Context) (int, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.index[key] = struct{}{}
	}
	return len(keys), nil
}

func (s *storageTier) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *storageTier) remember(key string) {
	s.mu.Lock()
	s.index[key] = struct{}{}
	s.mu.Unlock()
}

func (s *storageTier) forget(key string) {
	s.mu.Lock()
	delete(s.index, key)
	s.mu.Unlock()
}
