package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/olric-data/olric"
	olricconfig "github.com/olric-data/olric/config"
	"github.com/rs/zerolog"
)

const (
	olricStartTimeout = 10 * time.Second
	olricPingKey      = "__skillswap_ping__"
)

// olricStore keeps durable entries in an Olric DMap so every skillswap
// process attached to the same cluster shares them. It either runs an
// embedded node or dials an existing cluster; shutdown undoes whichever.
type olricStore struct {
	dmap     olric.DMap
	shutdown func(context.Context) error
	log      zerolog.Logger
	mu       sync.RWMutex
	closed   bool
}

var (
	_ Store  = (*olricStore)(nil)
	_ Pinger = (*olricStore)(nil)
)

func newOlricStore(ctx context.Context, cfg *OlricConfig) (*olricStore, error) {
	lg := logger().With().Str("backend", "olric").Logger()
	name := cfg.DMapName
	if name == "" {
		name = DefaultDMapName
	}

	var (
		client   olric.Client
		shutdown func(context.Context) error
		err      error
	)
	if cfg.Embedded {
		client, shutdown, err = startEmbeddedOlric(ctx, cfg)
	} else {
		client, shutdown, err = dialOlricCluster(cfg)
	}
	if err != nil {
		return nil, err
	}

	dm, err := client.NewDMap(name)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("olric dmap %q: %w", name, err), shutdown(context.Background()))
	}

	lg.Info().
		Bool("embedded", cfg.Embedded).
		Str("bind_addr", cfg.BindAddr).
		Strs("addresses", cfg.Addresses).
		Str("dmap", name).
		Msg("olric store ready")

	return &olricStore{dmap: dm, shutdown: shutdown, log: lg}, nil
}

// startEmbeddedOlric runs a node in-process and waits for it to join.
func startEmbeddedOlric(ctx context.Context, cfg *OlricConfig) (olric.Client, func(context.Context) error, error) {
	env := cfg.Environment
	if env == "" {
		env = EnvLocal
	}
	c := olricconfig.New(env)
	host, port := splitBindAddr(cfg.BindAddr)
	c.BindAddr = host
	if port > 0 {
		c.BindPort = port
	}
	if len(cfg.Peers) > 0 {
		c.Peers = cfg.Peers
	}
	// Olric logs through the stdlib logger; the store logs lifecycle itself.
	c.LogOutput = io.Discard
	c.Logger = log.New(io.Discard, "", 0)

	ready := make(chan struct{})
	c.Started = func() { close(ready) }

	db, err := olric.New(c)
	if err != nil {
		return nil, nil, fmt.Errorf("olric embedded node: %w", err)
	}

	failed := make(chan error, 1)
	go func() {
		if err := db.Start(); err != nil {
			failed <- err
		}
	}()

	wait, cancel := context.WithTimeout(ctx, olricStartTimeout)
	defer cancel()
	select {
	case <-ready:
	case err := <-failed:
		return nil, nil, fmt.Errorf("olric embedded node: %w", err)
	case <-wait.Done():
		// Single-node clusters can miss Started; the DMap call below still
		// fails if the node really is down.
		lg := logger()
		lg.Warn().Str("backend", "olric").Msg("olric node did not report started in time")
	}

	return db.NewEmbeddedClient(), db.Shutdown, nil
}

func dialOlricCluster(cfg *OlricConfig) (olric.Client, func(context.Context) error, error) {
	if len(cfg.Addresses) == 0 {
		return nil, nil, errors.New("cache: olric addresses required for client mode")
	}
	client, err := olric.NewClusterClient(cfg.Addresses)
	if err != nil {
		return nil, nil, fmt.Errorf("olric cluster %v: %w", cfg.Addresses, err)
	}
	return client, client.Close, nil
}

// splitBindAddr accepts "host" or "host:port". A missing or bad port is 0.
func splitBindAddr(addr string) (string, int) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return host, 0
	}
	return host, n
}

// use runs fn while holding the store open.
func (o *olricStore) use(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrClosed
	}
	return fn()
}

func (o *olricStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := o.use(ctx, func() error {
		resp, err := o.dmap.Get(ctx, key)
		if errors.Is(err, olric.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		b, err := resp.Byte()
		if err != nil {
			return err
		}
		out = append([]byte(nil), b...)
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		o.log.Debug().Err(err).Str("key", key).Msg("olric get failed")
	}
	return out, err
}

// Set writes value with no DMap expiry; entries carry their own deadline.
func (o *olricStore) Set(ctx context.Context, key string, value []byte) error {
	return o.use(ctx, func() error {
		if err := o.dmap.Put(ctx, key, append([]byte(nil), value...)); err != nil {
			o.log.Debug().Err(err).Str("key", key).Msg("olric put failed")
			return err
		}
		return nil
	})
}

// Delete is idempotent.
func (o *olricStore) Delete(ctx context.Context, key string) error {
	return o.use(ctx, func() error {
		if _, err := o.dmap.Delete(ctx, key); err != nil && !errors.Is(err, olric.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

func (o *olricStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := o.use(ctx, func() error {
		it, err := o.dmap.Scan(ctx, olric.Match("^"+regexp.QuoteMeta(prefix)))
		if err != nil {
			return err
		}
		defer it.Close()
		for it.Next() {
			keys = append(keys, it.Key())
		}
		return nil
	})
	return keys, err
}

// Ping reads a key that never exists; ErrKeyNotFound proves a round trip.
func (o *olricStore) Ping(ctx context.Context) error {
	return o.use(ctx, func() error {
		if _, err := o.dmap.Get(ctx, olricPingKey); err != nil && !errors.Is(err, olric.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

// Close releases the DMap and then the node or cluster client. Later calls
// return nil.
func (o *olricStore) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true

	ctx := context.Background()
	if err := o.dmap.Close(ctx); err != nil {
		o.log.Debug().Err(err).Msg("olric dmap close")
	}
	if err := o.shutdown(ctx); err != nil {
		return fmt.Errorf("olric shutdown: %w", err)
	}
	o.log.Info().Msg("olric store closed")
	return nil
}
