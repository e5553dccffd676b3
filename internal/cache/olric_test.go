package cache

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// portCounter is used to generate unique ports for each test.
var portCounter atomic.Int32

func init() {
	// Start from a high port to avoid conflicts.
	portCounter.Store(13320)
}

func getNextPort() int {
	return int(portCounter.Add(1))
}

// newTestOlricStore starts an embedded Olric node, so no cluster is needed.
func newTestOlricStore(t *testing.T) *olricStore {
	t.Helper()

	if testing.Short() {
		t.Skip("embedded olric node is slow to start")
	}

	port := getNextPort()
	cfg := OlricConfig{
		DMapName: fmt.Sprintf("test-dmap-%d", port),
		Embedded: true,
		BindAddr: fmt.Sprintf("127.0.0.1:%d", port),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := newOlricStore(ctx, &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestOlricStore_GetSetDelete(t *testing.T) {
	store := newTestOlricStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v")))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOlricStore_Keys(t *testing.T) {
	store := newTestOlricStore(t)
	ctx := context.Background()

	for _, k := range []string{"skillswap_cache_a", "skillswap_cache_b", "skillswap_auth_token"} {
		require.NoError(t, store.Set(ctx, k, []byte("1")))
	}

	keys, err := store.Keys(ctx, "skillswap_cache_")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"skillswap_cache_a", "skillswap_cache_b"}, keys)
}

func TestOlricStore_PingAndClose(t *testing.T) {
	store := newTestOlricStore(t)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Ping(ctx), ErrClosed)
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOlricStore_ClientModeRequiresAddresses(t *testing.T) {
	t.Parallel()

	_, err := newOlricStore(context.Background(), &OlricConfig{})
	assert.Error(t, err)
}

func TestSplitBindAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		wantHost string
		wantPort int
	}{
		{in: "127.0.0.1:3320", wantHost: "127.0.0.1", wantPort: 3320},
		{in: "0.0.0.0", wantHost: "0.0.0.0", wantPort: 0},
		{in: "host:notaport", wantHost: "host", wantPort: 0},
	}

	for _, tt := range tests {
		host, port := splitBindAddr(tt.in)
		assert.Equal(t, tt.wantHost, host, tt.in)
		assert.Equal(t, tt.wantPort, port, tt.in)
	}
}
