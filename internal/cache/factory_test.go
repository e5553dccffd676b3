package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		t.Parallel()

		store, err := NewStore(ctx, &StorageConfig{
			Mode: StorageFile,
			File: FileConfig{Path: filepath.Join(t.TempDir(), "c.db")},
		})
		require.NoError(t, err)
		defer store.Close()

		_, ok := store.(*boltStore)
		assert.True(t, ok)
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		store, err := NewStore(ctx, &StorageConfig{Mode: StorageDisabled})
		require.NoError(t, err)
		defer store.Close()

		_, ok := store.(*noopStore)
		assert.True(t, ok)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		_, err := NewStore(ctx, &StorageConfig{Mode: "memcached"})
		assert.Error(t, err)
	})

	t.Run("olric without addresses", func(t *testing.T) {
		t.Parallel()

		_, err := NewStore(ctx, &StorageConfig{Mode: StorageOlric})
		assert.Error(t, err)
	})
}
