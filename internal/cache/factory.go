package cache

import (
	"context"
	"fmt"
	"time"
)

// NewStore creates the durable backend selected by cfg.Mode.
// It returns an error if the configuration is invalid or if the backend
// fails to initialize.
//
// Example:
//
//	store, err := cache.NewStore(ctx, &cache.StorageConfig{
//		Mode: cache.StorageFile,
//		File: cache.FileConfig{Path: "/var/lib/skillswap/cache.db"},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
func NewStore(ctx context.Context, cfg *StorageConfig) (Store, error) {
	log := logger().With().Str("component", "store_factory").Logger()
	start := time.Now()
	mode := cfg.GetMode()

	if err := cfg.Validate(); err != nil {
		log.Debug().Err(err).Str("mode", string(mode)).Msg("store factory: validation failed")
		return nil, err
	}

	log.Info().
		Str("mode", string(mode)).
		Msg("store factory: initializing backend")

	var store Store
	var err error

	switch mode {
	case StorageFile:
		store, err = newBoltStore(&cfg.File)
	case StorageOlric:
		store, err = newOlricStore(ctx, &cfg.Olric)
	case StorageDisabled:
		store = newNoopStore()
	default:
		return nil, fmt.Errorf("cache: unknown storage mode %q", mode)
	}

	if err != nil {
		log.Error().Err(err).Str("mode", string(mode)).Msg("store factory: backend initialization failed")
		return nil, err
	}

	log.Info().
		Str("mode", string(mode)).
		Dur("init_time", time.Since(start)).
		Msg("store factory: backend initialized")

	return store, nil
}
