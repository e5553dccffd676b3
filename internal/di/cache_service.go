package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/skillswap/internal/cache"
	"github.com/omarluq/skillswap/internal/config"
	"github.com/omarluq/skillswap/internal/health"
)

// StoreService owns the durable backend shared by the cache and the session.
type StoreService struct {
	Store cache.Store
}

// NewStore opens the durable backend selected by cache.storage.mode.
func NewStore(i do.Injector) (*StoreService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	_ = do.MustInvoke[*LoggerService](i)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := cache.NewStore(ctx, &cfgSvc.Get().Cache.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache store: %w", err)
	}
	return &StoreService{Store: store}, nil
}

// Shutdown closes the store. The cache and session shut down first.
func (s *StoreService) Shutdown() error {
	return s.Store.Close()
}

// CacheService owns the tiered cache and its janitor.
type CacheService struct {
	Cache   *cache.Tiered
	janitor *cache.Janitor
	mu      sync.Mutex
}

// NewCache creates the tiered cache. The durable tier reports through the
// tracker's cache.storage circuit. A reload updates the default TTL.
func NewCache(i do.Injector) (*CacheService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	storeSvc := do.MustInvoke[*StoreService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)
	cfg := cfgSvc.Get()

	breaker := trackerSvc.Tracker.GetOrCreateCircuit(health.DependencyCacheStorage)
	c, err := cache.New(&cfg.Cache, storeSvc.Store, cache.WithBreaker(breaker))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	svc := &CacheService{
		Cache:   c,
		janitor: cache.NewJanitor(c, cfg.GetCleanupIntervalOption().OrElse(0)),
	}
	cfgSvc.OnReload(func(newCfg *config.Config) error {
		c.SetDefaultTTL(newCfg.Cache.GetDefaultTTL())
		return nil
	})
	return svc, nil
}

// StartJanitor warms the durable index and starts the periodic sweep.
func (c *CacheService) StartJanitor(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.janitor.Start(ctx)
}

// Shutdown stops the janitor and releases the memory tier.
func (c *CacheService) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.janitor.Stop()
	return c.Cache.Close()
}
