package cache

import (
	"context"
	"sync"
	"time"

	"github.com/samber/ro"

	rx "github.com/omarluq/skillswap/internal/ro"
)

// Janitor sweeps a Tiered cache on a fixed interval.
type Janitor struct {
	cache    *Tiered
	sub      ro.Subscription
	interval time.Duration
	mu       sync.Mutex
}

// NewJanitor creates a janitor for c. A non-positive interval disables periodic
// sweeps; Start still runs the eager startup sweep.
func NewJanitor(c *Tiered, interval time.Duration) *Janitor {
	return &Janitor{cache: c, interval: interval}
}

// Start warms the durable index, runs one sweep immediately and then schedules
// a sweep every interval until Stop is called or ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.sub != nil {
		return
	}

	j.cache.Warm(ctx)
	j.cache.Cleanup(ctx)

	if j.interval <= 0 {
		j.cache.log.Info().Msg("cache janitor periodic sweep disabled")
		return
	}

	log := j.cache.log.With().Str("stream", "janitor").Logger()
	ticks := rx.LogEach[time.Time](&log, "janitor")(rx.Every(j.interval))
	j.sub = ticks.SubscribeWithContext(ctx, ro.OnNextWithContext(func(ctx context.Context, _ time.Time) {
		j.cache.Cleanup(ctx)
	}))

	j.cache.log.Info().Dur("interval", j.interval).Msg("cache janitor started")
}

// Stop cancels the periodic sweep. It is idempotent.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.sub == nil {
		return
	}
	j.sub.Unsubscribe()
	j.sub = nil

	j.cache.log.Info().Msg("cache janitor stopped")
}
