package ro

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/ro"
)

// Every creates an Observable that emits the current time on every interval
// until the subscription is disposed or the subscriber context is canceled.
// A non-positive interval yields an Observable that completes immediately.
//
// Example:
//
//	sub := Every(time.Minute).SubscribeWithContext(ctx, ro.OnNextWithContext(
//	    func(ctx context.Context, at time.Time) { sweep(ctx, at) },
//	))
//	defer sub.Unsubscribe()
func Every(interval time.Duration) ro.Observable[time.Time] {
	if interval <= 0 {
		return ro.Empty[time.Time]()
	}

	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[time.Time]) ro.Teardown {
		ticker := time.NewTicker(interval)
		done := make(chan struct{})

		go func() {
			for {
				select {
				case at := <-ticker.C:
					observer.NextWithContext(ctx, at)
				case <-ctx.Done():
					observer.CompleteWithContext(ctx)
					return
				case <-done:
					return
				}
			}
		}()

		return func() {
			ticker.Stop()
			close(done)
		}
	})
}

// LogEach logs each item that passes through the stream without modifying it.
//
// Example:
//
//	stream := ro.Pipe1(
//	    Every(time.Minute),
//	    LogEach[time.Time](&logger, "janitor"),
//	)
func LogEach[T any](logger *zerolog.Logger, name string) func(ro.Observable[T]) ro.Observable[T] {
	return ro.DoOnNext[T](func(item T) {
		logger.Debug().
			Interface("item", item).
			Str("stream", name).
			Msg("stream event")
	})
}
