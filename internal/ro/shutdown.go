// Package ro holds the reactive streams skillswap builds on samber/ro:
// OS shutdown signals and fixed-interval tickers.
package ro

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/ro"
)

// ShutdownSignals are the OS signals that trigger graceful shutdown.
var ShutdownSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}

// GracefulShutdown creates an Observable that emits the first shutdown signal
// received after subscription and then completes.
//
// Example:
//
//	sub := GracefulShutdown().SubscribeWithContext(ctx, ro.OnNextWithContext(
//	    func(_ context.Context, sig os.Signal) { log.Info().Msgf("received %v", sig) },
//	))
func GracefulShutdown() ro.Observable[os.Signal] {
	return GracefulShutdownWithSignals(ShutdownSignals...)
}

// GracefulShutdownWithSignals is GracefulShutdown for a custom signal set.
// Each subscription registers its own notification channel, released on teardown.
func GracefulShutdownWithSignals(signals ...os.Signal) ro.Observable[os.Signal] {
	return ro.NewObservableWithContext(func(ctx context.Context, observer ro.Observer[os.Signal]) ro.Teardown {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, signals...)
		done := make(chan struct{})

		go func() {
			select {
			case sig := <-ch:
				observer.NextWithContext(ctx, sig)
				observer.CompleteWithContext(ctx)
			case <-ctx.Done():
				observer.ErrorWithContext(ctx, ctx.Err())
			case <-done:
			}
		}()

		return func() {
			signal.Stop(ch)
			close(done)
		}
	})
}

// WaitForShutdown blocks until a shutdown signal arrives or ctx is canceled.
//
// Example:
//
//	sig, err := WaitForShutdown(ctx)
//	if err != nil {
//	    return err
//	}
//	log.Info().Msgf("received %v, shutting down", sig)
func WaitForShutdown(ctx context.Context) (os.Signal, error) {
	return waitFor(ctx, GracefulShutdown())
}

func waitFor(ctx context.Context, src ro.Observable[os.Signal]) (os.Signal, error) {
	results, _, err := ro.CollectWithContext(ctx, src)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ctx.Err()
	}
	return results[0], nil
}

// OnShutdown runs callback when a shutdown signal is received. Unsubscribe
// to cancel the registration.
func OnShutdown(ctx context.Context, callback func(os.Signal)) ro.Subscription {
	return GracefulShutdown().SubscribeWithContext(ctx, ro.OnNextWithContext(func(_ context.Context, sig os.Signal) {
		callback(sig)
	}))
}
