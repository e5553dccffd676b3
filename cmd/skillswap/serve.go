package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omarluq/skillswap/internal/di"
	"github.com/omarluq/skillswap/internal/ro"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the realtime event server",
		Long: `Start the event server that authenticates SkillSwap clients and relays swap
requests, messages and presence between them. The cache janitor and the
dependency health checker run alongside it, and the config file is watched
for changes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := di.NewContainer(a.configPath())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), container)
		},
	}
}

// runServe blocks until a shutdown signal arrives or ctx is canceled.
func runServe(ctx context.Context, container *di.Container) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfgSvc, err := di.Invoke[*di.ConfigService](container)
	if err != nil {
		return err
	}
	if _, err := di.Invoke[*di.LoggerService](container); err != nil {
		return err
	}
	cfg := cfgSvc.Get()

	srvSvc, err := di.Invoke[*di.EventServerService](container)
	if err != nil {
		return shutdownAfter(container, err)
	}
	cacheSvc, err := di.Invoke[*di.CacheService](container)
	if err != nil {
		return shutdownAfter(container, err)
	}
	checkerSvc, err := di.Invoke[*di.CheckerService](container)
	if err != nil {
		return shutdownAfter(container, err)
	}

	l, err := net.Listen("tcp", cfg.Server.GetListen())
	if err != nil {
		return shutdownAfter(container, fmt.Errorf("listen %s: %w", cfg.Server.GetListen(), err))
	}

	cfgSvc.StartWatching(ctx)
	cacheSvc.StartJanitor(ctx)
	checkerSvc.Start()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srvSvc.Serve(l)
	}()

	log.Info().
		Str("listen", l.Addr().String()).
		Str("path", cfg.Server.GetPath()).
		Str("config", cfgSvc.Path()).
		Msg("starting skillswap")

	signals := make(chan os.Signal, 1)
	go func() {
		sig, _ := ro.WaitForShutdown(ctx)
		signals <- sig
	}()

	var runErr error
	select {
	case sig := <-signals:
		if sig != nil {
			log.Info().Str("signal", sig.String()).Msg("shutting down...")
		}
	case runErr = <-serveErr:
		if runErr != nil {
			log.Error().Err(runErr).Msg("server error")
		}
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := container.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
		if runErr == nil {
			runErr = err
		}
	}

	log.Info().Msg("server stopped")
	return runErr
}

func shutdownAfter(container *di.Container, err error) error {
	if shutdownErr := container.Shutdown(); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("shutdown error")
	}
	return err
}
