package di

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/skillswap/internal/cache"
	"github.com/omarluq/skillswap/internal/config"
	"github.com/omarluq/skillswap/internal/logging"
)

// LoggerService owns the process logger. The configured level is applied
// through zerolog's global level so a reload takes effect everywhere at once.
type LoggerService struct {
	Logger *zerolog.Logger
	closer io.Closer
}

// NewLogger creates the logger from configuration and installs it as the
// global and cache package logger.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	cfg := cfgSvc.Get()

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger = logger.Level(zerolog.TraceLevel)
	zerolog.SetGlobalLevel(cfg.Logging.ParseLevel())

	log.Logger = logger
	cache.SetLogger(&logger)

	svc := &LoggerService{Logger: &logger, closer: closer}
	cfgSvc.OnReload(func(newCfg *config.Config) error {
		level := newCfg.Logging.ParseLevel()
		if level != zerolog.GlobalLevel() {
			zerolog.SetGlobalLevel(level)
			logger.Info().Str("level", level.String()).Msg("log level changed")
		}
		return nil
	})
	return svc, nil
}

// Shutdown closes the log file, if any.
func (l *LoggerService) Shutdown() error {
	return l.closer.Close()
}
