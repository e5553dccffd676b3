package di

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/samber/do/v2"
	"github.com/tidwall/gjson"

	"github.com/omarluq/skillswap/internal/cache"
	"github.com/omarluq/skillswap/internal/channel"
	"github.com/omarluq/skillswap/internal/health"
)

// HealthTrackerService wraps the health tracker for DI.
type HealthTrackerService struct {
	Tracker *health.Tracker
}

// CheckerService owns the recovery prober for OPEN circuits.
type CheckerService struct {
	Checker   *health.Checker
	started   bool
	startedMu sync.Mutex
}

// NewHealthTracker creates the tracker from configuration.
func NewHealthTracker(i do.Injector) (*HealthTrackerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)

	tracker := health.NewTracker(cfgSvc.Get().Health.CircuitBreaker, loggerSvc.Logger)
	return &HealthTrackerService{Tracker: tracker}, nil
}

// NewChecker creates the checker and registers a probe per dependency:
// a ping of the durable store when it supports one, and the event server's
// /healthz endpoint.
func NewChecker(i do.Injector) (*CheckerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	trackerSvc := do.MustInvoke[*HealthTrackerService](i)
	storeSvc := do.MustInvoke[*StoreService](i)
	loggerSvc := do.MustInvoke[*LoggerService](i)
	cfg := cfgSvc.Get()

	checker := health.NewChecker(trackerSvc.Tracker, cfg.Health.HealthCheck, loggerSvc.Logger)

	if pinger, ok := storeSvc.Store.(cache.Pinger); ok {
		checker.Register(health.NewFuncProbe(health.DependencyCacheStorage, pinger.Ping))
	} else {
		checker.Register(health.NewFuncProbe(health.DependencyCacheStorage, func(ctx context.Context) error {
			_, err := storeSvc.Store.Get(ctx, "__skillswap_ping__")
			if errors.Is(err, cache.ErrNotFound) {
				return nil
			}
			return err
		}))
	}

	if healthURL, ok := healthzURL(cfg.Channel.GetURL()); ok {
		checker.Register(health.NewHTTPProbe(health.DependencyEventServer, healthURL, nil))
		loggerSvc.Logger.Debug().Str("url", healthURL).Msg("registered event server probe")
	}

	return &CheckerService{Checker: checker}, nil
}

// healthzURL maps ws://host/path to http://host/healthz.
func healthzURL(channelURL string) (string, bool) {
	u, err := url.Parse(channelURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", false
	}
	u.Path = "/healthz"
	u.RawQuery = ""
	return u.String(), true
}

// Start starts the checker once.
func (h *CheckerService) Start() {
	h.startedMu.Lock()
	defer h.startedMu.Unlock()
	if h.started {
		return
	}
	h.started = true
	h.Checker.Start()
}

// Shutdown implements do.Shutdowner.
func (h *CheckerService) Shutdown() error {
	h.startedMu.Lock()
	defer h.startedMu.Unlock()
	if h.started {
		h.Checker.Stop()
		h.started = false
	}
	return nil
}

// trackChannel feeds channel lifecycle events into the tracker.
func trackChannel(c *channel.Client, tracker *health.Tracker) {
	c.On(channel.EventConnect, func(_ json.RawMessage) error {
		tracker.RecordSuccess(health.DependencyEventServer)
		return nil
	})
	failure := func(data json.RawMessage) error {
		msg := gjson.GetBytes(data, "message").String()
		tracker.RecordFailure(health.DependencyEventServer, errors.New(msg))
		return nil
	}
	c.On(channel.EventConnectError, failure)
	c.On(channel.EventReconnectError, failure)
}
