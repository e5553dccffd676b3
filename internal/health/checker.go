package health

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Probe checks whether a dependency is reachable.
// Implementations should be lightweight and fast.
type Probe interface {
	// Check returns nil if the dependency is healthy.
	Check(ctx context.Context) error

	// Name returns the dependency name the probe reports for.
	Name() string
}

// FuncProbe adapts a ping function into a Probe.
type FuncProbe struct {
	fn   func(ctx context.Context) error
	name string
}

// NewFuncProbe creates a probe that calls fn.
func NewFuncProbe(name string, fn func(ctx context.Context) error) *FuncProbe {
	return &FuncProbe{name: name, fn: fn}
}

// Check calls the wrapped function.
func (p *FuncProbe) Check(ctx context.Context) error {
	if err := p.fn(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	return nil
}

// Name returns the dependency name.
func (p *FuncProbe) Name() string {
	return p.name
}

// HTTPProbe performs health checks via an HTTP GET, expecting a 2xx response.
type HTTPProbe struct {
	client *http.Client
	name   string
	url    string
}

// NewHTTPProbe creates an HTTP-based probe.
func NewHTTPProbe(name, url string, client *http.Client) *HTTPProbe {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPProbe{
		name:   name,
		url:    url,
		client: client,
	}
}

// Check performs the HTTP request.
func (h *HTTPProbe) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrProbeFailed, resp.StatusCode)
	}
	return nil
}

// Name returns the dependency name.
func (h *HTTPProbe) Name() string {
	return h.name
}

// Checker runs periodic probes against dependencies whose circuit is OPEN,
// recording successes so they recover without waiting out the full cooldown.
type Checker struct {
	ctx     context.Context
	tracker *Tracker
	probes  map[string]Probe
	logger  *zerolog.Logger
	cancel  context.CancelFunc
	config  CheckConfig
	wg      sync.WaitGroup
	mu      sync.RWMutex
}

// NewChecker creates a new Checker.
func NewChecker(tracker *Tracker, cfg CheckConfig, logger *zerolog.Logger) *Checker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Checker{
		tracker: tracker,
		config:  cfg,
		probes:  make(map[string]Probe),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a probe. A later probe with the same name replaces the earlier one.
func (h *Checker) Register(probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[probe.Name()] = probe
}

// Start begins periodic probing. Should be called once after all probes are registered.
func (h *Checker) Start() {
	if !h.config.IsEnabled() {
		if h.logger != nil {
			h.logger.Info().Msg("health checker disabled")
		}
		return
	}

	interval := h.config.GetInterval()
	jitter := cryptoRandDuration(2 * time.Second)
	ticker := time.NewTicker(interval + jitter)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer ticker.Stop()

		if h.logger != nil {
			h.logger.Info().
				Dur("interval", interval).
				Dur("jitter", jitter).
				Msg("health checker started")
		}

		for {
			select {
			case <-h.ctx.Done():
				if h.logger != nil {
					h.logger.Info().Msg("health checker stopped")
				}
				return
			case <-ticker.C:
				h.checkOpenCircuits()
			}
		}
	}()
}

// Stop stops the checker and waits for the goroutine to finish.
func (h *Checker) Stop() {
	h.cancel()
	h.wg.Wait()
}

func (h *Checker) checkOpenCircuits() {
	h.mu.RLock()
	probes := make([]Probe, 0, len(h.probes))
	for _, probe := range h.probes {
		probes = append(probes, probe)
	}
	h.mu.RUnlock()

	for _, probe := range probes {
		name := probe.Name()
		if h.tracker.GetState(name) != StateOpen {
			continue
		}

		ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
		err := probe.Check(ctx)
		cancel()

		if err != nil {
			if h.logger != nil {
				h.logger.Debug().
					Str("dependency", name).
					Err(err).
					Msg("health probe failed")
			}
			continue
		}

		if h.logger != nil {
			h.logger.Info().
				Str("dependency", name).
				Msg("health probe succeeded, recording success")
		}
		h.tracker.RecordSuccess(name)
	}
}

// cryptoRandDuration returns a cryptographically random duration between 0 and maxDur.
func cryptoRandDuration(maxDur time.Duration) time.Duration {
	if maxDur <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	n := binary.LittleEndian.Uint64(b[:])
	//nolint:gosec // G115: maxDur is always positive (checked above), safe conversion
	return time.Duration(n % uint64(maxDur))
}
