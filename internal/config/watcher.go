package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadCallback receives a configuration that parsed and validated. A
// returned error is logged and does not stop the remaining callbacks.
type ReloadCallback func(*Config) error

// ErrWatcherClosed is returned by a second Close.
var ErrWatcherClosed = errors.New("config: watcher already closed")

const defaultDebounce = 100 * time.Millisecond

// Watcher reloads one config file when it changes on disk.
//
// The parent directory is watched rather than the file so that editors
// replacing the file through a rename are still seen. Events arriving within
// the debounce window of each other produce a single reload.
type Watcher struct {
	fs        *fsnotify.Watcher
	log       *zerolog.Logger
	path      string
	debounce  time.Duration
	mu        sync.Mutex
	callbacks []ReloadCallback
	closed    bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the quiet period before a reload. Default 100ms.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatcherLogger sets where reload outcomes are logged.
func WithWatcherLogger(l *zerolog.Logger) WatcherOption {
	return func(w *Watcher) { w.log = l }
}

// NewWatcher starts watching the directory holding path. Reloads are not
// delivered until Watch runs.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	nop := zerolog.Nop()
	w := &Watcher{path: abs, debounce: defaultDebounce, log: &nop}
	for _, opt := range opts {
		opt(w)
	}

	if w.fs, err = fsnotify.NewWatcher(); err != nil {
		return nil, err
	}
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		return nil, errors.Join(err, w.fs.Close())
	}
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// OnReload adds cb. Callbacks run in the order they were added.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, cb)
	w.mu.Unlock()
}

// Watch delivers reloads until ctx is canceled or the watcher is closed.
// Callbacks run on the calling goroutine.
func (w *Watcher) Watch(ctx context.Context) error {
	name := filepath.Base(w.path)

	// Created stopped; armed by the first relevant event.
	quiet := time.NewTimer(time.Hour)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) == name && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				quiet.Reset(w.debounce)
			}

		case <-quiet.C:
			w.reload()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Error().Err(err).Msg("config watcher error")
		}
	}
}

// reload hands a fresh config to the callbacks. A file that fails to parse or
// validate is logged and the running config stays in place.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.log.Error().Err(err).Str("path", w.path).Msg("config reload rejected, keeping current")
		return
	}
	w.log.Info().Str("path", w.path).Msg("config file reloaded")

	w.mu.Lock()
	callbacks := append([]ReloadCallback(nil), w.callbacks...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(cfg); err != nil {
			w.log.Error().Err(err).Msg("config reload callback error")
		}
	}
}

// Close stops the watcher; a running Watch returns.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWatcherClosed
	}
	w.closed = true
	return w.fs.Close()
}
