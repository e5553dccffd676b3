package channel

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ListenerID identifies one registration returned by On.
type ListenerID string

// Listener handles an event payload. A returned error is logged and does not
// stop delivery to the remaining listeners.
type Listener func(data json.RawMessage) error

type registration struct {
	fn Listener
	id ListenerID
}

// registry maps event names to ordered listener lists.
type registry struct {
	log       *zerolog.Logger
	listeners map[string][]registration
	mu        sync.RWMutex
}

func newRegistry(log *zerolog.Logger) *registry {
	return &registry{
		log:       log,
		listeners: make(map[string][]registration),
	}
}

func (r *registry) on(event string, fn Listener) ListenerID {
	id := ListenerID(uuid.NewString())
	r.mu.Lock()
	r.listeners[event] = append(r.listeners[event], registration{id: id, fn: fn})
	r.mu.Unlock()
	return id
}

func (r *registry) off(event string, id ListenerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	regs := r.listeners[event]
	idx := slices.IndexFunc(regs, func(reg registration) bool { return reg.id == id })
	if idx < 0 {
		return false
	}
	regs = slices.Delete(slices.Clone(regs), idx, idx+1)
	if len(regs) == 0 {
		delete(r.listeners, event)
	} else {
		r.listeners[event] = regs
	}
	return true
}

func (r *registry) count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners[event])
}

func (r *registry) clear() {
	r.mu.Lock()
	r.listeners = make(map[string][]registration)
	r.mu.Unlock()
}

// dispatch calls every listener registered for event, in registration order,
// on a snapshot taken before the first call.
func (r *registry) dispatch(event string, data json.RawMessage) {
	r.mu.RLock()
	snapshot := slices.Clone(r.listeners[event])
	r.mu.RUnlock()

	for _, reg := range snapshot {
		if err := r.call(reg, data); err != nil {
			r.log.Error().
				Err(err).
				Str("event", event).
				Str("listener", string(reg.id)).
				Msg("event listener failed")
		}
	}
}

func (r *registry) call(reg registration, data json.RawMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("listener panic: %v", rec)
		}
	}()
	return reg.fn(data)
}
