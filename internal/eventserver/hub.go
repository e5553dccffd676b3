package eventserver

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/omarluq/skillswap/internal/channel"
)

// ErrUnknownClient is returned by Kick for an id that is not connected.
var ErrUnknownClient = errors.New("eventserver: unknown client")

// Hub tracks connected peers and fans frames out to them.
type Hub struct {
	log   *zerolog.Logger
	peers map[string]*peer
	mu    sync.RWMutex
}

func newHub(log *zerolog.Logger) *Hub {
	return &Hub{log: log, peers: make(map[string]*peer)}
}

func (h *Hub) add(p *peer) {
	h.mu.Lock()
	h.peers[p.id] = p
	h.mu.Unlock()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	delete(h.peers, id)
	h.mu.Unlock()
}

func (h *Hub) snapshot() []*peer {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Values(h.peers)
}

// Clients returns the ids of connected clients.
func (h *Hub) Clients() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return lo.Keys(h.peers)
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Broadcast sends event to every client except the one with id exclude.
// It returns the number of clients reached.
func (h *Hub) Broadcast(event string, data json.RawMessage, exclude string) int {
	targets := lo.Filter(h.snapshot(), func(p *peer, _ int) bool { return p.id != exclude })
	return h.deliver(targets, event, data)
}

// Publish sends event to every client that joined room.
func (h *Hub) Publish(room, event string, data json.RawMessage) int {
	targets := lo.Filter(h.snapshot(), func(p *peer, _ int) bool { return p.inRoom(room) })
	return h.deliver(targets, event, data)
}

func (h *Hub) deliver(targets []*peer, event string, data json.RawMessage) int {
	f := channel.Frame{Type: channel.FrameEvent, Event: event, Data: data}
	sent := 0
	for _, p := range targets {
		if err := p.send(f); err != nil {
			h.log.Debug().Err(err).Str("client", p.id).Str("event", event).Msg("deliver failed")
			continue
		}
		sent++
	}
	return sent
}

// Kick sends a server-initiated disconnect to client id and closes its connection.
func (h *Hub) Kick(id string) error {
	h.mu.RLock()
	p, ok := h.peers[id]
	h.mu.RUnlock()
	if !ok {
		return ErrUnknownClient
	}

	sendErr := p.send(channel.Frame{Type: channel.FrameDisconnect, Reason: channel.ReasonServerDisconnect})
	return errors.Join(sendErr, p.ws.Close())
}

// closeAll closes every connection without a disconnect frame.
func (h *Hub) closeAll() {
	for _, p := range h.snapshot() {
		if err := p.ws.Close(); err != nil {
			h.log.Debug().Err(err).Str("client", p.id).Msg("close failed")
		}
	}
}
