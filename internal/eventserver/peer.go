package eventserver

import (
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/omarluq/skillswap/internal/channel"
)

// peer is one authenticated client connection.
type peer struct {
	ws           *websocket.Conn
	rooms        map[string]struct{}
	id           string
	subject      string
	writeTimeout time.Duration
	writeMu      sync.Mutex
	roomsMu      sync.Mutex
}

func (p *peer) send(f channel.Frame) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if err := p.ws.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
		return err
	}
	return websocket.JSON.Send(p.ws, f)
}

func (p *peer) join(room string) {
	p.roomsMu.Lock()
	p.rooms[room] = struct{}{}
	p.roomsMu.Unlock()
}

func (p *peer) leave(room string) bool {
	p.roomsMu.Lock()
	defer p.roomsMu.Unlock()
	_, ok := p.rooms[room]
	delete(p.rooms, room)
	return ok
}

func (p *peer) inRoom(room string) bool {
	p.roomsMu.Lock()
	defer p.roomsMu.Unlock()
	_, ok := p.rooms[room]
	return ok
}
