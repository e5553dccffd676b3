package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

// WebSocketTransport dials the event server over a JSON websocket.
type WebSocketTransport struct {
	// Origin is sent in the handshake. Defaults to DefaultOrigin.
	Origin string
}

var _ Transport = (*WebSocketTransport)(nil)

// NewWebSocketTransport creates a transport that sends origin in the handshake.
func NewWebSocketTransport(origin string) *WebSocketTransport {
	return &WebSocketTransport{Origin: origin}
}

// Dial opens the websocket and completes the auth handshake. The context
// deadline bounds both steps.
func (t *WebSocketTransport) Dial(ctx context.Context, url, token string) (Conn, error) {
	origin := t.Origin
	if origin == "" {
		origin = DefaultOrigin
	}

	cfg, err := websocket.NewConfig(url, origin)
	if err != nil {
		return nil, fmt.Errorf("channel: websocket config: %w", err)
	}

	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := ws.SetDeadline(deadline); err != nil {
			return nil, errors.Join(err, ws.Close())
		}
	}

	conn := &wsConn{ws: ws}
	if err := conn.handshake(token); err != nil {
		return nil, errors.Join(err, ws.Close())
	}

	if err := ws.SetDeadline(time.Time{}); err != nil {
		return nil, errors.Join(err, ws.Close())
	}
	return conn, nil
}

type wsConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) handshake(token string) error {
	if err := websocket.JSON.Send(c.ws, Frame{Type: FrameConnect, Auth: &Auth{Token: token}}); err != nil {
		return err
	}

	var reply Frame
	if err := websocket.JSON.Receive(c.ws, &reply); err != nil {
		return err
	}

	switch reply.Type {
	case FrameConnect:
		return nil
	case FrameConnectError:
		return &HandshakeError{Message: reply.Error}
	default:
		return fmt.Errorf("channel: unexpected handshake frame %q", reply.Type)
	}
}

func (c *wsConn) Send(ctx context.Context, f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return websocket.JSON.Send(c.ws, f)
}

func (c *wsConn) Receive() (Frame, error) {
	var f Frame
	err := websocket.JSON.Receive(c.ws, &f)
	return f, err
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
