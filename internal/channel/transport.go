package channel

import (
	"context"

	"github.com/samber/mo"
)

// Transport opens authenticated connections to the event server.
type Transport interface {
	// Dial connects to url and completes the auth handshake with token.
	// A refused handshake is reported as *HandshakeError.
	Dial(ctx context.Context, url, token string) (Conn, error)
}

// Conn is one established connection. Send may be called concurrently with Receive.
type Conn interface {
	Send(ctx context.Context, f Frame) error

	// Receive blocks for the next frame. It fails once the connection is closed.
	Receive() (Frame, error)

	Close() error
}

// TokenSource supplies the persisted auth token when Connect is called without one.
type TokenSource interface {
	Token(ctx context.Context) mo.Option[string]
}
