package channel

import (
	"errors"
	"fmt"
)

// Sentinel errors for channel operations.
var (
	// ErrNotConnected is returned by Emit while the channel is not Connected.
	ErrNotConnected = errors.New("channel: not connected")

	// ErrReconnectFailed is returned when a connect cycle reaches the attempt ceiling.
	// The last dial error is wrapped alongside it.
	ErrReconnectFailed = errors.New("channel: reconnect attempts exhausted")

	// ErrClosed is returned to callers whose attempt or emit was cut short by Disconnect.
	ErrClosed = errors.New("channel: disconnected")

	// ErrAckTimeout is returned when the server does not acknowledge an emit in time.
	ErrAckTimeout = errors.New("channel: acknowledgement timeout")
)

// AckError is returned by Emit when the server acknowledges with an error field.
type AckError struct {
	Event   string
	Message string
}

func (e *AckError) Error() string {
	return fmt.Sprintf("channel: %s rejected: %s", e.Event, e.Message)
}

// HandshakeError is returned by a transport when the server refuses the connection.
type HandshakeError struct {
	Message string
}

func (e *HandshakeError) Error() string {
	return "channel: handshake refused: " + e.Message
}
