package channel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/require"
)

var errDialRefused = errors.New("dial refused")

// fakeConn is an in-memory Conn. Frames pushed with deliver are returned by
// Receive; frames passed to Send are recorded and handed to onSend.
type fakeConn struct {
	inbound chan Frame
	closed  chan struct{}
	onSend  func(c *fakeConn, f Frame)
	sent    []Frame
	once    sync.Once
	mu      sync.Mutex
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan Frame, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) Send(_ context.Context, f Frame) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	c.mu.Lock()
	c.sent = append(c.sent, f)
	onSend := c.onSend
	c.mu.Unlock()
	if onSend != nil {
		onSend(c, f)
	}
	return nil
}

func (c *fakeConn) Receive() (Frame, error) {
	select {
	case f := <-c.inbound:
		return f, nil
	case <-c.closed:
		return Frame{}, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) deliver(f Frame) {
	c.inbound <- f
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) sentFrames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.sent...)
}

// fakeTransport hands out fakeConns. dial overrides the default behavior.
type fakeTransport struct {
	dial   func(ctx context.Context, token string) (Conn, error)
	onSend func(c *fakeConn, f Frame)
	conns  []*fakeConn
	tokens []string
	dials  atomic.Int32
	mu     sync.Mutex
}

func (t *fakeTransport) Dial(ctx context.Context, _ string, token string) (Conn, error) {
	t.dials.Add(1)
	t.mu.Lock()
	t.tokens = append(t.tokens, token)
	dial := t.dial
	t.mu.Unlock()

	if dial != nil {
		return dial(ctx, token)
	}
	return t.newConn(), nil
}

func (t *fakeTransport) newConn() *fakeConn {
	c := newFakeConn()
	t.mu.Lock()
	c.onSend = t.onSend
	t.conns = append(t.conns, c)
	t.mu.Unlock()
	return c
}

func (t *fakeTransport) setDial(fn func(ctx context.Context, token string) (Conn, error)) {
	t.mu.Lock()
	t.dial = fn
	t.mu.Unlock()
}

func (t *fakeTransport) last() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.conns) == 0 {
		return nil
	}
	return t.conns[len(t.conns)-1]
}

func (t *fakeTransport) dialedTokens() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.tokens...)
}

// autoAck acknowledges every event frame with data.
func autoAck(data string) func(c *fakeConn, f Frame) {
	return func(c *fakeConn, f Frame) {
		if f.Type == FrameEvent {
			c.deliver(Frame{Type: FrameAck, ID: f.ID, Data: json.RawMessage(data)})
		}
	}
}

type staticTokens string

func (s staticTokens) Token(context.Context) mo.Option[string] {
	if s == "" {
		return mo.None[string]()
	}
	return mo.Some(string(s))
}

// eventLog records payloads dispatched for one event.
type eventLog struct {
	payloads []json.RawMessage
	mu       sync.Mutex
}

func (l *eventLog) listener(data json.RawMessage) error {
	l.mu.Lock()
	l.payloads = append(l.payloads, data)
	l.mu.Unlock()
	return nil
}

func (l *eventLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.payloads)
}

func testConfig() Config {
	return Config{
		URL:                  "ws://example.invalid/ws",
		MaxReconnectAttempts: 3,
		ReconnectDelayMS:     1,
		ReconnectDelayMaxMS:  5,
		TimeoutMS:            1000,
		AckTimeoutMS:         500,
		EmitRate:             -1,
	}
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	c, err := New(testConfig(), append([]Option{WithTransport(ft)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)
	return c, ft
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}
