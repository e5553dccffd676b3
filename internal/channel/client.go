// Package channel implements the reconnecting event-channel client: one logical
// connection to the event server with bounded retry, a local fan-out registry
// and acknowledged emits.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Status is the logical state of the channel.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

type dialMode int

const (
	modeConnect dialMode = iota
	modeReconnect
)

type ackResult struct {
	err  error
	data json.RawMessage
}

type pendingAck struct {
	ch    chan ackResult
	event string
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the websocket transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithTokenSource sets where Connect reads the token when none is passed.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the client logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			lg := l.With().Str("component", "channel").Logger()
			c.log = &lg
		}
	}
}

// Client is the reconnecting event-channel client. All methods are safe for
// concurrent use.
type Client struct {
	transport Transport
	tokens    TokenSource
	ctx       context.Context
	conn      Conn
	log       *zerolog.Logger
	registry  *registry
	limiter   *rate.Limiter
	cancel    context.CancelFunc
	pending   map[uint64]pendingAck
	token     string
	group     singleflight.Group
	cfg       Config
	nextID    atomic.Uint64
	attempts  int
	gen       uint64
	mu        sync.Mutex
	pendingMu sync.Mutex
	status    Status
}

// New creates a disconnected Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	nop := zerolog.Nop()
	limit, burst := cfg.GetEmitLimit()
	c := &Client{
		cfg:     cfg,
		log:     &nop,
		limiter: rate.NewLimiter(limit, burst),
		pending: make(map[uint64]pendingAck),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = NewWebSocketTransport(cfg.GetOrigin())
	}
	c.registry = newRegistry(c.log)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c, nil
}

// Status returns the current connection state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// IsConnected reports whether the channel is Connected.
func (c *Client) IsConnected() bool {
	return c.Status() == StatusConnected
}

// ReconnectAttempts returns the number of failed dials since the last success.
func (c *Client) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// On registers fn for event and returns its registration id.
func (c *Client) On(event string, fn Listener) ListenerID {
	return c.registry.on(event, fn)
}

// Off removes the single registration id from event.
func (c *Client) Off(event string, id ListenerID) bool {
	return c.registry.off(event, id)
}

// ListenerCount returns the number of registrations for event.
func (c *Client) ListenerCount(event string) int {
	return c.registry.count(event)
}

// Connect opens the channel. It returns nil at once when already connected with
// the same token, or when token is empty. A different token closes the current
// connection and dials again with it. Concurrent callers share one attempt
// cycle; ctx only bounds how long this caller waits for it.
func (c *Client) Connect(ctx context.Context, token string) error {
	c.mu.Lock()
	if c.status == StatusConnected {
		if token == "" || token == c.token {
			c.mu.Unlock()
			return nil
		}
		c.log.Info().Msg("token changed, reconnecting")
		conn := c.detachLocked()
		c.mu.Unlock()
		c.closeConn(conn)
		c.failPending(ErrNotConnected)
		c.registry.dispatch(EventDisconnect, reasonPayload(ReasonTokenChange))
		c.mu.Lock()
	}
	gen := c.gen
	life := c.ctx
	c.mu.Unlock()

	return c.await(ctx, c.start(life, gen, token, modeConnect))
}

// Disconnect tears the channel down. In-flight attempts and reconnect loops
// stop, pending emits fail with ErrClosed and every listener is removed. No
// reconnection happens until Connect is called again.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	conn := c.detachLocked()
	c.token = ""
	c.attempts = 0
	c.mu.Unlock()

	c.closeConn(conn)
	c.failPending(ErrClosed)
	c.registry.clear()
	c.log.Info().Msg("channel disconnected")
}

// Close disconnects the channel.
func (c *Client) Close() error {
	c.Disconnect()
	return nil
}

// detachLocked invalidates the current generation and returns the connection
// that belonged to it. Caller holds c.mu.
func (c *Client) detachLocked() Conn {
	conn := c.conn
	c.conn = nil
	c.status = StatusDisconnected
	c.gen++
	return conn
}

func (c *Client) closeConn(conn Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		c.log.Debug().Err(err).Msg("close connection")
	}
}

func (c *Client) start(life context.Context, gen uint64, token string, mode dialMode) <-chan singleflight.Result {
	return c.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return nil, c.establish(life, gen, token, mode)
	})
}

func (c *Client) await(ctx context.Context, ch <-chan singleflight.Result) error {
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// establish runs one attempt cycle: dial with capped exponential backoff until
// success or until the attempt ceiling is reached.
func (c *Client) establish(life context.Context, gen uint64, token string, mode dialMode) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.status == StatusConnected {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusConnecting
	c.attempts = 0
	c.mu.Unlock()

	if token == "" && c.tokens != nil {
		token = c.tokens.Token(life).OrEmpty()
	}

	errEvent := EventConnectError
	if mode == modeReconnect {
		errEvent = EventReconnectError
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.GetReconnectDelay()
	b.MaxInterval = c.cfg.GetReconnectDelayMax()
	b.MaxElapsedTime = 0
	b.Reset()

	ceiling := c.cfg.GetMaxReconnectAttempts()
	url := c.cfg.GetURL()

	for {
		dialCtx, cancel := context.WithTimeout(life, c.cfg.GetTimeout())
		conn, err := c.transport.Dial(dialCtx, url, token)
		cancel()

		if err == nil {
			if c.adopt(gen, conn, token, mode) {
				return nil
			}
			c.closeConn(conn)
			return ErrClosed
		}
		if life.Err() != nil {
			return ErrClosed
		}

		attempts, ok := c.recordFailure(gen)
		if !ok {
			return ErrClosed
		}
		c.log.Warn().
			Err(err).
			Str("url", url).
			Int("attempt", attempts).
			Int("max_attempts", ceiling).
			Msg("connect attempt failed")
		c.registry.dispatch(errEvent, errorPayload(err, attempts))

		if attempts >= ceiling {
			c.giveUp(gen)
			if mode == modeReconnect {
				c.registry.dispatch(EventReconnectFailed, nil)
			}
			c.log.Error().Int("attempts", attempts).Msg("giving up on connection")
			return fmt.Errorf("%w: %w", ErrReconnectFailed, err)
		}

		timer := time.NewTimer(b.NextBackOff())
		select {
		case <-life.Done():
			timer.Stop()
			return ErrClosed
		case <-timer.C:
		}
	}
}

func (c *Client) recordFailure(gen uint64) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return 0, false
	}
	c.attempts++
	return c.attempts, true
}

func (c *Client) giveUp(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.status = StatusDisconnected
	}
}

// adopt installs conn as the live connection unless gen went stale while dialing.
func (c *Client) adopt(gen uint64, conn Conn, token string, mode dialMode) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	c.conn = conn
	c.token = token
	c.status = StatusConnected
	failed := c.attempts
	c.attempts = 0
	c.mu.Unlock()

	go c.readLoop(gen, conn)

	c.log.Info().Str("url", c.cfg.GetURL()).Int("failed_attempts", failed).Msg("channel connected")
	c.registry.dispatch(EventConnect, nil)
	if mode == modeReconnect {
		payload, _ := sjson.SetBytes([]byte(`{}`), "attempt", failed+1)
		c.registry.dispatch(EventReconnect, payload)
	}
	return true
}

func (c *Client) readLoop(gen uint64, conn Conn) {
	in := newInbox(c.registry.dispatch)
	for {
		f, err := conn.Receive()
		if err != nil {
			in.close()
			c.handleDrop(gen, conn, ReasonTransportClose, false, in)
			return
		}

		switch f.Type {
		case FrameEvent:
			if !IsDomainEvent(f.Event) {
				c.log.Debug().Str("event", f.Event).Msg("ignoring unknown server event")
				continue
			}
			in.push(f.Event, f.Data)
		case FrameAck:
			c.resolve(f)
		case FrameDisconnect:
			reason := f.Reason
			if reason == "" {
				reason = ReasonServerDisconnect
			}
			in.close()
			c.handleDrop(gen, conn, reason, true, in)
			return
		default:
			c.log.Debug().Str("type", string(f.Type)).Msg("ignoring unexpected frame")
		}
	}
}

// handleDrop reacts to losing conn. Events already read from conn reach their
// listeners before the disconnect event does. A server-initiated disconnect is
// redialed immediately; a transport drop waits one backoff step first.
func (c *Client) handleDrop(gen uint64, conn Conn, reason string, serverInitiated bool, in *inbox) {
	c.mu.Lock()
	if c.gen != gen || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.detachLocked()
	next := c.gen
	token := c.token
	life := c.ctx
	c.mu.Unlock()

	c.closeConn(conn)
	c.failPending(ErrNotConnected)
	c.log.Warn().Str("reason", reason).Bool("server_initiated", serverInitiated).Msg("channel dropped")
	<-in.drained()
	c.registry.dispatch(EventDisconnect, reasonPayload(reason))

	mode, delay := modeReconnect, c.cfg.GetReconnectDelay()
	if serverInitiated {
		mode, delay = modeConnect, 0
	}
	go c.reconnect(life, next, token, mode, delay)
}

func (c *Client) reconnect(life context.Context, gen uint64, token string, mode dialMode, delay time.Duration) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-life.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	res := <-c.start(life, gen, token, mode)
	if res.Err != nil && !errors.Is(res.Err, ErrClosed) {
		c.log.Error().Err(res.Err).Msg("reconnect failed")
	}
}

// Emit sends data under event and waits for the server acknowledgement.
// It fails with ErrNotConnected unless the channel is Connected. An ack that
// carries an error field is returned as *AckError.
func (c *Client) Emit(ctx context.Context, event string, data any) (json.RawMessage, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	payload, err := encodePayload(data)
	if err != nil {
		return nil, fmt.Errorf("channel: encode %s: %w", event, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	id := c.nextID.Add(1)
	ch := make(chan ackResult, 1)
	c.pendingMu.Lock()
	c.pending[id] = pendingAck{ch: ch, event: event}
	c.pendingMu.Unlock()
	defer c.forget(id)

	if err := conn.Send(ctx, Frame{Type: FrameEvent, Event: event, ID: id, Data: payload}); err != nil {
		return nil, fmt.Errorf("channel: send %s: %w", event, err)
	}

	timer := time.NewTimer(c.cfg.GetAckTimeout())
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", ErrAckTimeout, event)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) forget(id uint64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Client) resolve(f Frame) {
	c.pendingMu.Lock()
	p, ok := c.pending[f.ID]
	delete(c.pending, f.ID)
	c.pendingMu.Unlock()

	if !ok {
		c.log.Debug().Uint64("id", f.ID).Msg("ack for unknown emit")
		return
	}

	if f.Error != "" {
		p.ch <- ackResult{err: &AckError{Event: p.event, Message: f.Error}}
		return
	}
	if msg := gjson.GetBytes(f.Data, "error"); msg.Exists() && msg.Type != gjson.Null {
		p.ch <- ackResult{err: &AckError{Event: p.event, Message: msg.String()}}
		return
	}
	p.ch <- ackResult{data: f.Data}
}

func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]pendingAck)
	c.pendingMu.Unlock()

	for _, p := range pending {
		p.ch <- ackResult{err: err}
	}
}

func encodePayload(data any) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if !json.Valid(v) {
			return nil, errors.New("invalid JSON payload")
		}
		return v, nil
	default:
		return json.Marshal(v)
	}
}

func reasonPayload(reason string) json.RawMessage {
	payload, _ := sjson.SetBytes([]byte(`{}`), "reason", reason)
	return payload
}

func errorPayload(err error, attempt int) json.RawMessage {
	payload, _ := sjson.SetBytes([]byte(`{}`), "message", err.Error())
	payload, _ = sjson.SetBytes(payload, "attempt", attempt)
	return payload
}
