package channel

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_Succeeds(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	connects := &eventLog{}
	c.On(EventConnect, connects.listener)

	require.NoError(t, c.Connect(context.Background(), "tok"))

	assert.Equal(t, StatusConnected, c.Status())
	assert.True(t, c.IsConnected())
	assert.Equal(t, 0, c.ReconnectAttempts())
	assert.Equal(t, 1, connects.count())
	assert.Equal(t, []string{"tok"}, ft.dialedTokens())
}

func TestConnect_AlreadyConnectedReturnsImmediately(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx, "tok"))
	require.NoError(t, c.Connect(ctx, "tok"))
	require.NoError(t, c.Connect(ctx, ""))

	assert.EqualValues(t, 1, ft.dials.Load())
}

func TestConnect_TokenChangeRedials(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ctx := context.Background()
	disconnects := &eventLog{}
	c.On(EventDisconnect, disconnects.listener)

	require.NoError(t, c.Connect(ctx, "first"))
	first := ft.last()

	require.NoError(t, c.Connect(ctx, "second"))

	assert.True(t, first.isClosed())
	assert.Equal(t, []string{"first", "second"}, ft.dialedTokens())
	assert.True(t, c.IsConnected())
	require.Equal(t, 1, disconnects.count())
	assert.JSONEq(t, `{"reason":"token change"}`, string(disconnects.payloads[0]))
}

func TestConnect_TokenFromSource(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t, WithTokenSource(staticTokens("persisted")))

	require.NoError(t, c.Connect(context.Background(), ""))
	assert.Equal(t, []string{"persisted"}, ft.dialedTokens())
}

func TestConnect_ExplicitTokenWinsOverSource(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t, WithTokenSource(staticTokens("persisted")))

	require.NoError(t, c.Connect(context.Background(), "explicit"))
	assert.Equal(t, []string{"explicit"}, ft.dialedTokens())
}

func TestConnect_ConcurrentCallsShareOneAttempt(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	release := make(chan struct{})
	ft.setDial(func(ctx context.Context, _ string) (Conn, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return ft.newConn(), nil
	})

	const callers = 5
	errs := make(chan error, callers)
	var started sync.WaitGroup
	for range callers {
		started.Add(1)
		go func() {
			started.Done()
			errs <- c.Connect(context.Background(), "tok")
		}()
	}
	started.Wait()

	waitFor(t, func() bool { return c.Status() == StatusConnecting })
	time.Sleep(20 * time.Millisecond)
	close(release)

	for range callers {
		require.NoError(t, <-errs)
	}
	assert.EqualValues(t, 1, ft.dials.Load())
	assert.True(t, c.IsConnected())
}

func TestConnect_ConcurrentCallsShareFailure(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.setDial(func(context.Context, string) (Conn, error) {
		time.Sleep(5 * time.Millisecond)
		return nil, errDialRefused
	})

	errs := make(chan error, 2)
	for range 2 {
		go func() { errs <- c.Connect(context.Background(), "tok") }()
	}

	for range 2 {
		err := <-errs
		require.ErrorIs(t, err, ErrReconnectFailed)
	}
	// Both callers joined the same cycle of three attempts, or the second
	// started a fresh cycle after the first settled; never two in parallel.
	dials := ft.dials.Load()
	assert.True(t, dials == 3 || dials == 6, "dials = %d", dials)
}

func TestConnect_RejectsAtCeiling(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.setDial(func(context.Context, string) (Conn, error) { return nil, errDialRefused })

	connectErrors := &eventLog{}
	c.On(EventConnectError, connectErrors.listener)

	err := c.Connect(context.Background(), "tok")

	require.ErrorIs(t, err, ErrReconnectFailed)
	require.ErrorIs(t, err, errDialRefused)
	assert.EqualValues(t, 3, ft.dials.Load())
	assert.Equal(t, 3, connectErrors.count())
	assert.Equal(t, 3, c.ReconnectAttempts())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.JSONEq(t, `{"message":"dial refused","attempt":3}`, string(connectErrors.payloads[2]))
}

func TestConnect_SucceedsBeforeCeilingResetsAttempts(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.setDial(func(context.Context, string) (Conn, error) {
		if ft.dials.Load() < 3 {
			return nil, errDialRefused
		}
		return ft.newConn(), nil
	})

	require.NoError(t, c.Connect(context.Background(), "tok"))
	assert.EqualValues(t, 3, ft.dials.Load())
	assert.Equal(t, 0, c.ReconnectAttempts())
}

func TestConnect_FreshCycleAfterRejection(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.setDial(func(context.Context, string) (Conn, error) { return nil, errDialRefused })

	require.ErrorIs(t, c.Connect(context.Background(), "tok"), ErrReconnectFailed)

	ft.setDial(nil)
	require.NoError(t, c.Connect(context.Background(), "tok"))
	assert.EqualValues(t, 4, ft.dials.Load())
}

func TestConnect_CallerContextOnlyBoundsWait(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	release := make(chan struct{})
	ft.setDial(func(context.Context, string) (Conn, error) {
		<-release
		return ft.newConn(), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.Connect(ctx, "tok")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	waitFor(t, c.IsConnected)
}

func TestDisconnect_ClearsListeners(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ctx := context.Background()
	old := &eventLog{}
	c.On(EventMessage, old.listener)

	require.NoError(t, c.Connect(ctx, "tok"))
	c.Disconnect()

	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, 0, c.ListenerCount(EventMessage))
	assert.True(t, ft.last().isClosed())

	fresh := &eventLog{}
	c.On(EventMessage, fresh.listener)
	require.NoError(t, c.Connect(ctx, "tok"))
	ft.last().deliver(Frame{Type: FrameEvent, Event: EventMessage, Data: json.RawMessage(`{"text":"again"}`)})

	waitFor(t, func() bool { return fresh.count() == 1 })
	assert.Equal(t, 0, old.count())
}

func TestDisconnect_NoAutomaticReconnect(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	require.NoError(t, c.Connect(context.Background(), "tok"))

	c.Disconnect()
	time.Sleep(30 * time.Millisecond)

	assert.EqualValues(t, 1, ft.dials.Load())
	assert.Equal(t, StatusDisconnected, c.Status())
}

func TestDisconnect_CancelsInFlightConnect(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.setDial(func(ctx context.Context, _ string) (Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	errs := make(chan error, 1)
	go func() { errs <- c.Connect(context.Background(), "tok") }()

	waitFor(t, func() bool { return ft.dials.Load() == 1 })
	c.Disconnect()

	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("connect did not return after disconnect")
	}
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, 0, c.ReconnectAttempts())
}

func TestServerDisconnect_RedialsImmediately(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	disconnects := &eventLog{}
	connects := &eventLog{}
	c.On(EventDisconnect, disconnects.listener)
	c.On(EventConnect, connects.listener)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	first := ft.last()
	first.deliver(Frame{Type: FrameDisconnect, Reason: ReasonServerDisconnect})

	waitFor(t, func() bool { return ft.dials.Load() == 2 && c.IsConnected() })
	assert.True(t, first.isClosed())
	assert.Equal(t, []string{"tok", "tok"}, ft.dialedTokens())
	assert.Equal(t, 2, connects.count())
	require.Equal(t, 1, disconnects.count())
	assert.JSONEq(t, `{"reason":"io server disconnect"}`, string(disconnects.payloads[0]))
}

func TestTransportDrop_ReconnectsWithBackoff(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	reconnects := &eventLog{}
	c.On(EventReconnect, reconnects.listener)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	require.NoError(t, ft.last().Close())

	waitFor(t, func() bool { return reconnects.count() == 1 })
	assert.True(t, c.IsConnected())
	assert.EqualValues(t, 2, ft.dials.Load())
	assert.JSONEq(t, `{"attempt":1}`, string(reconnects.payloads[0]))
}

func TestTransportDrop_ReconnectFailed(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	reconnectErrors := &eventLog{}
	failed := &eventLog{}
	c.On(EventReconnectError, reconnectErrors.listener)
	c.On(EventReconnectFailed, failed.listener)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	ft.setDial(func(context.Context, string) (Conn, error) { return nil, errDialRefused })
	require.NoError(t, ft.last().Close())

	waitFor(t, func() bool { return failed.count() == 1 })
	assert.Equal(t, 3, reconnectErrors.count())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.EqualValues(t, 4, ft.dials.Load())
}

func TestTransportDrop_FailsPendingEmits(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	require.NoError(t, c.Connect(context.Background(), "tok"))
	conn := ft.last()

	errs := make(chan error, 1)
	go func() {
		_, err := c.Emit(context.Background(), EventMessage, map[string]string{"text": "hi"})
		errs <- err
	}()

	waitFor(t, func() bool { return len(conn.sentFrames()) == 1 })
	ft.setDial(func(ctx context.Context, _ string) (Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, conn.Close())

	require.ErrorIs(t, <-errs, ErrNotConnected)
}

func TestEmit_NotConnected(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)

	_, err := c.Emit(context.Background(), EventPing, nil)

	require.ErrorIs(t, err, ErrNotConnected)
	assert.EqualValues(t, 0, ft.dials.Load())
}

func TestEmit_ReturnsAck(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.onSend = autoAck(`{"ok":true}`)
	require.NoError(t, c.Connect(context.Background(), "tok"))

	ack, err := c.Emit(context.Background(), EventMessage, map[string]string{"text": "hi"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(ack))

	sent := ft.last().sentFrames()
	require.Len(t, sent, 1)
	assert.Equal(t, FrameEvent, sent[0].Type)
	assert.Equal(t, EventMessage, sent[0].Event)
	assert.NotZero(t, sent[0].ID)
	assert.JSONEq(t, `{"text":"hi"}`, string(sent[0].Data))
}

func TestEmit_AckErrorField(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.onSend = autoAck(`{"error":"swap not found"}`)
	require.NoError(t, c.Connect(context.Background(), "tok"))

	_, err := c.UpdateSwapStatus(context.Background(), "s1", "accepted")

	var ackErr *AckError
	require.ErrorAs(t, err, &ackErr)
	assert.Equal(t, EventSwapUpdate, ackErr.Event)
	assert.Equal(t, "swap not found", ackErr.Message)
}

func TestEmit_AckFrameError(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.onSend = func(conn *fakeConn, f Frame) {
		conn.deliver(Frame{Type: FrameAck, ID: f.ID, Error: "forbidden"})
	}
	require.NoError(t, c.Connect(context.Background(), "tok"))

	_, err := c.JoinUserRoom(context.Background(), "u1")

	var ackErr *AckError
	require.ErrorAs(t, err, &ackErr)
	assert.Equal(t, "forbidden", ackErr.Message)
}

func TestEmit_NullErrorFieldIsSuccess(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.onSend = autoAck(`{"error":null,"id":"m1"}`)
	require.NoError(t, c.Connect(context.Background(), "tok"))

	ack, err := c.SendMessage(context.Background(), map[string]string{"text": "hi"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"error":null,"id":"m1"}`, string(ack))
}

func TestEmit_AckTimeout(t *testing.T) {
	t.Parallel()

	ft := &fakeTransport{}
	cfg := testConfig()
	cfg.AckTimeoutMS = 20
	c, err := New(cfg, WithTransport(ft))
	require.NoError(t, err)
	t.Cleanup(c.Disconnect)

	require.NoError(t, c.Connect(context.Background(), "tok"))

	_, err = c.Ping(context.Background())
	require.ErrorIs(t, err, ErrAckTimeout)
}

func TestEmit_InvalidRawPayload(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	require.NoError(t, c.Connect(context.Background(), "tok"))

	_, err := c.Emit(context.Background(), EventMessage, json.RawMessage(`{broken`))
	require.Error(t, err)
}

func TestHelpers_PayloadShapes(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.onSend = autoAck(`{"ok":true}`)
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx, "tok"))

	calls := []struct {
		call  func() (json.RawMessage, error)
		event string
		data  string
	}{
		{func() (json.RawMessage, error) { return c.SendSwapRequest(ctx, map[string]string{"to": "u2"}) }, EventSwapRequest, `{"to":"u2"}`},
		{func() (json.RawMessage, error) { return c.UpdateSwapStatus(ctx, "s1", "accepted") }, EventSwapUpdate, `{"swapId":"s1","status":"accepted"}`},
		{func() (json.RawMessage, error) { return c.SendMessage(ctx, map[string]string{"text": "hi"}) }, EventMessage, `{"text":"hi"}`},
		{func() (json.RawMessage, error) { return c.JoinUserRoom(ctx, "u1") }, EventJoinRoom, `{"userId":"u1"}`},
		{func() (json.RawMessage, error) { return c.LeaveUserRoom(ctx, "u1") }, EventLeaveRoom, `{"userId":"u1"}`},
		{func() (json.RawMessage, error) { return c.UpdateUserStatus(ctx, "online") }, EventUserStatus, `{"status":"online"}`},
		{func() (json.RawMessage, error) { return c.Ping(ctx) }, EventPing, `{}`},
	}

	for _, tc := range calls {
		_, err := tc.call()
		require.NoError(t, err, tc.event)
	}

	sent := ft.last().sentFrames()
	require.Len(t, sent, len(calls))
	for i, tc := range calls {
		assert.Equal(t, tc.event, sent[i].Event)
		assert.JSONEq(t, tc.data, string(sent[i].Data), tc.event)
	}
}

func TestInbound_DomainEventsDispatchedInOrder(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	var mu sync.Mutex
	var order []string
	record := func(name string) Listener {
		return func(json.RawMessage) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	c.On(EventNotification, record("first"))
	c.On(EventNotification, record("second"))
	c.On(EventNotification, record("third"))

	require.NoError(t, c.Connect(context.Background(), "tok"))
	ft.last().deliver(Frame{Type: FrameEvent, Event: EventNotification, Data: json.RawMessage(`{}`)})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestInbound_ListenerCanEmit(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	ft.onSend = autoAck(`{"ok":true}`)

	type reply struct {
		ack json.RawMessage
		err error
	}
	replies := make(chan reply, 1)
	c.On(EventSwapRequest, func(data json.RawMessage) error {
		ack, err := c.UpdateSwapStatus(context.Background(), "s1", "accepted")
		replies <- reply{ack, err}
		return err
	})

	require.NoError(t, c.Connect(context.Background(), "tok"))
	ft.last().deliver(Frame{Type: FrameEvent, Event: EventSwapRequest, Data: json.RawMessage(`{"id":"s1"}`)})

	select {
	case r := <-replies:
		require.NoError(t, r.err)
		assert.JSONEq(t, `{"ok":true}`, string(r.ack))
	case <-time.After(2 * time.Second):
		t.Fatal("listener never finished its emit")
	}
}

func TestInbound_EventsBeforeDisconnect(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	var mu sync.Mutex
	var order []string
	record := func(name string, hold time.Duration) Listener {
		return func(json.RawMessage) error {
			time.Sleep(hold)
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	c.On(EventMessage, record(EventMessage, 20*time.Millisecond))
	c.On(EventDisconnect, record(EventDisconnect, 0))

	require.NoError(t, c.Connect(context.Background(), "tok"))
	ft.setDial(func(ctx context.Context, _ string) (Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	conn := ft.last()
	conn.deliver(Frame{Type: FrameEvent, Event: EventMessage, Data: json.RawMessage(`{}`)})
	conn.deliver(Frame{Type: FrameDisconnect, Reason: ReasonServerDisconnect})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	})
	assert.Equal(t, []string{EventMessage, EventDisconnect}, order)
}

func TestInbound_UnknownEventIgnored(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	got := &eventLog{}
	c.On("custom", got.listener)
	c.On(EventUserOnline, got.listener)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	ft.last().deliver(Frame{Type: FrameEvent, Event: "custom", Data: json.RawMessage(`{}`)})
	ft.last().deliver(Frame{Type: FrameEvent, Event: EventUserOnline, Data: json.RawMessage(`{"userId":"u1"}`)})

	waitFor(t, func() bool { return got.count() == 1 })
	assert.JSONEq(t, `{"userId":"u1"}`, string(got.payloads[0]))
}

func TestInbound_FaultyListenerIsolated(t *testing.T) {
	t.Parallel()

	c, ft := newTestClient(t)
	got := &eventLog{}
	c.On(EventSwapRequest, func(json.RawMessage) error { return errors.New("boom") })
	c.On(EventSwapRequest, func(json.RawMessage) error { panic("kaboom") })
	c.On(EventSwapRequest, got.listener)

	require.NoError(t, c.Connect(context.Background(), "tok"))
	ft.last().deliver(Frame{Type: FrameEvent, Event: EventSwapRequest, Data: json.RawMessage(`{"id":"s1"}`)})

	waitFor(t, func() bool { return got.count() == 1 })
	assert.True(t, c.IsConnected())
}

func TestOff_RemovesOneRegistration(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	got := &eventLog{}
	first := c.On(EventMessage, got.listener)
	c.On(EventMessage, got.listener)

	assert.True(t, c.Off(EventMessage, first))
	assert.False(t, c.Off(EventMessage, first))
	assert.Equal(t, 1, c.ListenerCount(EventMessage))
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{URL: "http://example.com"})
	require.Error(t, err)
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "unknown", Status(9).String())
}
