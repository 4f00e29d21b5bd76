// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

// fakeConn is a scripted wsConn. Frames pushed into inbound are returned by
// ReadMessage, written frames are recorded, and Close unblocks ReadMessage
// with an error.
type fakeConn struct {
	inbound chan []byte

	mu       sync.Mutex
	writes   []fakeFrame
	writeErr error

	closed    chan struct{}
	closeOnce sync.Once
}

type fakeFrame struct {
	messageType int
	data        []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.inbound:
		return websocket.TextMessage, data, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeErr != nil {
		return c.writeErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, fakeFrame{messageType, cp})

	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})

	return nil
}

func (c *fakeConn) setWriteErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

// sentMessages decodes all recorded text frames.
func (c *fakeConn) sentMessages(t *testing.T) []*Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var msgs []*Message
	for _, f := range c.writes {
		if f.messageType != websocket.TextMessage {
			continue
		}
		msg := &Message{}
		require.NoError(t, json.Unmarshal(f.data, msg))
		msgs = append(msgs, msg)
	}

	return msgs
}

func (c *fakeConn) sentOfType(t *testing.T, eventType string) []*Message {
	t.Helper()
	var msgs []*Message
	for _, m := range c.sentMessages(t) {
		if m.Type == eventType {
			msgs = append(msgs, m)
		}
	}

	return msgs
}

func (c *fakeConn) deliver(t *testing.T, msg *Message) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	c.inbound <- data
}

type fakeTimer struct{}

func (fakeTimer) Stop() bool { return true }

// clientFixture wires a Client to a fake transport and fake timers.
type clientFixture struct {
	t      *testing.T
	client *Client
	ticks  chan time.Time

	mu      sync.Mutex
	conns   []*fakeConn
	dialErr error
	dials   int
	delays  []time.Duration
	fires   []func()
}

func newClientFixture(t *testing.T, opts *ClientOptions) *clientFixture {
	t.Helper()
	if opts == nil {
		opts = NewClientOptions()
	}
	if opts.URL == "" {
		opts.URL = "ws://realtime.test/ws"
	}

	f := &clientFixture{
		t:     t,
		ticks: make(chan time.Time),
	}
	c := NewClient(opts)
	c.dial = f.fakeDial
	c.afterFunc = f.fakeAfter
	c.tickerFunc = func(time.Duration) (<-chan time.Time, func()) {
		return f.ticks, func() {}
	}
	f.client = c

	return f
}

func (f *clientFixture) fakeDial(url string, timeout time.Duration) (wsConn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.dials++
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	conn := newFakeConn()
	f.conns = append(f.conns, conn)

	return conn, nil
}

func (f *clientFixture) fakeAfter(d time.Duration, fn func()) timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.delays = append(f.delays, d)
	f.fires = append(f.fires, fn)

	return fakeTimer{}
}

func (f *clientFixture) setDialErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dialErr = err
}

func (f *clientFixture) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.dials
}

func (f *clientFixture) scheduledDelays() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]time.Duration(nil), f.delays...)
}

// fireNext runs the most recently scheduled reconnect callback.
func (f *clientFixture) fireNext() {
	f.mu.Lock()
	fn := f.fires[len(f.fires)-1]
	f.mu.Unlock()
	fn()
}

func (f *clientFixture) lastConn() *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.conns[len(f.conns)-1]
}

// connect connects the client and waits until the connected lifecycle event
// has been dispatched. Handlers registered afterwards only see later events.
func (f *clientFixture) connect() *fakeConn {
	f.t.Helper()
	connected := make(chan struct{}, 1)
	unsubscribe := f.client.Subscribe(TypeConnected, func(*Message) {
		select {
		case connected <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	f.client.Connect()
	select {
	case <-connected:
	case <-time.After(waitTimeout):
		f.t.Fatal("timeout waiting for connect")
	}
	require.Eventually(f.t, f.client.IsConnected, waitTimeout, time.Millisecond)

	return f.lastConn()
}

func TestConnectIdempotent(t *testing.T) {
	f := newClientFixture(t, nil)
	f.connect()

	f.client.Connect()
	f.client.Connect()

	assert.Equal(t, 1, f.dialCount())
	assert.True(t, f.client.IsConnected())
}

func TestConnectionChangeOncePerToggle(t *testing.T) {
	var mu sync.Mutex
	var changes []bool
	opts := NewClientOptions()
	opts.URL = "ws://realtime.test/ws"
	opts.OnConnectionChange = func(connected bool) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, connected)
	}

	f := newClientFixture(t, opts)
	conn := f.connect()

	// The server ack must not fire the callback again.
	conn.deliver(t, &Message{
		Type:    TypeConnected,
		Payload: map[string]any{"connection_id": "c-1"},
	})
	require.Eventually(t, func() bool {
		return f.client.ConnectionID() == "c-1"
	}, waitTimeout, time.Millisecond)
	f.client.Connect()

	mu.Lock()
	assert.Equal(t, []bool{true}, changes)
	mu.Unlock()

	conn.Close()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(changes) == 2
	}, waitTimeout, time.Millisecond)

	mu.Lock()
	assert.Equal(t, []bool{true, false}, changes)
	mu.Unlock()
}

func TestReconnectBackoffSequence(t *testing.T) {
	f := newClientFixture(t, nil)
	f.setDialErr(errors.New("connection refused"))

	f.client.Connect()
	require.Eventually(t, func() bool {
		return len(f.scheduledDelays()) == 1
	}, waitTimeout, time.Millisecond)

	for i := 0; i < 4; i++ {
		f.fireNext()
	}
	// The budget is exhausted, firing the last attempt schedules nothing.
	f.fireNext()

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, f.scheduledDelays())
	assert.Equal(t, 6, f.dialCount())
	assert.False(t, f.client.IsConnected())
	assert.Equal(t, 5, f.client.State().ReconnectAttempts)
}

func TestReconnectAttemptsResetOnSuccess(t *testing.T) {
	f := newClientFixture(t, nil)
	f.setDialErr(errors.New("connection refused"))

	f.client.Connect()
	require.Eventually(t, func() bool {
		return len(f.scheduledDelays()) == 1
	}, waitTimeout, time.Millisecond)
	assert.Equal(t, 1, f.client.State().ReconnectAttempts)

	f.setDialErr(nil)
	f.fireNext()
	require.Eventually(t, f.client.IsConnected, waitTimeout, time.Millisecond)
	assert.Equal(t, 0, f.client.State().ReconnectAttempts)
}

func TestIntentionalDisconnectSuppressesReconnect(t *testing.T) {
	f := newClientFixture(t, nil)
	conn := f.connect()

	f.client.Disconnect()

	assert.False(t, f.client.IsConnected())
	assert.Empty(t, f.scheduledDelays())
	assert.Equal(t, 0, f.client.State().ReconnectAttempts)

	frames := func() []fakeFrame {
		conn.mu.Lock()
		defer conn.mu.Unlock()

		return append([]fakeFrame(nil), conn.writes...)
	}()
	require.NotEmpty(t, frames)
	assert.Equal(t, websocket.CloseMessage, frames[len(frames)-1].messageType)
}

func TestSendWhileDisconnected(t *testing.T) {
	f := newClientFixture(t, nil)

	assert.False(t, f.client.Send(&Message{Type: TypeMessage}))
}

func TestSendWriteFailure(t *testing.T) {
	f := newClientFixture(t, nil)
	conn := f.connect()

	conn.setWriteErr(errors.New("broken pipe"))
	assert.False(t, f.client.Send(&Message{Type: TypeMessage}))
}

func TestMalformedInboundSwallowed(t *testing.T) {
	f := newClientFixture(t, nil)
	conn := f.connect()

	var mu sync.Mutex
	var got []*Message
	f.client.Subscribe(TypeAll, func(msg *Message) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
	})

	conn.inbound <- []byte("this is not json")
	conn.deliver(t, &Message{Type: TypeNotification})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(got) == 1
	}, waitTimeout, time.Millisecond)

	mu.Lock()
	assert.Equal(t, TypeNotification, got[0].Type)
	mu.Unlock()
	assert.True(t, f.client.IsConnected())
}

func TestDispatchOrdering(t *testing.T) {
	f := newClientFixture(t, nil)
	conn := f.connect()

	var mu sync.Mutex
	var order []string
	var exactMsg, wildcardMsg *Message
	f.client.Subscribe(TypeChatResponse, func(msg *Message) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "exact")
		exactMsg = msg
	})
	f.client.Subscribe(TypeAll, func(msg *Message) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "wildcard")
		wildcardMsg = msg
	})

	conn.deliver(t, &Message{
		Type:    TypeChatResponse,
		Payload: map[string]any{"output": "hello"},
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(order) == 2
	}, waitTimeout, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"exact", "wildcard"}, order)
	assert.Same(t, exactMsg, wildcardMsg)
}

func TestUnsubscribe(t *testing.T) {
	f := newClientFixture(t, nil)
	conn := f.connect()

	var mu sync.Mutex
	first, second := 0, 0
	unsubscribe := f.client.Subscribe(TypeNotification, func(msg *Message) {
		mu.Lock()
		defer mu.Unlock()
		first++
	})
	f.client.Subscribe(TypeNotification, func(msg *Message) {
		mu.Lock()
		defer mu.Unlock()
		second++
	})

	unsubscribe()
	// Removing an already removed handler is a no-op.
	unsubscribe()

	conn.deliver(t, &Message{Type: TypeNotification})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return second == 1
	}, waitTimeout, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, first)
}

func TestHandlerPanicIsolated(t *testing.T) {
	f := newClientFixture(t, nil)
	conn := f.connect()

	var mu sync.Mutex
	calls := 0
	f.client.Subscribe(TypeNotification, func(msg *Message) {
		panic("handler boom")
	})
	f.client.Subscribe(TypeAll, func(msg *Message) {
		mu.Lock()
		defer mu.Unlock()
		calls++
	})

	conn.deliver(t, &Message{Type: TypeNotification})
	conn.deliver(t, &Message{Type: TypeNotification})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return calls == 2
	}, waitTimeout, time.Millisecond)
	assert.True(t, f.client.IsConnected())
}

func TestConnectionIDLifecycle(t *testing.T) {
	f := newClientFixture(t, nil)
	conn := f.connect()

	conn.deliver(t, &Message{
		Type:    TypeConnected,
		Payload: map[string]any{"connection_id": "abc"},
	})
	require.Eventually(t, func() bool {
		return f.client.ConnectionID() == "abc"
	}, waitTimeout, time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return f.client.ConnectionID() == ""
	}, waitTimeout, time.Millisecond)
}

func TestServerErrorCaptured(t *testing.T) {
	f := newClientFixture(t, nil)
	conn := f.connect()

	conn.deliver(t, &Message{
		Type:    TypeError,
		Payload: map[string]any{"error": "invalid subscription"},
	})

	require.Eventually(t, func() bool {
		err := f.client.State().LastError

		return err != nil && err.Error() == "invalid subscription"
	}, waitTimeout, time.Millisecond)
}

func TestHeartbeatCadence(t *testing.T) {
	f := newClientFixture(t, nil)
	conn := f.connect()

	f.ticks <- time.Now()
	require.Eventually(t, func() bool {
		return len(conn.sentOfType(t, TypePing)) == 1
	}, waitTimeout, time.Millisecond)

	f.ticks <- time.Now()
	require.Eventually(t, func() bool {
		return len(conn.sentOfType(t, TypePing)) == 2
	}, waitTimeout, time.Millisecond)

	// No extra pings beyond one per tick.
	time.Sleep(10 * time.Millisecond)
	assert.Len(t, conn.sentOfType(t, TypePing), 2)
}

func TestSubscribeToChannelWireFormat(t *testing.T) {
	f := newClientFixture(t, nil)
	conn := f.connect()

	assert.True(t, f.client.SubscribeToChannel("run:42"))
	assert.True(t, f.client.UnsubscribeFromChannel("run:42"))

	subs := conn.sentOfType(t, TypeSubscribe)
	require.Len(t, subs, 1)
	assert.Equal(t, "run:42", subs[0].PayloadString("channel"))

	unsubs := conn.sentOfType(t, TypeUnsubscribe)
	require.Len(t, unsubs, 1)
	assert.Equal(t, "run:42", unsubs[0].PayloadString("channel"))
}

func TestSubscribeToChannelWhileDisconnected(t *testing.T) {
	f := newClientFixture(t, nil)

	assert.False(t, f.client.SubscribeToChannel("run:42"))
}

func TestLocalLifecycleEvents(t *testing.T) {
	f := newClientFixture(t, nil)

	var mu sync.Mutex
	var events []string
	f.client.Subscribe(TypeConnected, func(msg *Message) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, TypeConnected)
	})
	f.client.Subscribe(TypeDisconnected, func(msg *Message) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, TypeDisconnected)
	})

	conn := f.connect()
	conn.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(events) == 2
	}, waitTimeout, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{TypeConnected, TypeDisconnected}, events)
}
