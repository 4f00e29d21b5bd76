// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wangtaoking1/realtime/errors"
	"github.com/wangtaoking1/realtime/log"
)

// wsConn is the subset of *websocket.Conn used by Client, so tests can
// substitute a fake connection.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// timer is the stoppable handle of a scheduled reconnect attempt.
type timer interface {
	Stop() bool
}

// Client maintains a single logical connection to a realtime server. It
// reconnects automatically with exponential backoff when the connection
// drops, sends application level heartbeats while connected, and dispatches
// inbound messages to subscribed handlers.
//
// All methods are safe for concurrent use and return without blocking.
type Client struct {
	opts     *ClientOptions
	handlers *handlerRegistry

	// dial, afterFunc and tickerFunc are substituted in tests to control the
	// transport and time.
	dial       func(url string, timeout time.Duration) (wsConn, error)
	afterFunc  func(d time.Duration, f func()) timer
	tickerFunc func(d time.Duration) (<-chan time.Time, func())

	writeMu sync.Mutex // serializes writes on the connection

	mu             sync.Mutex // guards the fields below
	conn           wsConn
	state          connState
	notified       bool // last value reported to OnConnectionChange
	intentional    bool
	attempts       int
	connID         string
	lastErr        error
	reconnectTimer timer
	stopHeartbeat  chan struct{}
}

// NewClient creates a new realtime client with the given options. The client
// stays disconnected until Connect is called.
func NewClient(opts *ClientOptions) *Client {
	if opts == nil {
		opts = NewClientOptions()
	}

	return &Client{
		opts:     opts,
		handlers: newHandlerRegistry(),
		dial:     defaultDial,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		tickerFunc: defaultTicker,
	}
}

func defaultDial(rawURL string, timeout time.Duration) (wsConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, resp, err := dialer.Dial(rawURL, nil)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s (%s)", rawURL, resp.Status)
		}

		return nil, errors.Wrapf(err, "dial %s", rawURL)
	}

	return conn, nil
}

func defaultTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)

	return t.C, t.Stop
}

// Connect establishes the connection in the background and returns
// immediately. It is a no-op if the client is already connected or a
// connection attempt is in progress.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state != stateDisconnected {
		c.mu.Unlock()
		log.Warnw("Realtime client already connected, skip connect", "state", c.state.String())

		return
	}
	c.state = stateConnecting
	c.intentional = false
	c.mu.Unlock()

	go c.doConnect()
}

// Disconnect closes the connection and disables automatic reconnection. Any
// pending reconnect attempt is cancelled. It is a no-op if the client is
// already disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.intentional = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	conn := c.conn
	if conn == nil {
		// Not connected. A dial still in flight observes the intentional flag
		// and discards its result.
		c.state = stateDisconnected
		c.mu.Unlock()

		return
	}
	c.mu.Unlock()

	// Best effort normal closure frame before tearing down.
	c.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	c.closeConn(conn, nil)
}

// Send serializes and writes a message on the current connection. It returns
// false without blocking if the client is not connected or the write fails.
func (c *Client) Send(msg *Message) bool {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == stateConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		log.Warnw("Realtime client not connected, message dropped", "type", msg.Type)

		return false
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Errorw("Marshal realtime message error", "type", msg.Type, "error", err)

		return false
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		log.Errorw("Write realtime message error", "type", msg.Type, "error", err)

		return false
	}

	return true
}

// Subscribe registers a handler for the given event type and returns a
// function removing the subscription again. Use TypeAll to receive every
// dispatched message. The returned function is safe to call multiple times.
func (c *Client) Subscribe(eventType string, h Handler) func() {
	return c.handlers.add(eventType, h)
}

// SubscribeToChannel asks the server to start forwarding events of the given
// channel. It returns false if the client is not connected. The server is the
// source of truth for channel membership, no subscription state is tracked
// client side.
func (c *Client) SubscribeToChannel(channel string) bool {
	return c.Send(&Message{
		Type:    TypeSubscribe,
		Payload: map[string]any{"channel": channel},
	})
}

// UnsubscribeFromChannel asks the server to stop forwarding events of the
// given channel. It returns false if the client is not connected.
func (c *Client) UnsubscribeFromChannel(channel string) bool {
	return c.Send(&Message{
		Type:    TypeUnsubscribe,
		Payload: map[string]any{"channel": channel},
	})
}

// IsConnected reports whether the logical connection is established.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state == stateConnected
}

// ConnectionID returns the server assigned id of the current connection, or
// an empty string if not connected or not yet acknowledged.
func (c *Client) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connID
}

// State returns a snapshot of the connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return ConnectionState{
		Connected:         c.state == stateConnected,
		ReconnectAttempts: c.attempts,
		ConnectionID:      c.connID,
		LastError:         c.lastErr,
	}
}

// endpoint returns the dial URL with the auth token attached as a query
// parameter.
func (c *Client) endpoint() string {
	if c.opts.Token == "" {
		return c.opts.URL
	}
	sep := "?"
	if strings.Contains(c.opts.URL, "?") {
		sep = "&"
	}

	return c.opts.URL + sep + "token=" + url.QueryEscape(c.opts.Token)
}

func (c *Client) doConnect() {
	conn, err := c.dial(c.endpoint(), c.opts.HandshakeTimeout)
	if err != nil {
		log.Errorw("Realtime connect error", "url", c.opts.URL, "error", err)
		c.mu.Lock()
		c.lastErr = err
		c.state = stateDisconnected
		intentional := c.intentional
		c.mu.Unlock()

		c.notifyConnectionChange(false)
		c.handlers.dispatch(&Message{Type: TypeDisconnected})
		if !intentional {
			c.scheduleReconnect()
		}

		return
	}

	c.mu.Lock()
	if c.intentional {
		// Disconnect was called while the handshake was in flight.
		c.state = stateDisconnected
		c.mu.Unlock()
		_ = conn.Close()

		return
	}
	c.conn = conn
	c.state = stateConnected
	c.attempts = 0
	stop := make(chan struct{})
	c.stopHeartbeat = stop
	c.mu.Unlock()

	log.Infow("Realtime client connected", "url", c.opts.URL)
	c.notifyConnectionChange(true)
	c.handlers.dispatch(&Message{Type: TypeConnected})

	go c.heartbeatLoop(stop)
	go c.readLoop(conn)
}

func (c *Client) readLoop(conn wsConn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.closeConn(conn, err)

			return
		}
		msg := &Message{}
		if err := json.Unmarshal(data, msg); err != nil {
			log.Errorw("Unmarshal realtime message error", "error", err)

			continue
		}
		c.handleMessage(msg)
	}
}

// handleMessage applies state side effects of well known message types, then
// dispatches the message to subscribers.
func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case TypeConnected:
		if id := msg.PayloadString("connection_id"); id != "" {
			c.mu.Lock()
			c.connID = id
			c.mu.Unlock()
			log.Debugw("Realtime connection acknowledged", "connection_id", id)
		}
	case TypeError:
		err := errors.New(msg.PayloadString("error"))
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
		log.Errorw("Realtime server error", "error", err)
	}

	c.handlers.dispatch(msg)
}

// closeConn tears down the given connection and runs the close path exactly
// once per connection. Calls for an already replaced connection are ignored.
func (c *Client) closeConn(conn wsConn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()

		return
	}
	c.conn = nil
	c.state = stateDisconnected
	c.connID = ""
	if err != nil {
		c.lastErr = err
	}
	if c.stopHeartbeat != nil {
		close(c.stopHeartbeat)
		c.stopHeartbeat = nil
	}
	intentional := c.intentional
	c.mu.Unlock()

	_ = conn.Close()
	log.Infow("Realtime client disconnected", "intentional", intentional, "error", err)
	c.notifyConnectionChange(false)
	c.handlers.dispatch(&Message{Type: TypeDisconnected})

	if !intentional {
		c.scheduleReconnect()
	}
}

// scheduleReconnect schedules the next reconnect attempt with exponential
// backoff. It gives up with a warning once the attempt budget is exhausted,
// after which only an explicit Connect starts a new cycle.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.intentional {
		return
	}
	if c.attempts >= c.opts.MaxReconnectAttempts {
		log.Warnw("Realtime reconnect attempts exhausted", "attempts", c.attempts)

		return
	}
	c.attempts++
	delay := c.backoffDelay(c.attempts)
	log.Infow("Realtime reconnect scheduled", "attempt", c.attempts, "delay", delay)
	c.reconnectTimer = c.afterFunc(delay, c.reconnect)
}

// backoffDelay returns the delay before the given attempt: the base interval,
// doubled for every attempt after the first, capped at MaxReconnectDelay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.opts.ReconnectInterval
	for i := 1; i < attempt; i++ {
		delay *= 2
		if c.opts.MaxReconnectDelay > 0 && delay >= c.opts.MaxReconnectDelay {
			return c.opts.MaxReconnectDelay
		}
	}

	return delay
}

func (c *Client) reconnect() {
	c.mu.Lock()
	if c.intentional || c.state != stateDisconnected {
		c.mu.Unlock()

		return
	}
	c.state = stateConnecting
	c.reconnectTimer = nil
	c.mu.Unlock()

	c.doConnect()
}

func (c *Client) heartbeatLoop(stop <-chan struct{}) {
	tick, stopTicker := c.tickerFunc(c.opts.HeartbeatInterval)
	defer stopTicker()

	for {
		select {
		case <-stop:
			return
		case <-tick:
			if !c.Send(&Message{Type: TypePing}) {
				return
			}
		}
	}
}

// notifyConnectionChange invokes OnConnectionChange when the logical state
// actually toggles. Repeated reports of the same value are suppressed.
func (c *Client) notifyConnectionChange(connected bool) {
	c.mu.Lock()
	if c.notified == connected {
		c.mu.Unlock()

		return
	}
	c.notified = connected
	cb := c.opts.OnConnectionChange
	c.mu.Unlock()

	if cb != nil {
		cb(connected)
	}
}
