// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wangtaoking1/realtime/log"
)

const (
	pingInterval     = 10 * time.Second
	writeTimeout     = 10 * time.Second
	heartbeatTimeout = 30 * time.Second
	writeBufferSize  = 100
)

// peer is a single authenticated client connection on the server side.
type peer struct {
	id         string
	identity   *Identity
	hub        *Hub
	dispatcher Dispatcher
	conn       *websocket.Conn
	writeCh    chan *Message

	stopCh   chan struct{}
	stopOnce sync.Once
}

var _ Writer = (*peer)(nil)

func newPeer(id string, identity *Identity, hub *Hub, dispatcher Dispatcher, conn *websocket.Conn) *peer {
	return &peer{
		id:         id,
		identity:   identity,
		hub:        hub,
		dispatcher: dispatcher,
		conn:       conn,
		writeCh:    make(chan *Message, writeBufferSize),
		stopCh:     make(chan struct{}),
	}
}

// Run serves the connection until the peer disconnects or ctx is cancelled.
func (p *peer) Run(ctx context.Context) {
	p.hub.register(p)
	defer p.hub.unregister(p)

	wg := sync.WaitGroup{}
	wg.Add(3)
	go func() {
		defer wg.Done()
		p.pingLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		p.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		p.writeLoop(ctx)
	}()
	wg.Wait()
	_ = p.conn.Close()
	log.Infow("Client peer closed", "connection_id", p.id)
}

// Write queues a message to be sent to the peer. It returns without error if
// the peer is already stopped.
func (p *peer) Write(ctx context.Context, message *Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return nil
	case p.writeCh <- message:
		return nil
	}
}

func (p *peer) stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

func (p *peer) pingLoop(ctx context.Context) {
	_ = p.conn.SetReadDeadline(time.Now().Add(heartbeatTimeout))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(heartbeatTimeout))
	})

	pingTicker := time.NewTicker(pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-pingTicker.C:
			if err := p.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				log.Errorw("Write ping message error", "connection_id", p.id, "error", err)
				p.stop()

				return
			}
		}
	}
}

func (p *peer) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		default:
			_, data, err := p.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err) {
					log.Errorw("Connection unexpected close", "connection_id", p.id, "error", err)
				}
				p.stop()

				return
			}
			msg := &Message{}
			if err = json.Unmarshal(data, msg); err != nil {
				log.Errorw("Unmarshal message error", "connection_id", p.id, "error", err)

				continue
			}
			p.handleMessage(ctx, msg)
		}
	}
}

func (p *peer) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case msg := <-p.writeCh:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Errorw("Marshal message error", "connection_id", p.id, "error", err)

				continue
			}
			if err = p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Errorw("Write message error", "connection_id", p.id, "error", err)
				p.stop()

				return
			}
		}
	}
}

// handleMessage routes one inbound message: heartbeat and subscription
// control messages are answered directly, channel scoped events are published
// to the hub, and everything else goes to the dispatcher.
func (p *peer) handleMessage(ctx context.Context, msg *Message) {
	defer func() {
		if err := recover(); err != nil {
			log.Errorw("Handle message panic", "connection_id", p.id, "type", msg.Type, "error", err)
		}
	}()

	switch msg.Type {
	case TypePing:
		_ = p.Write(ctx, &Message{Type: TypePong, CorrelationID: msg.CorrelationID})
	case TypeSubscribe:
		channel := subscribeChannel(msg)
		if channel == "" {
			_ = p.Write(ctx, errorMessage("subscribe requires a channel", msg.CorrelationID))

			return
		}
		p.hub.Subscribe(p.id, channel)
		_ = p.Write(ctx, &Message{
			Type:          TypeSubscribed,
			Payload:       map[string]any{"channel": channel},
			CorrelationID: msg.CorrelationID,
		})
	case TypeUnsubscribe:
		channel := subscribeChannel(msg)
		if channel == "" {
			_ = p.Write(ctx, errorMessage("unsubscribe requires a channel", msg.CorrelationID))

			return
		}
		p.hub.Unsubscribe(p.id, channel)
		_ = p.Write(ctx, &Message{
			Type:          TypeUnsubscribed,
			Payload:       map[string]any{"channel": channel},
			CorrelationID: msg.CorrelationID,
		})
	case TypeMessage, TypeNotification:
		if msg.Channel != "" {
			p.hub.Publish(ctx, msg.Channel, msg)

			return
		}
		p.dispatch(ctx, msg)
	default:
		p.dispatch(ctx, msg)
	}
}

func (p *peer) dispatch(ctx context.Context, msg *Message) {
	if p.dispatcher == nil {
		log.Debugw("No dispatcher for message", "connection_id", p.id, "type", msg.Type)

		return
	}
	p.dispatcher.Dispatch(NewContext(ctx, p.identity), p, msg)
}

// subscribeChannel extracts the channel of a subscription control message.
// The channel rides in the payload, the top level field is accepted as well.
func subscribeChannel(msg *Message) string {
	if ch := msg.PayloadString("channel"); ch != "" {
		return ch
	}

	return msg.Channel
}

func errorMessage(text string, correlationID string) *Message {
	return &Message{
		Type:          TypeError,
		Payload:       map[string]any{"error": text},
		CorrelationID: correlationID,
	}
}
