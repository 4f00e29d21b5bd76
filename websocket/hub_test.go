// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hubPeer registers a peer that is never run, so written messages stay in its
// write queue for inspection.
func hubPeer(h *Hub, id string) *peer {
	p := newPeer(id, &Identity{UserID: "u-" + id}, h, nil, nil)
	h.register(p)

	return p
}

func recvFromPeer(t *testing.T, p *peer) *Message {
	t.Helper()

	select {
	case msg := <-p.writeCh:
		return msg
	case <-time.After(waitTimeout):
		t.Fatalf("no message delivered to peer %s", p.id)

		return nil
	}
}

type bridgeFrame struct {
	channel string
	data    []byte
}

type fakeBridge struct {
	mu        sync.Mutex
	available bool
	stopped   bool
	handler   BridgeHandler
	published []bridgeFrame
}

func (b *fakeBridge) Publish(_ context.Context, channel string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, bridgeFrame{channel: channel, data: data})

	return nil
}

func (b *fakeBridge) Start(_ context.Context, handler BridgeHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler

	return nil
}

func (b *fakeBridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true

	return nil
}

func (b *fakeBridge) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.available
}

func (b *fakeBridge) deliver(channel string, data []byte) {
	b.mu.Lock()
	handler := b.handler
	b.mu.Unlock()
	handler(channel, data)
}

func (b *fakeBridge) frames() []bridgeFrame {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]bridgeFrame(nil), b.published...)
}

func TestHubPublishStampsChannel(t *testing.T) {
	h := NewHub()
	defer h.Close()

	p := hubPeer(h, "p-1")
	h.Subscribe(p.id, "run:1")

	h.Publish(context.Background(), "run:1", &Message{
		Type:    TypeNotification,
		Payload: map[string]any{"title": "started"},
	})

	msg := recvFromPeer(t, p)
	assert.Equal(t, "run:1", msg.Channel)
	assert.Equal(t, "started", msg.PayloadString("title"))
}

func TestHubPublishSkipsNonSubscribers(t *testing.T) {
	h := NewHub()
	defer h.Close()

	subscribed := hubPeer(h, "p-1")
	other := hubPeer(h, "p-2")
	h.Subscribe(subscribed.id, "run:1")

	h.Publish(context.Background(), "run:1", &Message{Type: TypeMessage})

	recvFromPeer(t, subscribed)
	// Only subscribers of run:1 are ever targeted, so the other peer's
	// queue stays empty.
	assert.Empty(t, other.writeCh)
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub()
	defer h.Close()

	first := hubPeer(h, "p-1")
	second := hubPeer(h, "p-2")

	h.Broadcast(context.Background(), &Message{
		Type:    TypeNotification,
		Payload: map[string]any{"title": "maintenance"},
	})

	for _, p := range []*peer{first, second} {
		msg := recvFromPeer(t, p)
		assert.Equal(t, "maintenance", msg.PayloadString("title"))
	}
}

func TestHubSnapshots(t *testing.T) {
	h := NewHub()
	defer h.Close()

	first := hubPeer(h, "p-1")
	second := hubPeer(h, "p-2")

	h.Subscribe(first.id, "run:1")
	h.Subscribe(first.id, "run:2")
	h.Subscribe(second.id, "run:2")
	// Subscribing twice does not inflate the count.
	h.Subscribe(second.id, "run:2")

	assert.ElementsMatch(t, []string{"p-1", "p-2"}, h.Peers())
	assert.Equal(t, map[string]int{"run:1": 1, "run:2": 2}, h.Channels())
	assert.Equal(t, 1, h.Subscribers("run:1"))
	assert.Equal(t, 2, h.Subscribers("run:2"))
	assert.Zero(t, h.Subscribers("run:3"))

	h.Unsubscribe(first.id, "run:1")
	assert.Zero(t, h.Subscribers("run:1"))
	assert.Equal(t, map[string]int{"run:2": 2}, h.Channels())

	// Unsubscribing from an unknown channel is a no-op.
	h.Unsubscribe(first.id, "run:3")
}

func TestHubUnregisterCleansSubscriptions(t *testing.T) {
	h := NewHub()
	defer h.Close()

	p := hubPeer(h, "p-1")
	h.Subscribe(p.id, "run:1")
	h.Subscribe(p.id, "run:2")

	h.unregister(p)

	assert.Empty(t, h.Peers())
	assert.Empty(t, h.Channels())
	assert.False(t, h.SendToPeer(context.Background(), p.id, &Message{Type: TypeNotification}))
}

func TestHubStaleUnregisterIgnored(t *testing.T) {
	h := NewHub()
	defer h.Close()

	stale := hubPeer(h, "p-1")
	replacement := hubPeer(h, "p-1")

	// Unregistering the replaced peer must not drop the live one.
	h.unregister(stale)

	assert.Equal(t, []string{"p-1"}, h.Peers())
	require.True(t, h.SendToPeer(context.Background(), "p-1", &Message{Type: TypeNotification}))
	recvFromPeer(t, replacement)
	assert.Empty(t, stale.writeCh)
}

func TestHubBridgeRelay(t *testing.T) {
	h := NewHub()
	b := &fakeBridge{available: true}
	h.AttachBridge(b)
	require.NoError(t, h.Start(context.Background()))

	p := hubPeer(h, "p-1")
	h.Subscribe(p.id, "run:1")

	h.Publish(context.Background(), "run:1", &Message{
		Type:    TypeMessage,
		Payload: map[string]any{"status": "running"},
	})
	recvFromPeer(t, p)

	frames := b.frames()
	require.Len(t, frames, 1)
	assert.Equal(t, "run:1", frames[0].channel)
	relayed := &Message{}
	require.NoError(t, json.Unmarshal(frames[0].data, relayed))
	assert.Equal(t, TypeMessage, relayed.Type)
	assert.Equal(t, "run:1", relayed.Channel)
	assert.Equal(t, "running", relayed.PayloadString("status"))

	// Messages arriving from another instance fan out locally without
	// being published back to the bridge.
	inbound, err := json.Marshal(&Message{
		Type:    TypeMessage,
		Payload: map[string]any{"status": "completed"},
	})
	require.NoError(t, err)
	b.deliver("run:1", inbound)

	msg := recvFromPeer(t, p)
	assert.Equal(t, "run:1", msg.Channel)
	assert.Equal(t, "completed", msg.PayloadString("status"))
	assert.Len(t, b.frames(), 1)

	h.Close()
	assert.True(t, b.stopped)
}

func TestHubBridgeUnavailableSkipped(t *testing.T) {
	h := NewHub()
	defer h.Close()

	b := &fakeBridge{}
	h.AttachBridge(b)

	p := hubPeer(h, "p-1")
	h.Subscribe(p.id, "run:1")

	h.Publish(context.Background(), "run:1", &Message{Type: TypeMessage})

	recvFromPeer(t, p)
	assert.Empty(t, b.frames())
}

func TestHubBridgeMalformedInbound(t *testing.T) {
	h := NewHub()
	defer h.Close()

	b := &fakeBridge{available: true}
	h.AttachBridge(b)
	require.NoError(t, h.Start(context.Background()))

	p := hubPeer(h, "p-1")
	h.Subscribe(p.id, "run:1")

	b.deliver("run:1", []byte("{not json"))
	assert.Empty(t, p.writeCh)
}
