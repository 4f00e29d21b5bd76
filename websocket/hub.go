// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/wangtaoking1/realtime/container/set"
	"github.com/wangtaoking1/realtime/log"
)

const defaultFanoutPoolSize = 1024

// BridgeHandler consumes a channel message received from another instance.
type BridgeHandler func(channel string, data []byte)

// Bridge relays published channel messages between server instances, so
// subscribers connected to different instances still receive them.
type Bridge interface {
	// Publish sends a channel message to the other instances.
	Publish(ctx context.Context, channel string, data []byte) error
	// Start begins consuming messages published by other instances,
	// delivering them to handler.
	Start(ctx context.Context, handler BridgeHandler) error
	// Stop stops consuming and releases resources.
	Stop() error
	// Available reports whether the bridge is usable.
	Available() bool
}

// Hub tracks connected peers and their channel subscriptions, and fans
// published messages out to the subscribed peers. With a Bridge attached, the
// fan out spans all server instances.
type Hub struct {
	mu       sync.RWMutex
	peers    map[string]*peer
	channels map[string]set.Set[string] // channel -> subscribed peer ids

	pool   *ants.Pool
	bridge Bridge

	// OnConnect and OnDisconnect are invoked for every peer registration and
	// removal. Set them before the server starts accepting connections.
	OnConnect    func(connectionID string, identity *Identity)
	OnDisconnect func(connectionID string, identity *Identity)
}

// NewHub creates a new hub.
func NewHub() *Hub {
	pool, err := ants.NewPool(defaultFanoutPoolSize)
	if err != nil {
		// Only reachable with an invalid fixed size.
		panic(err)
	}

	return &Hub{
		peers:    make(map[string]*peer),
		channels: make(map[string]set.Set[string]),
		pool:     pool,
	}
}

// AttachBridge attaches a cross instance bridge. It must be called before
// Start.
func (h *Hub) AttachBridge(b Bridge) {
	h.bridge = b
}

// Start begins consuming bridged messages, if a bridge is attached.
func (h *Hub) Start(ctx context.Context) error {
	if h.bridge == nil {
		return nil
	}

	return h.bridge.Start(ctx, func(channel string, data []byte) {
		msg := &Message{}
		if err := json.Unmarshal(data, msg); err != nil {
			log.Errorw("Unmarshal bridged message error", "channel", channel, "error", err)

			return
		}
		h.publishLocal(context.Background(), channel, msg)
	})
}

// Close stops the bridge and releases the fan out pool. Peer connections are
// owned by the server and closed separately.
func (h *Hub) Close() {
	if h.bridge != nil {
		if err := h.bridge.Stop(); err != nil {
			log.Errorw("Stop bridge error", "error", err)
		}
	}
	h.pool.Release()
}

func (h *Hub) register(p *peer) {
	h.mu.Lock()
	h.peers[p.id] = p
	h.mu.Unlock()

	log.Infow("Peer registered", "connection_id", p.id)
	if h.OnConnect != nil {
		h.OnConnect(p.id, p.identity)
	}
}

func (h *Hub) unregister(p *peer) {
	h.mu.Lock()
	if h.peers[p.id] != p {
		h.mu.Unlock()

		return
	}
	delete(h.peers, p.id)
	for channel, members := range h.channels {
		members.Remove(p.id)
		if members.Empty() {
			delete(h.channels, channel)
		}
	}
	h.mu.Unlock()

	log.Infow("Peer unregistered", "connection_id", p.id)
	if h.OnDisconnect != nil {
		h.OnDisconnect(p.id, p.identity)
	}
}

// Subscribe adds the peer to the channel's subscriber set.
func (h *Hub) Subscribe(peerID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.channels[channel]
	if !ok {
		members = set.New[string]()
		h.channels[channel] = members
	}
	members.Add(peerID)
}

// Unsubscribe removes the peer from the channel's subscriber set.
func (h *Hub) Unsubscribe(peerID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.channels[channel]
	if !ok {
		return
	}
	members.Remove(peerID)
	if members.Empty() {
		delete(h.channels, channel)
	}
}

// Subscribers returns the count of peers subscribed to the channel on this
// instance.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.channels[channel]
	if !ok {
		return 0
	}

	return members.Size()
}

// Channels returns the channels with at least one subscriber on this
// instance, with their subscriber counts.
func (h *Hub) Channels() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	channels := make(map[string]int, len(h.channels))
	for channel, members := range h.channels {
		channels[channel] = members.Size()
	}

	return channels
}

// Peers returns the connection ids of all peers on this instance.
func (h *Hub) Peers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.peers))
	for id := range h.peers {
		ids = append(ids, id)
	}

	return ids
}

// Publish delivers the message to all subscribers of the channel, on this
// instance and, if a bridge is attached, on all other instances.
func (h *Hub) Publish(ctx context.Context, channel string, msg *Message) {
	h.publishLocal(ctx, channel, msg)

	if h.bridge == nil || !h.bridge.Available() {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Errorw("Marshal published message error", "channel", channel, "error", err)

		return
	}
	if err := h.bridge.Publish(ctx, channel, data); err != nil {
		log.Errorw("Bridge publish error", "channel", channel, "error", err)
	}
}

func (h *Hub) publishLocal(ctx context.Context, channel string, msg *Message) {
	// Subscribers filter forwarded events by the channel field.
	if msg.Channel == "" {
		msg.Channel = channel
	}

	h.mu.RLock()
	members, ok := h.channels[channel]
	if !ok {
		h.mu.RUnlock()

		return
	}
	targets := make([]*peer, 0, members.Size())
	for _, id := range members.Items() {
		if p, ok := h.peers[id]; ok {
			targets = append(targets, p)
		}
	}
	h.mu.RUnlock()

	for _, p := range targets {
		p := p
		err := h.pool.Submit(func() {
			_ = p.Write(ctx, msg)
		})
		if err != nil {
			// Pool exhausted or released, deliver inline.
			_ = p.Write(ctx, msg)
		}
	}
}

// Broadcast delivers the message to every peer on this instance, regardless
// of channel subscriptions.
func (h *Hub) Broadcast(ctx context.Context, msg *Message) {
	h.mu.RLock()
	targets := make([]*peer, 0, len(h.peers))
	for _, p := range h.peers {
		targets = append(targets, p)
	}
	h.mu.RUnlock()

	for _, p := range targets {
		p := p
		err := h.pool.Submit(func() {
			_ = p.Write(ctx, msg)
		})
		if err != nil {
			_ = p.Write(ctx, msg)
		}
	}
}

// SendToPeer delivers the message to a single connection on this instance. It
// returns false if the connection is unknown.
func (h *Hub) SendToPeer(ctx context.Context, peerID string, msg *Message) bool {
	h.mu.RLock()
	p, ok := h.peers[peerID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	return p.Write(ctx, msg) == nil
}
