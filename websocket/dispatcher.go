// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import "context"

// Writer is the write side of a connected peer.
type Writer interface {
	// Write queues a message to be sent to the peer.
	Write(ctx context.Context, message *Message) error
}

// Dispatcher handles application messages received from a peer. Connection
// lifecycle and subscription control messages are handled by the server
// itself and never reach the dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, writer Writer, message *Message)
}

// DispatcherFunc is an adapter allowing ordinary functions to be used as
// dispatchers.
type DispatcherFunc func(ctx context.Context, writer Writer, message *Message)

// Dispatch calls f(ctx, writer, message).
func (f DispatcherFunc) Dispatch(ctx context.Context, writer Writer, message *Message) {
	f(ctx, writer, message)
}
