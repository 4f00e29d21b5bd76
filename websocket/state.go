// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

// connState is the lifecycle state of a client connection.
type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ConnectionState is a point in time snapshot of a client connection.
type ConnectionState struct {
	// Connected reports whether the logical connection is established.
	Connected bool
	// ReconnectAttempts is the count of reconnect attempts made since the
	// last successful connection.
	ReconnectAttempts int
	// ConnectionID is the server assigned id of the current connection. It is
	// empty until the server acknowledges the connection.
	ConnectionID string
	// LastError is the last connection or server error observed, if any.
	LastError error
}
