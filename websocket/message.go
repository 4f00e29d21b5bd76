// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

// Well known message types exchanged over a realtime connection.
const (
	// TypeConnected is sent by the server right after a connection is
	// established, carrying the connection id in the payload.
	TypeConnected = "connected"
	// TypeDisconnected is dispatched locally when a connection is lost.
	TypeDisconnected = "disconnected"
	// TypeError carries a server side error description.
	TypeError = "error"

	// TypePing and TypePong are the application level heartbeat messages.
	TypePing = "ping"
	TypePong = "pong"

	// TypeSubscribe and TypeUnsubscribe manage channel membership. The server
	// acknowledges them with TypeSubscribed and TypeUnsubscribed.
	TypeSubscribe    = "subscribe"
	TypeUnsubscribe  = "unsubscribe"
	TypeSubscribed   = "subscribed"
	TypeUnsubscribed = "unsubscribed"

	// TypeNotification and TypeMessage carry application events on a channel.
	TypeNotification = "notification"
	TypeMessage      = "message"

	// Chat message types.
	TypeChatMessage  = "chat.message"
	TypeChatResponse = "chat.response"
	TypeChatError    = "chat.error"

	// TypeAll is the wildcard event type. Handlers subscribed to it receive
	// every dispatched message.
	TypeAll = "*"
)

// Message is the JSON envelope exchanged over a realtime connection.
type Message struct {
	Type          string         `json:"type"`
	Channel       string         `json:"channel,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// PayloadString returns the string value for key in the message payload, or
// an empty string if the key is absent or not a string.
func (m *Message) PayloadString(key string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	s, _ := m.Payload[key].(string)

	return s
}

// PayloadInt returns the integer value for key in the message payload. JSON
// numbers are decoded as float64, so both forms are accepted.
func (m *Message) PayloadInt(key string) int {
	if m == nil || m.Payload == nil {
		return 0
	}
	switch v := m.Payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
