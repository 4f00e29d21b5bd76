// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package chat

import (
	"fmt"
	"time"
)

// Role identifies the author of a transcript entry.
type Role string

const (
	// RoleUser marks messages sent by the local caller.
	RoleUser Role = "user"
	// RoleAssistant marks responses produced by the endpoint.
	RoleAssistant Role = "assistant"
)

// Entry is a single item of a session transcript.
type Entry struct {
	Role      Role
	Text      string
	CreatedAt time.Time
}

// Response is one answer produced by an endpoint.
type Response struct {
	Output     string
	TraceID    string
	EndpointID string
	SessionID  string
}

// ChatError is a chat failure reported by the server, carrying the error
// classification the backend attaches to it.
type ChatError struct {
	Message string
	Type    string
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Type == "" {
		return e.Message
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}
