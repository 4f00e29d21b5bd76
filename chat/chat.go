// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package chat implements a typed request/response conversation on top of a
// realtime connection. A Session sends chat.message frames and matches the
// chat.response and chat.error frames coming back by correlation id, so
// callers get a blocking Send with context cancellation instead of raw event
// handlers.
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wangtaoking1/realtime/errors"
	"github.com/wangtaoking1/realtime/log"
	"github.com/wangtaoking1/realtime/websocket"
)

// Client is the part of the realtime client a chat session relies on.
type Client interface {
	Send(msg *websocket.Message) bool
	Subscribe(eventType string, h websocket.Handler) func()
}

var _ Client = (*websocket.Client)(nil)

type callResult struct {
	resp *Response
	err  error
}

type call struct {
	seq  uint64
	done chan callResult
}

func (c *call) resolve(resp *Response, err error) {
	select {
	case c.done <- callResult{resp: resp, err: err}:
	default:
	}
}

// Session is a chat conversation over a realtime client. The session id is
// assigned by the server on the first response and attached to every message
// sent afterwards. A Session holds two event subscriptions on the client and
// must be released with Close.
type Session struct {
	client Client
	unsubs []func()

	mu        sync.Mutex
	id        string
	nextSeq   uint64
	nextObsID uint64
	pending   map[string]*call
	observers map[uint64]func(*Response)
	history   []*Entry
}

// NewSession starts a chat session over the given client. The client does not
// need to be connected yet, but Send fails until it is.
func NewSession(client Client) *Session {
	s := &Session{
		client:    client,
		pending:   make(map[string]*call),
		observers: make(map[uint64]func(*Response)),
	}
	s.unsubs = []func(){
		client.Subscribe(websocket.TypeChatResponse, s.onResponse),
		client.Subscribe(websocket.TypeChatError, s.onError),
	}

	return s
}

// SessionID returns the server assigned session id, or an empty string until
// the first response arrives.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.id
}

// Send submits text to the given endpoint and blocks until the server
// responds, the server reports a chat error, or ctx is done. A server
// reported failure is returned as a *ChatError.
func (s *Session) Send(ctx context.Context, endpointID, text string) (*Response, error) {
	cid := uuid.New().String()
	msg := &websocket.Message{
		Type:          websocket.TypeChatMessage,
		CorrelationID: cid,
		Payload: map[string]any{
			"endpoint_id": endpointID,
			"message":     text,
		},
	}

	c := &call{done: make(chan callResult, 1)}
	entry := &Entry{Role: RoleUser, Text: text, CreatedAt: time.Now()}

	s.mu.Lock()
	if s.id != "" {
		msg.Payload["session_id"] = s.id
	}
	s.nextSeq++
	c.seq = s.nextSeq
	s.pending[cid] = c
	s.history = append(s.history, entry)
	s.mu.Unlock()

	if !s.client.Send(msg) {
		s.mu.Lock()
		delete(s.pending, cid)
		s.removeEntry(entry)
		s.mu.Unlock()

		return nil, errors.New("chat: connection is not established")
	}

	select {
	case r := <-c.done:
		return r.resp, r.err
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, cid)
		s.mu.Unlock()

		return nil, ctx.Err()
	}
}

// OnResponse registers fn to be invoked for every response delivered to this
// session, including responses that resolve a pending Send. fn runs on the
// client's dispatch goroutine and must not block. The returned function
// removes the registration.
func (s *Session) OnResponse(fn func(*Response)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextObsID++
	id := s.nextObsID
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// History returns a copy of the session transcript in exchange order.
func (s *Session) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.history))
	for i, e := range s.history {
		out[i] = *e
	}

	return out
}

// Close removes the session's subscriptions from the client and fails all
// pending calls.
func (s *Session) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for cid, c := range s.pending {
		delete(s.pending, cid)
		c.resolve(nil, errors.New("chat: session closed"))
	}
}

func (s *Session) onResponse(msg *websocket.Message) {
	resp := &Response{
		Output:     msg.PayloadString("output"),
		TraceID:    msg.PayloadString("trace_id"),
		EndpointID: msg.PayloadString("endpoint_id"),
		SessionID:  msg.PayloadString("session_id"),
	}

	s.mu.Lock()
	c := s.takeCall(msg.CorrelationID, resp.SessionID)
	if c != nil && s.id == "" && resp.SessionID != "" {
		s.id = resp.SessionID
	}
	// A response belongs to this session when it answers one of its calls or
	// carries no conflicting session id.
	belongs := c != nil || resp.SessionID == "" || resp.SessionID == s.id
	var observers []func(*Response)
	if belongs {
		s.history = append(s.history, &Entry{Role: RoleAssistant, Text: resp.Output, CreatedAt: time.Now()})
		observers = make([]func(*Response), 0, len(s.observers))
		for _, fn := range s.observers {
			observers = append(observers, fn)
		}
	}
	s.mu.Unlock()

	if c != nil {
		c.resolve(resp, nil)
	}
	for _, fn := range observers {
		fn(resp)
	}
}

func (s *Session) onError(msg *websocket.Message) {
	cerr := &ChatError{
		Message: msg.PayloadString("error"),
		Type:    msg.PayloadString("error_type"),
	}

	s.mu.Lock()
	c := s.takeCall(msg.CorrelationID, msg.PayloadString("session_id"))
	s.mu.Unlock()

	if c == nil {
		log.Warnw("No pending chat call for server error", "error", cerr.Message, "type", cerr.Type)
		return
	}
	c.resolve(nil, cerr)
}

// takeCall removes and returns the pending call matching the correlation id.
// When the server omits the correlation, the oldest pending call is taken,
// unless the response names a different session. Must be called with the lock
// held.
func (s *Session) takeCall(correlationID, sessionID string) *call {
	if correlationID != "" {
		c, ok := s.pending[correlationID]
		if !ok {
			return nil
		}
		delete(s.pending, correlationID)

		return c
	}

	if sessionID != "" && s.id != "" && sessionID != s.id {
		return nil
	}
	var (
		oldest *call
		key    string
	)
	for cid, c := range s.pending {
		if oldest == nil || c.seq < oldest.seq {
			oldest, key = c, cid
		}
	}
	if oldest != nil {
		delete(s.pending, key)
	}

	return oldest
}

// removeEntry drops the given entry from the transcript. Must be called with
// the lock held.
func (s *Session) removeEntry(target *Entry) {
	for i, e := range s.history {
		if e == target {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return
		}
	}
}
