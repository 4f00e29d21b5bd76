// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wangtaoking1/realtime/websocket"
)

const waitTimeout = 3 * time.Second

// fakeClient records sent messages and lets tests deliver inbound events to
// the session's subscriptions.
type fakeClient struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string]map[int]websocket.Handler
	sent     []*websocket.Message
	sendOK   bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		handlers: make(map[string]map[int]websocket.Handler),
		sendOK:   true,
	}
}

func (f *fakeClient) Send(msg *websocket.Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.sendOK {
		return false
	}
	f.sent = append(f.sent, msg)

	return true
}

func (f *fakeClient) Subscribe(eventType string, h websocket.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	hs, ok := f.handlers[eventType]
	if !ok {
		hs = make(map[int]websocket.Handler)
		f.handlers[eventType] = hs
	}
	hs[id] = h

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers[eventType], id)
	}
}

func (f *fakeClient) deliver(msg *websocket.Message) {
	f.mu.Lock()
	hs := make([]websocket.Handler, 0, len(f.handlers[msg.Type]))
	for _, h := range f.handlers[msg.Type] {
		hs = append(hs, h)
	}
	f.mu.Unlock()

	for _, h := range hs {
		h(msg)
	}
}

func (f *fakeClient) setSendOK(ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendOK = ok
}

func (f *fakeClient) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sent)
}

func (f *fakeClient) sentAt(i int) *websocket.Message {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sent[i]
}

func sendAsync(ctx context.Context, s *Session, endpointID, text string) <-chan callResult {
	done := make(chan callResult, 1)
	go func() {
		resp, err := s.Send(ctx, endpointID, text)
		done <- callResult{resp: resp, err: err}
	}()

	return done
}

func waitSent(t *testing.T, f *fakeClient, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.sentCount() >= n
	}, waitTimeout, 5*time.Millisecond)
}

func waitResult(t *testing.T, done <-chan callResult) callResult {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for chat result")
		return callResult{}
	}
}

// exchange performs one full request/response round trip and returns the
// resolved response.
func exchange(t *testing.T, f *fakeClient, s *Session, text, output, sessionID string) *Response {
	t.Helper()
	n := f.sentCount()
	done := sendAsync(context.Background(), s, "ep-1", text)
	waitSent(t, f, n+1)

	sent := f.sentAt(n)
	payload := map[string]any{"output": output, "endpoint_id": "ep-1"}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	f.deliver(&websocket.Message{
		Type:          websocket.TypeChatResponse,
		CorrelationID: sent.CorrelationID,
		Payload:       payload,
	})

	r := waitResult(t, done)
	require.NoError(t, r.err)
	require.NotNil(t, r.resp)

	return r.resp
}

func pendingCount(s *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}

func TestSendResolvesOnResponse(t *testing.T) {
	f := newFakeClient()
	s := NewSession(f)
	defer s.Close()

	done := sendAsync(context.Background(), s, "ep-1", "hello")
	waitSent(t, f, 1)

	sent := f.sentAt(0)
	assert.Equal(t, websocket.TypeChatMessage, sent.Type)
	assert.Equal(t, "ep-1", sent.Payload["endpoint_id"])
	assert.Equal(t, "hello", sent.Payload["message"])
	assert.NotContains(t, sent.Payload, "session_id")
	require.NotEmpty(t, sent.CorrelationID)

	f.deliver(&websocket.Message{
		Type:          websocket.TypeChatResponse,
		CorrelationID: sent.CorrelationID,
		Payload: map[string]any{
			"output":      "hi there",
			"trace_id":    "trace-1",
			"endpoint_id": "ep-1",
			"session_id":  "sess-1",
		},
	})

	r := waitResult(t, done)
	require.NoError(t, r.err)
	require.NotNil(t, r.resp)
	assert.Equal(t, "hi there", r.resp.Output)
	assert.Equal(t, "trace-1", r.resp.TraceID)
	assert.Equal(t, "ep-1", r.resp.EndpointID)
	assert.Equal(t, "sess-1", r.resp.SessionID)
	assert.Equal(t, "sess-1", s.SessionID())
	assert.Zero(t, pendingCount(s))
}

func TestSendAttachesSessionID(t *testing.T) {
	f := newFakeClient()
	s := NewSession(f)
	defer s.Close()

	exchange(t, f, s, "hello", "hi", "sess-1")

	done := sendAsync(context.Background(), s, "ep-1", "again")
	waitSent(t, f, 2)
	assert.Equal(t, "sess-1", f.sentAt(1).Payload["session_id"])

	f.deliver(&websocket.Message{
		Type:          websocket.TypeChatResponse,
		CorrelationID: f.sentAt(1).CorrelationID,
		Payload:       map[string]any{"output": "sure"},
	})
	require.NoError(t, waitResult(t, done).err)
}

func TestSendChatError(t *testing.T) {
	f := newFakeClient()
	s := NewSession(f)
	defer s.Close()

	done := sendAsync(context.Background(), s, "ep-1", "hello")
	waitSent(t, f, 1)

	f.deliver(&websocket.Message{
		Type:          websocket.TypeChatError,
		CorrelationID: f.sentAt(0).CorrelationID,
		Payload: map[string]any{
			"error":      "model exploded",
			"error_type": "provider_error",
		},
	})

	r := waitResult(t, done)
	require.Error(t, r.err)
	assert.Nil(t, r.resp)

	var cerr *ChatError
	require.ErrorAs(t, r.err, &cerr)
	assert.Equal(t, "model exploded", cerr.Message)
	assert.Equal(t, "provider_error", cerr.Type)
	assert.Equal(t, "provider_error: model exploded", cerr.Error())
}

func TestSendContextCanceled(t *testing.T) {
	f := newFakeClient()
	s := NewSession(f)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := sendAsync(ctx, s, "ep-1", "hello")
	waitSent(t, f, 1)

	cancel()
	r := waitResult(t, done)
	assert.ErrorIs(t, r.err, context.Canceled)
	assert.Nil(t, r.resp)
	assert.Zero(t, pendingCount(s))
}

func TestSendWhileDisconnected(t *testing.T) {
	f := newFakeClient()
	f.setSendOK(false)
	s := NewSession(f)
	defer s.Close()

	resp, err := s.Send(context.Background(), "ep-1", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not established")
	assert.Nil(t, resp)
	assert.Zero(t, pendingCount(s))
	assert.Empty(t, s.History())
}

func TestUncorrelatedResponseResolvesOldest(t *testing.T) {
	f := newFakeClient()
	s := NewSession(f)
	defer s.Close()

	first := sendAsync(context.Background(), s, "ep-1", "one?")
	waitSent(t, f, 1)
	second := sendAsync(context.Background(), s, "ep-1", "two?")
	waitSent(t, f, 2)

	f.deliver(&websocket.Message{
		Type:    websocket.TypeChatResponse,
		Payload: map[string]any{"output": "one"},
	})
	f.deliver(&websocket.Message{
		Type:    websocket.TypeChatResponse,
		Payload: map[string]any{"output": "two"},
	})

	r1 := waitResult(t, first)
	require.NoError(t, r1.err)
	assert.Equal(t, "one", r1.resp.Output)
	r2 := waitResult(t, second)
	require.NoError(t, r2.err)
	assert.Equal(t, "two", r2.resp.Output)
}

func TestResponseForOtherSessionIgnored(t *testing.T) {
	f := newFakeClient()
	s := NewSession(f)
	defer s.Close()

	exchange(t, f, s, "hello", "hi", "sess-1")

	var streamed []*Response
	var mu sync.Mutex
	s.OnResponse(func(r *Response) {
		mu.Lock()
		defer mu.Unlock()
		streamed = append(streamed, r)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := sendAsync(ctx, s, "ep-1", "pending")
	waitSent(t, f, 2)

	f.deliver(&websocket.Message{
		Type:    websocket.TypeChatResponse,
		Payload: map[string]any{"output": "stray", "session_id": "sess-2"},
	})

	assert.Len(t, s.History(), 3)
	mu.Lock()
	assert.Empty(t, streamed)
	mu.Unlock()

	cancel()
	r := waitResult(t, done)
	assert.ErrorIs(t, r.err, context.Canceled)
}

func TestOnResponseStreaming(t *testing.T) {
	f := newFakeClient()
	s := NewSession(f)
	defer s.Close()

	var streamed []*Response
	var mu sync.Mutex
	unsub := s.OnResponse(func(r *Response) {
		mu.Lock()
		defer mu.Unlock()
		streamed = append(streamed, r)
	})

	f.deliver(&websocket.Message{
		Type:    websocket.TypeChatResponse,
		Payload: map[string]any{"output": "status update"},
	})
	mu.Lock()
	require.Len(t, streamed, 1)
	assert.Equal(t, "status update", streamed[0].Output)
	mu.Unlock()

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, RoleAssistant, history[0].Role)

	unsub()
	f.deliver(&websocket.Message{
		Type:    websocket.TypeChatResponse,
		Payload: map[string]any{"output": "unseen"},
	})
	mu.Lock()
	assert.Len(t, streamed, 1)
	mu.Unlock()
}

func TestHistoryOrder(t *testing.T) {
	f := newFakeClient()
	s := NewSession(f)
	defer s.Close()

	exchange(t, f, s, "hello", "hi", "sess-1")
	exchange(t, f, s, "how are you?", "fine", "")

	history := s.History()
	require.Len(t, history, 4)
	assert.Equal(t, RoleUser, history[0].Role)
	assert.Equal(t, "hello", history[0].Text)
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, "hi", history[1].Text)
	assert.Equal(t, RoleUser, history[2].Role)
	assert.Equal(t, "how are you?", history[2].Text)
	assert.Equal(t, RoleAssistant, history[3].Role)
	assert.Equal(t, "fine", history[3].Text)
	for _, e := range history {
		assert.False(t, e.CreatedAt.IsZero())
	}
}

func TestCloseFailsPending(t *testing.T) {
	f := newFakeClient()
	s := NewSession(f)

	done := sendAsync(context.Background(), s, "ep-1", "hello")
	waitSent(t, f, 1)

	s.Close()
	r := waitResult(t, done)
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "session closed")

	// Subscriptions are gone, late responses are no longer delivered.
	f.deliver(&websocket.Message{
		Type:    websocket.TypeChatResponse,
		Payload: map[string]any{"output": "late"},
	})
	assert.Len(t, s.History(), 1)
}
