// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"sync"

	"github.com/wangtaoking1/realtime/log"
)

// Handler handles a single message dispatched to a subscriber.
type Handler func(msg *Message)

// handlerRegistry stores message handlers by event type. Handlers registered
// under TypeAll receive every dispatched message.
type handlerRegistry struct {
	mu       sync.RWMutex
	nextID   int64
	handlers map[string]map[int64]Handler
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{
		handlers: make(map[string]map[int64]Handler),
	}
}

// add registers a handler for the given event type and returns a function
// removing it again. The returned function is safe to call multiple times.
func (r *handlerRegistry) add(eventType string, h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	hs, ok := r.handlers[eventType]
	if !ok {
		hs = make(map[int64]Handler)
		r.handlers[eventType] = hs
	}
	hs[id] = h

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if hs, ok := r.handlers[eventType]; ok {
			delete(hs, id)
			if len(hs) == 0 {
				delete(r.handlers, eventType)
			}
		}
	}
}

// dispatch delivers the message to all handlers of its type, then to all
// wildcard handlers. Handlers run sequentially on the calling goroutine.
func (r *handlerRegistry) dispatch(msg *Message) {
	r.mu.RLock()
	hs := make([]Handler, 0, len(r.handlers[msg.Type])+len(r.handlers[TypeAll]))
	for _, h := range r.handlers[msg.Type] {
		hs = append(hs, h)
	}
	if msg.Type != TypeAll {
		for _, h := range r.handlers[TypeAll] {
			hs = append(hs, h)
		}
	}
	r.mu.RUnlock()

	for _, h := range hs {
		invokeHandler(h, msg)
	}
}

func invokeHandler(h Handler, msg *Message) {
	defer func() {
		if err := recover(); err != nil {
			log.Errorw("Message handler panic", "type", msg.Type, "error", err)
		}
	}()

	h(msg)
}
