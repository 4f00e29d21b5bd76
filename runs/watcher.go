// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package runs delivers live progress updates for test runs. A Watcher joins
// the run's broadcast channel on a realtime client and decodes the forwarded
// notification and message events into typed progress events.
package runs

import (
	"sync"

	"github.com/wangtaoking1/realtime/websocket"
)

// Channel returns the realtime channel name carrying live updates for a test
// run.
func Channel(runID string) string {
	return "run:" + runID
}

// Event is a progress update for a running test run.
type Event struct {
	RunID    string
	Status   string
	Progress int
	Total    int
	Detail   string
}

// Client is the part of the realtime client a watcher relies on.
type Client interface {
	Subscribe(eventType string, h websocket.Handler) func()
	SubscribeToChannel(channel string) bool
	UnsubscribeFromChannel(channel string) bool
}

var _ Client = (*websocket.Client)(nil)

// Watcher forwards decoded progress events for a single test run until
// stopped.
type Watcher struct {
	client  Client
	runID   string
	channel string
	onEvent func(Event)

	unsubs []func()
	once   sync.Once
}

// Watch joins the run's channel and invokes fn for every progress event
// published on it. fn runs on the client's dispatch goroutine and must not
// block. The watcher must be released with Stop.
func Watch(client Client, runID string, fn func(Event)) *Watcher {
	w := &Watcher{
		client:  client,
		runID:   runID,
		channel: Channel(runID),
		onEvent: fn,
	}
	// Handlers are registered before the channel subscription is sent, so no
	// forwarded event can be missed.
	w.unsubs = []func(){
		client.Subscribe(websocket.TypeNotification, w.handle),
		client.Subscribe(websocket.TypeMessage, w.handle),
	}
	client.SubscribeToChannel(w.channel)

	return w
}

// RunID returns the id of the watched run.
func (w *Watcher) RunID() string {
	return w.runID
}

// Stop leaves the run's channel and removes the event handlers. It is safe to
// call multiple times.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		w.client.UnsubscribeFromChannel(w.channel)
		for _, unsub := range w.unsubs {
			unsub()
		}
	})
}

func (w *Watcher) handle(msg *websocket.Message) {
	if msg.Channel != w.channel {
		return
	}
	w.onEvent(w.decode(msg))
}

func (w *Watcher) decode(msg *websocket.Message) Event {
	e := Event{
		RunID:    msg.PayloadString("run_id"),
		Status:   msg.PayloadString("status"),
		Progress: msg.PayloadInt("progress"),
		Total:    msg.PayloadInt("total"),
		Detail:   msg.PayloadString("detail"),
	}
	if e.RunID == "" {
		e.RunID = w.runID
	}

	return e
}
