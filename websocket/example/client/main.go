// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// A realtime client demo. It connects to a local gateway, joins a channel and
// logs everything pushed to it for half a minute.
package main

import (
	"time"

	"github.com/wangtaoking1/realtime/log"
	"github.com/wangtaoking1/realtime/websocket"
)

func main() {
	_ = log.InitLogger(true)
	defer log.Flush()

	opts := websocket.NewClientOptions()
	opts.URL = "ws://127.0.0.1:6060/ws"
	opts.Token = "demo-user"
	opts.HeartbeatInterval = 5 * time.Second
	opts.OnConnectionChange = func(connected bool) {
		log.Infow("Connection state changed", "connected", connected)
	}

	client := websocket.NewClient(opts)
	defer client.Disconnect()

	unsub := client.Subscribe(websocket.TypeAll, func(msg *websocket.Message) {
		log.Infow("Message received", "type", msg.Type, "channel", msg.Channel, "payload", msg.Payload)
	})
	defer unsub()

	connected := make(chan struct{}, 1)
	unsubConnected := client.Subscribe(websocket.TypeConnected, func(msg *websocket.Message) {
		select {
		case connected <- struct{}{}:
		default:
		}
	})
	defer unsubConnected()

	client.Connect()
	<-connected
	log.Infof("Connected with connection id %s", client.ConnectionID())

	client.SubscribeToChannel("run:demo")
	if !client.Send(&websocket.Message{
		Type:    websocket.TypeMessage,
		Channel: "run:demo",
		Payload: map[string]any{"hello": "world"},
	}) {
		log.Warn("Send failed, client is not connected")
	}

	time.Sleep(30 * time.Second)
}
