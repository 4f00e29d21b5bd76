// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// A chat playground demo. It connects to a local gateway, sends a few prompts
// through a chat session and prints the transcript as a table.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/wangtaoking1/realtime/chat"
	"github.com/wangtaoking1/realtime/log"
	"github.com/wangtaoking1/realtime/websocket"
)

func main() {
	_ = log.InitLogger(false)
	defer log.Flush()

	opts := websocket.NewClientOptions()
	opts.URL = "ws://127.0.0.1:8080/ws"
	opts.Token = "playground"

	client := websocket.NewClient(opts)
	defer client.Disconnect()

	connected := make(chan struct{}, 1)
	unsub := client.Subscribe(websocket.TypeConnected, func(msg *websocket.Message) {
		select {
		case connected <- struct{}{}:
		default:
		}
	})
	defer unsub()

	client.Connect()
	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		log.Fatal("Gateway is not reachable")
	}

	session := chat.NewSession(client)
	defer session.Close()

	unsubStream := session.OnResponse(func(r *chat.Response) {
		color.Cyan("<- %s", r.Output)
	})
	defer unsubStream()

	prompts := []string{
		"Generate three adversarial prompts for a travel bot.",
		"Summarize the weaknesses found so far.",
	}
	for _, prompt := range prompts {
		color.Yellow("-> %s", prompt)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := session.Send(ctx, "ep-demo", prompt)
		cancel()
		if err != nil {
			log.Fatalf("Chat failed: %v", err)
		}
	}

	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true
	table.AddRow("ROLE", "TIME", "TEXT")
	for _, e := range session.History() {
		table.AddRow(string(e.Role), e.CreatedAt.Format(time.TimeOnly), e.Text)
	}
	fmt.Println(table)
	fmt.Printf("session: %s\n", session.SessionID())
}
