// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package main

import (
	"context"

	"github.com/wangtaoking1/realtime/log"
	"github.com/wangtaoking1/realtime/websocket"
)

// A minimal self hosted realtime gateway. Every application message is
// answered with a generic echo so clients can be pointed at it directly.
func main() {
	_ = log.InitLogger(true)
	defer log.Flush()

	echo := websocket.DispatcherFunc(func(ctx context.Context, writer websocket.Writer, msg *websocket.Message) {
		_ = writer.Write(ctx, &websocket.Message{
			Type:          websocket.TypeMessage,
			Channel:       msg.Channel,
			CorrelationID: msg.CorrelationID,
			Payload:       map[string]any{"echo": msg.Type},
		})
	})

	server := websocket.NewServer(websocket.NewOptions(), websocket.NewHub(), echo, nil)
	server.Run(context.Background())
}
