// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// A full realtime gateway. The websocket stream is mounted on the api server
// next to the health, metrics and profiling routers, and chat messages are
// answered by a built in echo responder.
package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wangtaoking1/realtime/app"
	"github.com/wangtaoking1/realtime/errors"
	"github.com/wangtaoking1/realtime/flag"
	"github.com/wangtaoking1/realtime/log"
	"github.com/wangtaoking1/realtime/server"
	"github.com/wangtaoking1/realtime/shutdown"
	"github.com/wangtaoking1/realtime/shutdown/trigger/posixsignal"
	"github.com/wangtaoking1/realtime/websocket"
)

type gatewayOptions struct {
	Log       *log.Options       `json:"log"       mapstructure:"log"`
	WebSocket *websocket.Options `json:"websocket" mapstructure:"websocket"`
	Server    *server.Options    `json:"server"    mapstructure:"server"`
}

func newGatewayOptions() *gatewayOptions {
	return &gatewayOptions{
		Log:       log.NewOptions(),
		WebSocket: websocket.NewOptions(),
		Server:    server.NewOptions(),
	}
}

func (o *gatewayOptions) Flags() (fss flag.NamedFlagSets) {
	o.Log.AddFlags(fss.FlagSet("log"))
	o.WebSocket.AddFlags(fss.FlagSet("websocket"))
	o.Server.AddFlags(fss.FlagSet("server"))

	return fss
}

func (o *gatewayOptions) Validate() []error {
	var errs []error
	errs = append(errs, o.Log.Validate()...)
	errs = append(errs, o.WebSocket.Validate()...)
	errs = append(errs, o.Server.Validate()...)

	return errs
}

func main() {
	opts := newGatewayOptions()
	application := app.NewApp("realtime-gateway",
		"realtime gateway",
		app.WithDescription("A gateway serving realtime connections with channel fanout"),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)

	application.Run()
}

func run(opts *gatewayOptions) app.RunFunc {
	return func(name string) error {
		log.Init(opts.Log)
		defer log.Flush()

		hub := websocket.NewHub()
		if err := hub.Start(context.Background()); err != nil {
			return err
		}
		defer hub.Close()

		gateway := websocket.NewServer(opts.WebSocket, hub, &chatDispatcher{}, validateToken)

		apiserver := server.New(opts.Server)
		err := apiserver.Setup(func(g *gin.Engine) error {
			g.GET(opts.WebSocket.Path, gin.WrapF(gateway.StreamHandler()))

			return nil
		})
		if err != nil {
			return err
		}

		gs := shutdown.New(posixsignal.New())
		gs.AddCallback(shutdown.CallbackFunc(func(trigger string) error {
			log.Infow("Shutdown triggered", "trigger", trigger)
			apiserver.Close()

			return nil
		}))
		if err := gs.Start(); err != nil {
			return err
		}

		return apiserver.Run()
	}
}

// validateToken accepts any non empty token and uses it as the user id, so
// the gateway can be exercised without an auth backend.
func validateToken(token string) (*websocket.Identity, error) {
	if token == "" {
		return nil, errors.New("missing token")
	}

	return &websocket.Identity{UserID: token, OrgID: "demo"}, nil
}

// chatDispatcher answers playground chat messages with an echo response.
type chatDispatcher struct{}

func (d *chatDispatcher) Dispatch(ctx context.Context, writer websocket.Writer, msg *websocket.Message) {
	if msg.Type != websocket.TypeChatMessage {
		return
	}

	sessionID := msg.PayloadString("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	var userID string
	if identity, ok := websocket.FromContext(ctx); ok {
		userID = identity.UserID
	}
	log.Infow("Chat message received",
		"user_id", userID,
		"endpoint_id", msg.PayloadString("endpoint_id"),
		"session_id", sessionID,
	)

	_ = writer.Write(ctx, &websocket.Message{
		Type:          websocket.TypeChatResponse,
		CorrelationID: msg.CorrelationID,
		Payload: map[string]any{
			"output":      "echo: " + msg.PayloadString("message"),
			"endpoint_id": msg.PayloadString("endpoint_id"),
			"session_id":  sessionID,
			"trace_id":    uuid.New().String(),
		},
	})
}
