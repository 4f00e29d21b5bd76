// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wangtaoking1/realtime/log"
)

const shutdownTimeout = 10 * time.Second

// Server accepts realtime connections, authenticates them and serves them
// until they disconnect.
type Server struct {
	opts       *Options
	hub        *Hub
	dispatcher Dispatcher
	validator  TokenValidator

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer creates a realtime server. The dispatcher and validator may be
// nil: without a dispatcher application messages are dropped, without a
// validator every token is accepted with an empty identity.
func NewServer(opts *Options, hub *Hub, dispatcher Dispatcher, validator TokenValidator) *Server {
	s := &Server{
		opts:       opts,
		hub:        hub,
		dispatcher: dispatcher,
		validator:  validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			EnableCompression: opts.Compression,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health_check", s.handleHealth)
	mux.HandleFunc(opts.Path, s.handleStream)
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.BindAddress, opts.BindPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// StreamHandler returns the handler upgrading requests to realtime
// connections, so the stream endpoint can be mounted on an external router
// instead of the built in server.
func (s *Server) StreamHandler() http.HandlerFunc {
	return s.handleStream
}

// Run serves connections until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) {
	if err := s.hub.Start(ctx); err != nil {
		log.Errorw("Start hub error", "error", err)

		return
	}
	defer s.hub.Close()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Infow("Realtime server start", "address", s.httpServer.Addr)
	defer log.Info("Realtime server closed")
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("Realtime server error: %v", err)
	}
}

func (s *Server) handleHealth(writer http.ResponseWriter, request *http.Request) {
	writer.WriteHeader(http.StatusOK)
	_, _ = writer.Write([]byte("ok"))
}

func (s *Server) handleStream(writer http.ResponseWriter, request *http.Request) {
	token := request.URL.Query().Get("token")
	identity, err := s.authenticate(token)
	if err != nil {
		log.Warnw("Connection rejected", "url", request.URL.Path, "error", err)
		http.Error(writer, "unauthorized", http.StatusUnauthorized)

		return
	}

	id := uuid.New().String()
	ip := request.Header.Get("True-Client-IP")
	if len(ip) == 0 {
		ip = request.RemoteAddr
	}
	log.Infow("Connection accepted",
		"connection_id", id,
		"user_id", identity.UserID,
		"real_ip", ip,
	)

	conn, err := s.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		log.Errorw("Upgrade stream error", "connection_id", id, "error", err)

		return
	}

	ctx := NewContext(request.Context(), identity)
	p := newPeer(id, identity, s.hub, s.dispatcher, conn)

	// Acknowledge the connection before serving it.
	_ = p.Write(ctx, &Message{
		Type: TypeConnected,
		Payload: map[string]any{
			"connection_id": id,
			"user_id":       identity.UserID,
			"org_id":        identity.OrgID,
		},
	})
	p.Run(ctx)
}

func (s *Server) authenticate(token string) (*Identity, error) {
	if s.validator == nil {
		return &Identity{}, nil
	}

	return s.validator(token)
}
