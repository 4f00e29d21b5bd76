// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const (
	defaultReconnectInterval    = 1 * time.Second
	defaultMaxReconnectAttempts = 5
	defaultMaxReconnectDelay    = 30 * time.Second
	defaultHeartbeatInterval    = 30 * time.Second
	defaultHandshakeTimeout     = 10 * time.Second
)

// ClientOptions contains the options of a realtime client.
type ClientOptions struct {
	// URL is the websocket endpoint of the realtime server, e.g.
	// "ws://127.0.0.1:6060/ws".
	URL string `json:"url" mapstructure:"url"`
	// Token is the auth token appended to the URL as a query parameter when
	// connecting.
	Token string `json:"token" mapstructure:"token"`

	// ReconnectInterval is the base delay before the first reconnect attempt.
	// The delay doubles on every further attempt.
	ReconnectInterval time.Duration `json:"reconnect-interval" mapstructure:"reconnect-interval"`
	// MaxReconnectAttempts is the count of reconnect attempts made before
	// giving up. Attempts are counted since the last successful connection.
	MaxReconnectAttempts int `json:"max-reconnect-attempts" mapstructure:"max-reconnect-attempts"`
	// MaxReconnectDelay caps the backoff delay between reconnect attempts.
	MaxReconnectDelay time.Duration `json:"max-reconnect-delay" mapstructure:"max-reconnect-delay"`
	// HeartbeatInterval is the period of application level ping messages.
	HeartbeatInterval time.Duration `json:"heartbeat-interval" mapstructure:"heartbeat-interval"`
	// HandshakeTimeout limits the duration of the websocket handshake.
	HandshakeTimeout time.Duration `json:"handshake-timeout" mapstructure:"handshake-timeout"`

	// OnConnectionChange is called with the new value whenever the logical
	// connection state toggles. It is never called twice with the same value
	// in a row.
	OnConnectionChange func(connected bool) `json:"-" mapstructure:"-"`
}

// NewClientOptions creates a new ClientOptions object with default parameters.
func NewClientOptions() *ClientOptions {
	return &ClientOptions{
		ReconnectInterval:    defaultReconnectInterval,
		MaxReconnectAttempts: defaultMaxReconnectAttempts,
		MaxReconnectDelay:    defaultMaxReconnectDelay,
		HeartbeatInterval:    defaultHeartbeatInterval,
		HandshakeTimeout:     defaultHandshakeTimeout,
	}
}

// Validate verifies flags passed to ClientOptions.
func (o *ClientOptions) Validate() []error {
	var errs []error
	if o.URL == "" {
		errs = append(errs, fmt.Errorf("realtime server url must be specified"))
	}
	if o.ReconnectInterval <= 0 {
		errs = append(errs, fmt.Errorf("--realtime.reconnect-interval %v must be positive", o.ReconnectInterval))
	}
	if o.MaxReconnectAttempts < 0 {
		errs = append(errs, fmt.Errorf("--realtime.max-reconnect-attempts %v must not be negative", o.MaxReconnectAttempts))
	}
	if o.HeartbeatInterval <= 0 {
		errs = append(errs, fmt.Errorf("--realtime.heartbeat-interval %v must be positive", o.HeartbeatInterval))
	}

	return errs
}

// AddFlags adds flags related to realtime client to the specified FlagSet.
func (o *ClientOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.URL, "realtime.url", o.URL, "The websocket endpoint of the realtime server")
	fs.StringVar(&o.Token, "realtime.token", o.Token, "The auth token used when connecting to the realtime server")
	fs.DurationVar(&o.ReconnectInterval, "realtime.reconnect-interval", o.ReconnectInterval,
		"The base delay before the first reconnect attempt, doubled on every further attempt")
	fs.IntVar(&o.MaxReconnectAttempts, "realtime.max-reconnect-attempts", o.MaxReconnectAttempts,
		"The count of reconnect attempts made before giving up")
	fs.DurationVar(&o.MaxReconnectDelay, "realtime.max-reconnect-delay", o.MaxReconnectDelay,
		"The maximum backoff delay between reconnect attempts")
	fs.DurationVar(&o.HeartbeatInterval, "realtime.heartbeat-interval", o.HeartbeatInterval,
		"The period of application level ping messages")
	fs.DurationVar(&o.HandshakeTimeout, "realtime.handshake-timeout", o.HandshakeTimeout,
		"The timeout of the websocket handshake")
}
