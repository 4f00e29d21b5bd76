// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Options contains the options of a realtime server.
type Options struct {
	BindAddress     string `json:"bind-address" mapstructure:"bind-address"`
	BindPort        int    `json:"bind-port"    mapstructure:"bind-port"`
	Path            string `json:"path" mapstructure:"path"`
	ReadBufferSize  int    `json:"read-buffer-size" mapstructure:"read-buffer-size"`
	WriteBufferSize int    `json:"write-buffer-size" mapstructure:"write-buffer-size"`
	Compression     bool   `json:"compression" mapstructure:"compression"`
}

// NewOptions creates a new Options object with default parameters.
func NewOptions() *Options {
	return &Options{
		BindAddress:     "127.0.0.1",
		BindPort:        6060,
		Path:            "/ws",
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		Compression:     true,
	}
}

// Validate verifies flags passed to Options.
func (o *Options) Validate() []error {
	var errs []error
	if o.BindPort <= 0 || o.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("--websocket.bind-port %v must be between 1 and 65535", o.BindPort))
	}
	if !strings.HasPrefix(o.Path, "/") {
		errs = append(errs, fmt.Errorf("--websocket.path %q must start with /", o.Path))
	}

	return errs
}

// AddFlags adds flags related to the realtime server to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.BindAddress, "websocket.bind-address", o.BindAddress, "The IP address on which to serve the realtime server")
	fs.IntVar(&o.BindPort, "websocket.bind-port", o.BindPort, "The port on which to serve the realtime server")
	fs.StringVar(&o.Path, "websocket.path", o.Path, "The HTTP path on which to serve the websocket endpoint")
	fs.IntVar(&o.ReadBufferSize, "websocket.read-buffer-size", o.ReadBufferSize, "The byte size of websocket read buffer")
	fs.IntVar(&o.WriteBufferSize, "websocket.write-buffer-size", o.WriteBufferSize, "The byte size of websocket write buffer")
	fs.BoolVar(&o.Compression, "websocket.compression", o.Compression, "Enable compression for websocket message")
}
