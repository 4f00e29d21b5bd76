// Copyright 2023 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/wangtaoking1/realtime/app"
	"github.com/wangtaoking1/realtime/errors"
	"github.com/wangtaoking1/realtime/flag"
	"github.com/wangtaoking1/realtime/log"
)

type CtlOptions struct {
	Addr    string        `json:"addr" mapstructure:"addr"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

func (o *CtlOptions) Flags() (fss flag.NamedFlagSets) {
	fs := fss.FlagSet("gateway")
	fs.StringVarP(&o.Addr, "addr", "a", o.Addr, "websocket address of the gateway")
	fs.DurationVarP(&o.Timeout, "timeout", "t", o.Timeout, "request timeout")

	return fss
}

func (o *CtlOptions) Validate() []error {
	var errs []error
	if o.Addr == "" {
		errs = append(errs, errors.New("gateway addr must not be empty"))
	}
	if o.Timeout > 30*time.Second {
		errs = append(errs, errors.New("timeout must not bigger than 30s"))
	}

	return errs
}

func newCtlOptions() *CtlOptions {
	return &CtlOptions{
		Addr:    "ws://127.0.0.1:8080/ws",
		Timeout: 5 * time.Second,
	}
}

func main() {
	options := newCtlOptions()
	application := app.NewApp("rtctl",
		"realtime ctl",
		app.WithDescription("Control tool of the realtime gateway"),
		app.WithOptions(options),
		app.WithDefaultValidArgs(),
		app.WithCommands(commands...),
		app.WithRunFunc(run(options)),
	)

	application.Run()
}

func run(opts *CtlOptions) app.RunFunc {
	return func(name string) error {
		if err := log.InitLogger(false); err != nil {
			return err
		}

		log.Debug("This is a debug msg for test")
		log.Infof("The target gateway is %s", opts.Addr)
		log.Infof("The request timeout is %v", opts.Timeout)

		return nil
	}
}
