// Copyright 2023 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/wangtaoking1/realtime/app"
)

var commands []app.Command

func init() {
	commands = append(commands, statusCommand())
}

func statusCommand() app.Command {
	return app.NewCommand("status",
		"show gateway status",
		app.WithCmdDescription("Show the status of the realtime gateway"),
		app.WithCmdRunFunc(statusFunc),
	)
}

func statusFunc(name string) error {
	fmt.Println("gateway: not connected")

	return nil
}
