// Copyright 2023 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package main

import (
	"context"

	"github.com/wangtaoking1/realtime/log"
)

func main() {
	defer log.Flush()

	logger := log.WithValues("connection_id", "conn-1")
	logger.Info("channel subscribed", "channel", "run:alpha")
	logger.Info("channel unsubscribed", "channel", "run:alpha")

	ctx := logger.WithContext(context.Background())
	log.FromContext(ctx).Info("connection closed")
}
