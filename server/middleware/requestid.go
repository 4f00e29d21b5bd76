// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// XRequestIDKey is the header carrying the request id.
const XRequestIDKey = "X-Request-ID"

func init() {
	Register("requestid", RequestID())
}

// RequestID attaches a unique id to every request. An inbound X-Request-ID
// header is kept, so ids assigned by upstream proxies survive.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(XRequestIDKey)
		if rid == "" {
			rid = uuid.New().String()
			c.Request.Header.Set(XRequestIDKey, rid)
		}
		c.Writer.Header().Set(XRequestIDKey, rid)

		c.Next()
	}
}
