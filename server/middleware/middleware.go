// Copyright 2023 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package middleware holds the named gin middlewares that can be enabled on
// an api server through its options. The requestid and cors middlewares are
// registered by default.
package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	middlewares = map[string]gin.HandlerFunc{}
	mtx         sync.RWMutex
)

// Register registers a middleware under the given name. Registering a name
// again replaces the previous middleware.
func Register(name string, middleware gin.HandlerFunc) {
	if middleware == nil {
		return
	}

	mtx.Lock()
	defer mtx.Unlock()

	middlewares[name] = middleware
}

// Get returns the middleware registered under the given name, or nil.
func Get(name string) gin.HandlerFunc {
	mtx.RLock()
	defer mtx.RUnlock()

	return middlewares[name]
}
