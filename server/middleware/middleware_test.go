// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(names ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	for _, name := range names {
		g.Use(Get(name))
	}
	g.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	return g
}

func TestGetUnknownMiddleware(t *testing.T) {
	assert.Nil(t, Get("unknown"))
}

func TestRegister(t *testing.T) {
	called := false
	Register("custom", func(c *gin.Context) {
		called = true
		c.Next()
	})

	g := newTestEngine("custom")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
}

func TestRequestIDAssigned(t *testing.T) {
	g := newTestEngine("requestid")

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(XRequestIDKey))
}

func TestRequestIDPreserved(t *testing.T) {
	g := newTestEngine("requestid")

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(XRequestIDKey, "req-123")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(XRequestIDKey))
}

func TestCORSPreflight(t *testing.T) {
	require.NotNil(t, Get("cors"))
	g := newTestEngine("cors")

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
