// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package websocket

import "context"

// Identity describes the authenticated principal behind a connection.
type Identity struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
}

// TokenValidator resolves a raw connection token into the identity it
// carries. It returns an error for invalid tokens, which rejects the
// connection.
type TokenValidator func(token string) (*Identity, error)

type identityKey struct{}

// NewContext returns a copy of ctx carrying the given identity.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity attached to ctx, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)

	return id, ok
}
