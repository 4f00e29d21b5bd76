// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package auth

import (
	"net"
	"time"

	"github.com/segmentio/kafka-go"
)

type AuthType string

const (
	AuthTypeRaw  AuthType = "raw"
	AuthTypeSASL AuthType = "sasl"
)

type Authenticator interface {
	// Transport returns a kafka transport carrying the credentials, used by
	// producers.
	Transport() kafka.RoundTripper
	// Dialer returns a kafka dialer carrying the credentials, used by
	// consumers.
	Dialer() *kafka.Dialer
}

type rawAuthenticator struct {
}

// NewRawAuthenticator returns an authenticator for brokers without
// authentication.
func NewRawAuthenticator() Authenticator {
	return &rawAuthenticator{}
}

func (a *rawAuthenticator) Transport() kafka.RoundTripper {
	return &kafka.Transport{
		Dial: (&net.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		}).DialContext,
	}
}

func (a *rawAuthenticator) Dialer() *kafka.Dialer {
	return &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
}
