// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package bridge

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/google/uuid"

	"github.com/wangtaoking1/realtime/errors"
	"github.com/wangtaoking1/realtime/log"
	"github.com/wangtaoking1/realtime/utils/retry"
	"github.com/wangtaoking1/realtime/websocket"
)

const (
	pingRetryInterval = 500 * time.Millisecond
	pingTimeout       = 5 * time.Second
)

// RedisBridge relays channel messages between instances over a shared redis
// pub/sub channel.
type RedisBridge struct {
	opts       *RedisOptions
	instanceID string

	client redis.UniversalClient
	pubsub *redis.PubSub

	available atomic.Bool
	done      chan struct{}
}

var _ websocket.Bridge = (*RedisBridge)(nil)

// NewRedisBridge connects to redis and returns a bridge publishing on the
// configured channel. It waits briefly for redis to come up, so the gateway
// can be started before its broker.
func NewRedisBridge(opts *RedisOptions) (*RedisBridge, error) {
	client, err := newRedisClient(opts)
	if err != nil {
		return nil, err
	}
	err = retry.RetryWithTimeout(context.TODO(), pingRetryInterval, pingTimeout, func() error {
		if e := client.Ping().Err(); e != nil {
			return errors.Wrapf(retry.RetryableErr, "ping redis error: %v", e)
		}

		return nil
	})
	if err != nil {
		_ = client.Close()

		return nil, errors.Wrap(err, "connect redis")
	}

	return &RedisBridge{
		opts:       opts,
		instanceID: uuid.New().String(),
		client:     client,
		done:       make(chan struct{}),
	}, nil
}

// newRedisClient creates a redis client matching the deployment shape:
// sentinel backed failover, cluster, or a single node.
func newRedisClient(opts *RedisOptions) (redis.UniversalClient, error) {
	tlsConfig, err := opts.loadTLSConfig()
	if err != nil {
		return nil, err
	}

	universalOpts := &redis.UniversalOptions{
		Addrs:      opts.Addrs,
		MasterName: opts.MasterName,
		Username:   opts.Username,
		Password:   opts.Password,
		DB:         opts.Database,

		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.RequestTimeout,
		WriteTimeout: opts.RequestTimeout,
		TLSConfig:    tlsConfig,
	}

	var client redis.UniversalClient
	if opts.MasterName != "" {
		log.Debug("--> [REDIS] Creating sentinel-backed failover client")
		client = redis.NewFailoverClient(universalOpts.Failover())
	} else if opts.EnableCluster {
		log.Debug("--> [REDIS] Creating cluster client")
		client = redis.NewClusterClient(universalOpts.Cluster())
	} else {
		log.Debug("--> [REDIS] Creating single-node client")
		client = redis.NewClient(universalOpts.Simple())
	}

	return client, nil
}

// Start subscribes to the shared channel and consumes bridged frames until
// Stop is called.
func (b *RedisBridge) Start(ctx context.Context, handler websocket.BridgeHandler) error {
	b.pubsub = b.client.Subscribe(b.opts.Channel)
	// Wait for the subscription confirmation before consuming.
	if _, err := b.pubsub.Receive(); err != nil {
		return errors.Wrapf(err, "subscribe channel %s", b.opts.Channel)
	}
	b.available.Store(true)
	go b.consume(handler)
	log.Infow("Redis bridge started", "channel", b.opts.Channel, "instance_id", b.instanceID)

	return nil
}

func (b *RedisBridge) consume(handler websocket.BridgeHandler) {
	defer close(b.done)

	for msg := range b.pubsub.Channel() {
		deliver(b.instanceID, []byte(msg.Payload), handler)
	}
}

// Publish wraps the message in an instance envelope and publishes it on the
// shared channel.
func (b *RedisBridge) Publish(ctx context.Context, channel string, data []byte) error {
	payload, err := encodeEnvelope(b.instanceID, channel, data)
	if err != nil {
		return err
	}

	return b.client.Publish(b.opts.Channel, payload).Err()
}

// Stop closes the subscription and the client.
func (b *RedisBridge) Stop() error {
	b.available.Store(false)
	if b.pubsub != nil {
		if err := b.pubsub.Close(); err != nil {
			return err
		}
		<-b.done
	}

	return b.client.Close()
}

// Available reports whether the bridge consumes and accepts messages.
func (b *RedisBridge) Available() bool {
	return b.available.Load()
}
