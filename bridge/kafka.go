// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/spf13/pflag"

	"github.com/wangtaoking1/realtime/kafka"
	"github.com/wangtaoking1/realtime/log"
	"github.com/wangtaoking1/realtime/websocket"
)

// KafkaOptions defines options for the kafka bridge.
type KafkaOptions struct {
	Brokers string `json:"brokers"  mapstructure:"brokers"`
	Topic   string `json:"topic"    mapstructure:"topic"`
	// GroupID is the consumer group used by this instance. Leave empty to
	// generate a per instance group, which every deployment with more than
	// one instance needs: instances sharing a group would split the topic
	// between them instead of each receiving every event.
	GroupID string `json:"group-id" mapstructure:"group-id"`
}

// NewKafkaOptions create a new kafka bridge options instance.
func NewKafkaOptions() *KafkaOptions {
	return &KafkaOptions{
		Brokers: "127.0.0.1:9092",
		Topic:   "realtime.events",
		GroupID: "",
	}
}

// Validate verifies flags passed to KafkaOptions.
func (o *KafkaOptions) Validate() []error {
	var errs []error
	if o.Brokers == "" {
		errs = append(errs, fmt.Errorf("kafka brokers can not be empty"))
	}
	if o.Topic == "" {
		errs = append(errs, fmt.Errorf("--kafka.topic can not be empty"))
	}

	return errs
}

// AddFlags adds flags related to the kafka bridge to the specified FlagSet.
func (o *KafkaOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Brokers, "kafka.brokers", o.Brokers, "A comma separated list of kafka brokers.")
	fs.StringVar(&o.Topic, "kafka.topic", o.Topic, "The topic shared by the realtime server instances.")
	fs.StringVar(&o.GroupID, "kafka.group-id", o.GroupID,
		"The consumer group of this instance, generated per instance when empty.")
}

// KafkaBridge relays channel messages between instances over a shared kafka
// topic. Events published by backend workers on the same topic reach local
// subscribers the same way.
type KafkaBridge struct {
	opts       *KafkaOptions
	instanceID string

	producer kafka.Producer

	available atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
}

var _ websocket.Bridge = (*KafkaBridge)(nil)

// NewKafkaBridge creates a bridge producing to and consuming from the
// configured topic.
func NewKafkaBridge(opts *KafkaOptions) (*KafkaBridge, error) {
	// Hash by key so messages of one channel stay on one partition.
	producer, err := kafka.NewProducerWithOptions(opts.Brokers, opts.Topic, &kafka.ProducerOptions{
		Balancer: &kafkago.Hash{},
	})
	if err != nil {
		return nil, err
	}

	return &KafkaBridge{
		opts:       opts,
		instanceID: uuid.New().String(),
		producer:   producer,
		done:       make(chan struct{}),
	}, nil
}

// Start begins consuming the topic until Stop is called.
func (b *KafkaBridge) Start(ctx context.Context, handler websocket.BridgeHandler) error {
	groupID := b.opts.GroupID
	if groupID == "" {
		groupID = "realtime-" + b.instanceID
	}
	consumer, err := kafka.NewConsumerWithOptions(b.opts.Brokers, b.opts.Topic, groupID,
		func(ctx context.Context, msg *kafka.Message) error {
			deliver(b.instanceID, msg.Value, handler)

			return nil
		},
		&kafka.ConsumerOptions{OrderedMode: true},
	)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	go func() {
		defer close(b.done)
		consumer.Run(runCtx)
	}()
	b.available.Store(true)
	log.Infow("Kafka bridge started", "topic", b.opts.Topic, "group_id", groupID,
		"instance_id", b.instanceID)

	return nil
}

// Publish wraps the message in an instance envelope and produces it on the
// shared topic, keyed by channel to keep per channel ordering.
func (b *KafkaBridge) Publish(ctx context.Context, channel string, data []byte) error {
	payload, err := encodeEnvelope(b.instanceID, channel, data)
	if err != nil {
		return err
	}

	return b.producer.SendMessage(ctx, kafka.Message{Key: channel, Value: payload})
}

// Stop stops the consumer and closes the producer.
func (b *KafkaBridge) Stop() error {
	b.available.Store(false)
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
	b.producer.Close()

	return nil
}

// Available reports whether the bridge consumes and accepts messages.
func (b *KafkaBridge) Available() bool {
	return b.available.Load()
}
