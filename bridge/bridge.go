// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package bridge relays published channel messages between realtime server
// instances, over redis pub/sub or a kafka topic. Subscribers connected to
// one instance receive events published on any other.
package bridge

import (
	"encoding/json"

	"github.com/buger/jsonparser"

	"github.com/wangtaoking1/realtime/errors"
	"github.com/wangtaoking1/realtime/log"
	"github.com/wangtaoking1/realtime/websocket"
)

// envelope is the frame exchanged between instances. The instance id lets
// the publishing instance skip its own frames, the inner message stays
// encoded until it reaches a local subscriber.
type envelope struct {
	InstanceID string          `json:"instance_id"`
	Channel    string          `json:"channel"`
	Message    json.RawMessage `json:"message"`
}

func encodeEnvelope(instanceID, channel string, message []byte) ([]byte, error) {
	data, err := json.Marshal(&envelope{
		InstanceID: instanceID,
		Channel:    channel,
		Message:    message,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode bridge envelope")
	}

	return data, nil
}

// decodeEnvelope extracts the envelope fields without decoding the inner
// message.
func decodeEnvelope(data []byte) (*envelope, error) {
	instanceID, err := jsonparser.GetString(data, "instance_id")
	if err != nil {
		return nil, errors.Wrap(err, "missing instance_id")
	}
	channel, err := jsonparser.GetString(data, "channel")
	if err != nil {
		return nil, errors.Wrap(err, "missing channel")
	}
	message, _, _, err := jsonparser.Get(data, "message")
	if err != nil {
		return nil, errors.Wrap(err, "missing message")
	}

	return &envelope{InstanceID: instanceID, Channel: channel, Message: message}, nil
}

// deliver hands one bridged frame to handler. Frames published by this
// instance are skipped, malformed frames are logged and dropped.
func deliver(instanceID string, data []byte, handler websocket.BridgeHandler) {
	env, err := decodeEnvelope(data)
	if err != nil {
		log.Errorw("Drop malformed bridged message", "error", err)

		return
	}
	if env.InstanceID == instanceID {
		return
	}
	handler(env.Channel, env.Message)
}
