// Copyright 2024 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package kafka

import (
	"context"
	"math/rand"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/wangtaoking1/realtime/utils"
)

// ConsumeQueue buffers fetched messages and hands them to the handler on a
// set of workers.
type ConsumeQueue interface {
	Run(ctx context.Context)
	Add(ctx context.Context, seqID int64, msg *kafka.Message)
}

type queueHandler func(ctx context.Context, seqID int64, msg *kafka.Message)

type queueItem struct {
	seqID int64
	msg   *kafka.Message
}

func consumeItems(ctx context.Context, ch <-chan *queueItem, handler queueHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-ch:
			handler(ctx, it.seqID, it.msg)
		}
	}
}

// unorderedQueue delivers messages to any free worker, order is not kept.
type unorderedQueue struct {
	workerCount int
	inQ         chan *queueItem
	handler     queueHandler
}

var _ ConsumeQueue = (*unorderedQueue)(nil)

func newUnorderedQueue(cacheSize, workerCount int, handler queueHandler) *unorderedQueue {
	return &unorderedQueue{
		workerCount: workerCount,
		inQ:         make(chan *queueItem, cacheSize*workerCount),
		handler:     handler,
	}
}

func (q *unorderedQueue) Add(ctx context.Context, seqID int64, msg *kafka.Message) {
	select {
	case <-ctx.Done():
	case q.inQ <- &queueItem{seqID: seqID, msg: msg}:
	}
}

func (q *unorderedQueue) Run(ctx context.Context) {
	wg := sync.WaitGroup{}
	wg.Add(q.workerCount)
	for i := 0; i < q.workerCount; i++ {
		go func() {
			defer wg.Done()
			consumeItems(ctx, q.inQ, q.handler)
		}()
	}
	wg.Wait()
}

// orderedQueue delivers messages with the same key to the same worker, so
// messages of one key are handled in fetch order.
type orderedQueue struct {
	workerCount int
	inQ         chan *queueItem
	workerQs    []chan *queueItem
	handler     queueHandler
}

var _ ConsumeQueue = (*orderedQueue)(nil)

func newOrderedQueue(cacheSize, workerCount int, handler queueHandler) *orderedQueue {
	workerQs := make([]chan *queueItem, workerCount)
	for i := range workerQs {
		workerQs[i] = make(chan *queueItem, cacheSize)
	}

	return &orderedQueue{
		workerCount: workerCount,
		inQ:         make(chan *queueItem, cacheSize),
		workerQs:    workerQs,
		handler:     handler,
	}
}

func (q *orderedQueue) Add(ctx context.Context, seqID int64, msg *kafka.Message) {
	select {
	case <-ctx.Done():
	case q.inQ <- &queueItem{seqID: seqID, msg: msg}:
	}
}

func (q *orderedQueue) Run(ctx context.Context) {
	wg := sync.WaitGroup{}
	wg.Add(q.workerCount + 1)
	go func() {
		defer wg.Done()
		q.dispatch(ctx)
	}()
	for i := 0; i < q.workerCount; i++ {
		i := i
		go func() {
			defer wg.Done()
			consumeItems(ctx, q.workerQs[i], q.handler)
		}()
	}
	wg.Wait()
}

// dispatch routes messages from the in queue to the worker selected by the
// message key.
func (q *orderedQueue) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-q.inQ:
			idx := q.hashByKey(string(it.msg.Key), q.workerCount)
			select {
			case <-ctx.Done():
				return
			case q.workerQs[idx] <- it:
			}
		}
	}
}

func (q *orderedQueue) hashByKey(key string, cnt int) int {
	if key == "" {
		return rand.Intn(cnt) //nolint:gosec
	}

	return int(utils.StringHash(key) % uint32(cnt))
}
