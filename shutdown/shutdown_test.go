// Copyright 2023 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package shutdown

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTrigger struct {
	after bool
}

var _ Trigger = (*fakeTrigger)(nil)

func (f *fakeTrigger) GetName() string {
	return "fake"
}

func (f *fakeTrigger) Start(executor Executor) error {
	executor.Execute(f)

	return nil
}

func (f *fakeTrigger) After() {
	f.after = true
}

func TestShutdown_CallbackCalled(t *testing.T) {
	c := make(chan int, 10)
	gs := New(&fakeTrigger{})
	for i := 0; i < 10; i++ {
		gs.AddCallback(CallbackFunc(func(name string) error {
			c <- 1

			return nil
		}))
	}

	_ = gs.Start()

	assert.Equal(t, 10, len(c), "callback not be called")
}

func TestShutdown_TriggerName(t *testing.T) {
	var got string
	gs := New(&fakeTrigger{})
	gs.AddCallback(CallbackFunc(func(name string) error {
		got = name

		return nil
	}))

	_ = gs.Start()
	assert.Equal(t, "fake", got)
}

func TestShutdown_AfterCalled(t *testing.T) {
	trigger := &fakeTrigger{}
	gs := New(trigger)
	gs.AddCallback(CallbackFunc(func(name string) error {
		return nil
	}))

	_ = gs.Start()
	assert.True(t, trigger.after, "trigger After not be called")
}

func TestShutdown_HandleError(t *testing.T) {
	c := make(chan int, 1)
	gs := New(&fakeTrigger{})
	gs.SetErrorHandler(ErrorFunc(func(err error) {
		c <- 1
	}))
	gs.AddCallback(CallbackFunc(func(name string) error {
		return fmt.Errorf("error")
	}))

	_ = gs.Start()
	assert.Equal(t, 1, len(c), "error handler not be called")
}
