// Copyright 2023 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wangtaoking1/realtime/errors"
)

func TestRetryWithTimeout(t *testing.T) {
	c := 0
	err := RetryWithTimeout(context.Background(), 10*time.Millisecond, 35*time.Millisecond, func() error {
		c++
		return errors.WithMessage(RetryableErr, "error")
	})
	assert.ErrorIs(t, err, TimeoutErr)
	assert.Equal(t, 3, c)
}

func TestRetryWithTimeout_Success(t *testing.T) {
	c := 0
	err := RetryWithTimeout(context.Background(), 1*time.Millisecond, 0, func() error {
		c++
		if c < 3 {
			return errors.WithMessage(RetryableErr, "error")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, c)
}

func TestRetryWithTimeout_NotRetryable(t *testing.T) {
	c := 0
	err := RetryWithTimeout(context.Background(), 1*time.Millisecond, time.Second, func() error {
		c++
		return errors.New("fatal")
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, TimeoutErr)
	assert.Equal(t, 1, c)
}

func TestRetryWithTimeout_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithTimeout(ctx, 10*time.Millisecond, time.Second, func() error {
		return errors.WithMessage(RetryableErr, "error")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
