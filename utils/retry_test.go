// Copyright 2023 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package utils

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestLimitRetry(t *testing.T) {
	result := 0
	err := LimitRetry(3, 1*time.Millisecond, func() error {
		result++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, result)
}

func TestLimitRetry_Error(t *testing.T) {
	result := 0
	err := LimitRetry(3, 1*time.Millisecond, func() error {
		result++
		return fmt.Errorf("err")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, result)
}

func TestLimitRetry_NotRetryErr(t *testing.T) {
	result := 0
	err := LimitRetry(3, 1*time.Millisecond, func() error {
		result++
		return errors.Wrap(NotRetryErr, "err")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, result)
}

func TestLimitlessRetry(t *testing.T) {
	result := 0
	err := LimitlessRetry(1*time.Millisecond, func() error {
		result++
		if result < 5 {
			return fmt.Errorf("err")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 5, result)
}

func TestLimitlessRetry_NotRetryErr(t *testing.T) {
	result := 0
	err := LimitlessRetry(1*time.Millisecond, func() error {
		result++
		return errors.Wrap(NotRetryErr, "err")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, result)
}

func TestFastSlowRetry(t *testing.T) {
	result := 0
	err := FastSlowRetry(2, 1*time.Millisecond, 1*time.Millisecond, func() error {
		result++
		if result < 5 {
			return fmt.Errorf("err")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 5, result)
}

func TestFastSlowRetry_FastSuccess(t *testing.T) {
	result := 0
	err := FastSlowRetry(3, 1*time.Millisecond, 1*time.Hour, func() error {
		result++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, result)
}
