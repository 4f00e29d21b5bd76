// Copyright 2023 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package utils

import (
	"time"

	"github.com/pkg/errors"
)

// NotRetryErr is an error that should not retry.
var NotRetryErr = errors.New("not retry error")

// Retry try exec a function with limit times.
//
// Deprecated: use LimitRetry instead.
func Retry(retryLimit int, interval time.Duration, f func() error) error {
	return LimitRetry(retryLimit, interval, f)
}

// LimitRetry try exec a function with limit times.
func LimitRetry(retryLimit int, interval time.Duration, f func() error) error {
	var err error
	for i := 0; i < retryLimit; i++ {
		err = f()
		if err == nil {
			return nil
		}
		if errors.Is(err, NotRetryErr) {
			return err
		}
		time.Sleep(interval)
	}
	return err
}

// LimitlessRetry try exec a function endlessly until success or a not retry
// error is returned.
func LimitlessRetry(interval time.Duration, f func() error) error {
	for {
		err := f()
		if err == nil {
			return nil
		}
		if errors.Is(err, NotRetryErr) {
			return err
		}
		time.Sleep(interval)
	}
}

// FastSlowRetry try exec a function with fast interval in the first fastLimit
// times, then endlessly with slow interval.
func FastSlowRetry(fastLimit int, fastInterval, slowInterval time.Duration, f func() error) error {
	var err error
	for i := 0; i < fastLimit; i++ {
		err = f()
		if err == nil {
			return nil
		}
		if errors.Is(err, NotRetryErr) {
			return err
		}
		time.Sleep(fastInterval)
	}
	return LimitlessRetry(slowInterval, f)
}
