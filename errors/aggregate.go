// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package errors

// Aggregate represents an object that contains multiple errors, but does not
// necessarily have singular semantic meaning.
type Aggregate interface {
	error

	// Errors returns the flat list of contained errors.
	Errors() []error
	// Is reports whether any contained error matches target.
	Is(target error) bool
}

// NewAggregate converts a slice of errors into an Aggregate. Nil errors are
// dropped, and nil is returned if the resulting list is empty.
func NewAggregate(errlist []error) Aggregate {
	if len(errlist) == 0 {
		return nil
	}
	var errs []error
	for _, e := range errlist {
		if e != nil {
			errs = append(errs, e)
		}
	}
	if len(errs) == 0 {
		return nil
	}

	return aggregate(errs)
}

type aggregate []error

func (agg aggregate) Error() string {
	if len(agg) == 1 {
		return agg[0].Error()
	}
	seen := make(map[string]bool, len(agg))
	msg := "["
	for _, e := range agg {
		if seen[e.Error()] {
			continue
		}
		if len(seen) > 0 {
			msg += ", "
		}
		seen[e.Error()] = true
		msg += e.Error()
	}
	msg += "]"

	return msg
}

func (agg aggregate) Errors() []error {
	return agg
}

func (agg aggregate) Is(target error) bool {
	for _, e := range agg {
		if Is(e, target) {
			return true
		}
	}

	return false
}
