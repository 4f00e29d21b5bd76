// Copyright 2023 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package set implements a generic set container.
package set

import (
	"golang.org/x/exp/maps"
)

var empty = struct{}{}

// Set is a container of unique comparable items.
type Set[T comparable] interface {
	// Add adds an item into the set.
	Add(item T)
	// Remove removes an item from the set. It is a no-op if the item is not
	// in the set.
	Remove(item T)
	// Contains returns whether the item is in the set.
	Contains(item T) bool
	// Size returns the count of items in the set.
	Size() int
	// Empty returns whether the set is empty.
	Empty() bool
	// Items returns all items in the set, in no particular order.
	Items() []T
}

// New creates a new Set with the given items.
func New[T comparable](items ...T) Set[T] {
	s := &mapSet[T]{
		m: make(map[T]struct{}, len(items)),
	}
	for _, item := range items {
		s.m[item] = empty
	}

	return s
}

type mapSet[T comparable] struct {
	m map[T]struct{}
}

func (s *mapSet[T]) Add(item T) {
	s.m[item] = empty
}

func (s *mapSet[T]) Remove(item T) {
	delete(s.m, item)
}

func (s *mapSet[T]) Contains(item T) bool {
	_, ok := s.m[item]

	return ok
}

func (s *mapSet[T]) Size() int {
	return len(s.m)
}

func (s *mapSet[T]) Empty() bool {
	return len(s.m) == 0
}

func (s *mapSet[T]) Items() []T {
	return maps.Keys(s.m)
}
