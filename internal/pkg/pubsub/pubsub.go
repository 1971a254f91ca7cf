// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package pubsub provides a typed, synchronous publish/subscribe topic.
package pubsub

import "sync"

// Topic delivers published values of type T to its subscribers.
//
// Delivery is synchronous and in subscription order. Handlers may subscribe
// or unsubscribe from within a handler; such changes apply to the next Publish.
type Topic[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription[T]
}

// NewTopic returns a new empty Topic.
func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{}
}

// Subscribe registers handler and returns a function that removes it.
//
// The returned function is idempotent.
func (t *Topic[T]) Subscribe(handler func(T)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.subs = append(t.subs, subscription[T]{id: id, handler: handler})
	return func() {
		t.unsubscribe(id)
	}
}

// Publish delivers value to every current subscriber.
func (t *Topic[T]) Publish(value T) {
	// Snapshot so handlers run without the lock held.
	t.mu.Lock()
	subs := make([]subscription[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()
	for _, sub := range subs {
		sub.handler(value)
	}
}

// Len returns the number of current subscribers.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// *** PRIVATE ***

type subscription[T any] struct {
	id      uint64
	handler func(T)
}

func (t *Topic[T]) unsubscribe(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, sub := range t.subs {
		if sub.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}
