// Package pubsub fans values out to subscribers without ever blocking the publisher.
package pubsub

import (
	"sync"
	"sync/atomic"
)

// Hub broadcasts values of type T. A subscriber that falls behind loses the
// oldest pending value, so it always catches up to the latest state.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]chan T
	nextID uint64
	closed bool

	dropped atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uint64]chan T)}
}

// Subscribe registers a subscriber with the given buffer (minimum 1).
// The returned cancel func is idempotent and closes the channel.
func (h *Hub[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan T, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers v to every subscriber.
func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- v:
			continue
		default:
		}

		// Full: evict the oldest pending value and retry once.
		select {
		case <-ch:
			h.dropped.Add(1)
		default:
		}
		select {
		case ch <- v:
		default:
			h.dropped.Add(1)
		}
	}
}

// Len returns the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many values were discarded for slow subscribers.
func (h *Hub[T]) Dropped() uint64 {
	return h.dropped.Load()
}

// Close closes every subscriber channel. Later subscribers get a closed channel.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
