package app

import "sync"

// Ledger is an append-only list that keeps the most recent cap entries.
// It is safe for concurrent use.
type Ledger[T any] struct {
	mu    sync.RWMutex
	items []T
	cap   int
	total uint64
}

// NewLedger creates a ledger holding at most capacity entries.
func NewLedger[T any](capacity int) *Ledger[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ledger[T]{items: make([]T, 0, capacity), cap: capacity}
}

// Append adds all items in one step: readers never observe a prefix of them.
// When over capacity the oldest entries are evicted.
func (l *Ledger[T]) Append(items ...T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, items...)
	l.total += uint64(len(items))

	if over := len(l.items) - l.cap; over > 0 {
		n := copy(l.items, l.items[over:])
		clear(l.items[n:])
		l.items = l.items[:n]
	}
}

// Items returns a copy, oldest first.
func (l *Ledger[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Recent returns up to n newest entries, newest first.
func (l *Ledger[T]) Recent(n int) []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.items) {
		n = len(l.items)
	}
	out := make([]T, 0, max(n, 0))
	for i := len(l.items) - 1; i >= len(l.items)-n; i-- {
		out = append(out, l.items[i])
	}
	return out
}

// Len returns the number of retained entries.
func (l *Ledger[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Total returns the number of entries ever appended.
func (l *Ledger[T]) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
