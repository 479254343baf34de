// Package rolling provides a fixed-capacity, newest-first ring buffer. It
// backs the rolling log view: single pushed log lines are folded in at the
// front and the oldest line falls off once the buffer is full.
package rolling

import "errors"

// ErrCapacity is returned by New when the requested capacity is not positive.
var ErrCapacity = errors.New("rolling: capacity must be > 0")

// Buffer holds at most Cap elements, newest first. It is not safe for
// concurrent use; callers own the synchronization.
type Buffer[T any] struct {
	items []T
	start int // index of the logical front (newest element)
	size  int
}

// New allocates a buffer with a fixed backing store of the given capacity.
func New[T any](capacity int) (*Buffer[T], error) {
	if capacity <= 0 {
		return nil, ErrCapacity
	}
	return &Buffer[T]{items: make([]T, capacity)}, nil
}

// Len reports the number of stored elements.
func (b *Buffer[T]) Len() int { return b.size }

// Cap reports the fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.items) }

// Full reports whether the next Unshift evicts the oldest element.
func (b *Buffer[T]) Full() bool { return b.size == len(b.items) }

// Unshift inserts item at the front, overwriting the oldest element when
// the buffer is at capacity.
func (b *Buffer[T]) Unshift(item T) {
	n := len(b.items)
	b.start = (b.start - 1 + n) % n
	b.items[b.start] = item
	if b.size < n {
		b.size++
	}
}

// Get returns the i-th newest element. The second result is false when i is
// outside the populated range.
func (b *Buffer[T]) Get(i int) (T, bool) {
	if i < 0 || i >= b.size {
		var zero T
		return zero, false
	}
	return b.items[(b.start+i)%len(b.items)], true
}

// ToSlice returns a newest-first copy of the stored elements.
func (b *Buffer[T]) ToSlice() []T {
	out := make([]T, 0, b.size)
	for i := 0; i < b.size; i++ {
		v, _ := b.Get(i)
		out = append(out, v)
	}
	return out
}

// Reset drops every element. The backing store is kept.
func (b *Buffer[T]) Reset() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.start = 0
	b.size = 0
}
