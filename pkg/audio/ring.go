package audio

import "sync/atomic"

// Ring is a lock-free single-producer/single-consumer ring buffer. Only one
// goroutine may call Push and only one (possibly different) goroutine may
// call Pop at a time; mixing producers or mixing consumers is undefined.
type Ring[T any] struct {
	buf      []T
	mask     uint64
	writeIdx atomic.Uint64
	readIdx  atomic.Uint64
}

// NewRing allocates a ring buffer whose capacity is the next power of two
// greater than or equal to size.
func NewRing[T any](size int) *Ring[T] {
	c := 1
	for c < size {
		c <<= 1
	}
	return &Ring[T]{
		buf:  make([]T, c),
		mask: uint64(c - 1),
	}
}

// Push stores v, overwriting the oldest unread element if the ring is full.
// Returns false when an overwrite occurred.
func (r *Ring[T]) Push(v T) bool {
	w := r.writeIdx.Load()
	read := r.readIdx.Load()
	full := w-read >= uint64(len(r.buf))
	r.buf[w&r.mask] = v
	r.writeIdx.Store(w + 1)
	if full {
		r.readIdx.Store(r.readIdx.Load() + 1)
		return false
	}
	return true
}

// Pop removes and returns the oldest element. ok is false if the ring is
// empty.
func (r *Ring[T]) Pop() (v T, ok bool) {
	read := r.readIdx.Load()
	w := r.writeIdx.Load()
	if read >= w {
		return v, false
	}
	v = r.buf[read&r.mask]
	r.readIdx.Store(read + 1)
	return v, true
}

// Len reports the number of unread elements.
func (r *Ring[T]) Len() int {
	return int(r.writeIdx.Load() - r.readIdx.Load())
}
