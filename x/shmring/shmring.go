// Package shmring is a fixed-size single-producer, single-consumer ring of
// values. Indices are monotonic and masked on access, so the size must be a
// power of two.
package shmring

import "sync/atomic"

// Ring holds up to Cap values of T.
type Ring[T any] struct {
	buf  []T
	mask uint32
	rd   atomic.Uint32 // consumer index (monotonic)
	wr   atomic.Uint32 // producer index (monotonic)
}

// New returns an empty ring. size must be a power of two >= 2.
func New[T any](size int) *Ring[T] {
	if size < 2 || (size&(size-1)) != 0 {
		panic("shmring: size must be power of two >= 2")
	}
	return &Ring[T]{buf: make([]T, size), mask: uint32(size - 1)}
}

// SizeFor rounds n up to a valid ring size.
func SizeFor(n int) int {
	s := 2
	for s < n {
		s <<= 1
	}
	return s
}

func (r *Ring[T]) Cap() int { return len(r.buf) }

// Len is the number of values waiting to be read.
func (r *Ring[T]) Len() int {
	return int(r.wr.Load() - r.rd.Load())
}

// Producer side

// TryWrite appends v, or reports false when the ring is full.
func (r *Ring[T]) TryWrite(v T) bool {
	rd := r.rd.Load()
	wr := r.wr.Load()
	if int(wr-rd) >= len(r.buf) {
		return false
	}
	r.buf[wr&r.mask] = v
	r.wr.Store(wr + 1) // release
	return true
}

// Consumer side

// TryRead removes the oldest value.
func (r *Ring[T]) TryRead() (T, bool) {
	var zero T
	rd := r.rd.Load()
	wr := r.wr.Load() // acquire
	if wr == rd {
		return zero, false
	}
	v := r.buf[rd&r.mask]
	r.buf[rd&r.mask] = zero
	r.rd.Store(rd + 1) // release
	return v, true
}

// Peek returns the oldest value without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	var zero T
	rd := r.rd.Load()
	if r.wr.Load() == rd {
		return zero, false
	}
	return r.buf[rd&r.mask], true
}

func (r *Ring[T]) Watermarks() (rd, wr uint32) {
	return r.rd.Load(), r.wr.Load()
}
