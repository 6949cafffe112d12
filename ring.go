// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

// ring is the bounded FIFO slot buffer of a buffered channel.
//
// Lamport-style head/tail counters over a slice of exactly the requested
// capacity. Indices grow monotonically and wrap by modulo, so capacity need
// not be a power of 2. Not safe for concurrent use: the channel mutex
// serializes every access.
type ring[T any] struct {
	head   uint64 // next slot to read
	tail   uint64 // next slot to write
	buffer []T
}

func newRing[T any](capacity int) ring[T] {
	return ring[T]{buffer: make([]T, capacity)}
}

func (r *ring[T]) len() int {
	return int(r.tail - r.head)
}

func (r *ring[T]) cap() int {
	return len(r.buffer)
}

func (r *ring[T]) full() bool {
	return r.len() == len(r.buffer)
}

// push copies elem into the next free slot. The caller checks full first.
func (r *ring[T]) push(elem T) {
	r.buffer[r.tail%uint64(len(r.buffer))] = elem
	r.tail++
}

// pop removes the oldest element. The slot is cleared to allow garbage
// collection of referenced objects. The caller checks len first.
func (r *ring[T]) pop() T {
	i := r.head % uint64(len(r.buffer))
	elem := r.buffer[i]
	var zero T
	r.buffer[i] = zero
	r.head++
	return elem
}
