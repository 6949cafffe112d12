// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

import (
	"sync"

	"code.hybscloud.com/atomix"
	"github.com/sirupsen/logrus"
)

// chanSeq hands out channel identities; Select locks channels in id order.
var chanSeq atomix.Uint64

// opStatus is the outcome of a send or receive attempted under the lock.
type opStatus uint8

const (
	opDone opStatus = iota
	opClosed
	opWouldBlock
)

// chanCore is the element-type independent part of a channel:
// identity, lock and configuration.
type chanCore struct {
	id    uint64
	mu    sync.Mutex
	name  string
	spins int
}

// Chan is a typed channel with optional buffering.
//
// An unbuffered channel (capacity 0) is a rendezvous: Send completes only
// when a receiver takes the value directly. A buffered channel holds up to
// capacity values in FIFO order and parks senders only when full.
//
// Parked senders and parked receivers are each served strictly in the order
// they parked. Parked goroutines block on their own condition variable,
// never on the channel mutex, and are woken after the mutex is released.
//
// Example:
//
//	ch := csp.NewChan[int](0)
//	go func() {
//	    for i := range 3 {
//	        ch.Send(i)
//	    }
//	    ch.Close()
//	}()
//	for {
//	    v, ok := ch.Recv()
//	    if !ok {
//	        break // closed and drained
//	    }
//	    fmt.Println(v)
//	}
type Chan[T any] struct {
	chanCore
	buf    ring[T]
	closed bool
	sendq  waitq[T]
	recvq  waitq[T]
}

// NewChan creates a channel with the given buffer capacity.
// Capacity 0 creates an unbuffered channel. Panics if capacity < 0.
func NewChan[T any](capacity int) *Chan[T] {
	return newChan[T](Options{capacity: capacity})
}

func newChan[T any](opts Options) *Chan[T] {
	if opts.capacity < 0 {
		fatal("csp: capacity must be >= 0", logrus.Fields{"cap": opts.capacity})
	}
	c := &Chan[T]{buf: newRing[T](opts.capacity)}
	c.id = chanSeq.AddAcqRel(1)
	c.name = opts.name
	c.spins = opts.spins
	return c
}

// Send delivers v, parking until a receiver takes it or buffer space
// frees up.
//
// Returns [ErrClosed] if the channel is closed, without blocking. A sender
// parked when the channel gets closed also returns [ErrClosed]; its value
// is not delivered.
func (c *Chan[T]) Send(v T) error {
	if c == nil {
		fatal("csp: send on nil channel blocks forever", nil)
	}
	c.mu.Lock()
	st, p := c.sendLocked(v)
	if st != opWouldBlock {
		c.mu.Unlock()
		if p != nil {
			p.unpark()
		}
		if st == opClosed {
			return ErrClosed
		}
		return nil
	}

	p = newParker(c.spins)
	w := &waiter[T]{p: p, elem: v}
	c.sendq.enqueue(w)
	c.mu.Unlock()

	p.park()
	if !w.success {
		return ErrClosed
	}
	return nil
}

// TrySend delivers v only if it can do so without parking.
// Returns nil on success, [ErrWouldBlock] if no receiver is parked and the
// buffer is full, or [ErrClosed] if the channel is closed.
func (c *Chan[T]) TrySend(v T) error {
	if c == nil {
		return ErrWouldBlock
	}
	c.mu.Lock()
	st, p := c.sendLocked(v)
	c.mu.Unlock()
	if p != nil {
		p.unpark()
	}
	switch st {
	case opClosed:
		return ErrClosed
	case opWouldBlock:
		return ErrWouldBlock
	}
	return nil
}

// Recv takes the next value, parking until one is available.
//
// Buffered values are returned before closure is observed. Once the channel
// is closed and drained, Recv returns (zero-value, false) immediately.
func (c *Chan[T]) Recv() (T, bool) {
	if c == nil {
		fatal("csp: receive from nil channel blocks forever", nil)
	}
	c.mu.Lock()
	v, st, p := c.recvLocked()
	if st != opWouldBlock {
		c.mu.Unlock()
		if p != nil {
			p.unpark()
		}
		return v, st == opDone
	}

	p = newParker(c.spins)
	w := &waiter[T]{p: p}
	c.recvq.enqueue(w)
	c.mu.Unlock()

	p.park()
	return w.elem, w.success
}

// TryRecv takes the next value only if it can do so without parking.
//
// Returns (v, true, nil) on success, (zero-value, false, nil) if the channel
// is closed and drained, or (zero-value, false, ErrWouldBlock) otherwise.
func (c *Chan[T]) TryRecv() (T, bool, error) {
	if c == nil {
		var zero T
		return zero, false, ErrWouldBlock
	}
	c.mu.Lock()
	v, st, p := c.recvLocked()
	c.mu.Unlock()
	if p != nil {
		p.unpark()
	}
	if st == opWouldBlock {
		return v, false, ErrWouldBlock
	}
	return v, st == opDone, nil
}

// Close marks the channel closed and wakes every parked sender and
// receiver. Receivers still drain buffered values afterwards.
//
// Closing a closed channel is a programming error and panics.
func (c *Chan[T]) Close() {
	if c == nil {
		fatal("csp: close of nil channel", nil)
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fatal("csp: close of closed channel", logrus.Fields{"chan": c.label(), "cap": c.buf.cap()})
	}
	c.closed = true

	var wake []*parker
	var zero T
	for w := c.recvq.dequeue(); w != nil; w = c.recvq.dequeue() {
		w.elem = zero
		w.success = false
		wake = append(wake, w.p)
	}
	for w := c.sendq.dequeue(); w != nil; w = c.sendq.dequeue() {
		w.success = false
		wake = append(wake, w.p)
	}
	c.mu.Unlock()

	for _, p := range wake {
		p.unpark()
	}
}

// Len returns the number of buffered values.
func (c *Chan[T]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.len()
}

// Cap returns the buffer capacity.
func (c *Chan[T]) Cap() int {
	if c == nil {
		return 0
	}
	return c.buf.cap()
}

// Closed reports whether Close has been called.
func (c *Chan[T]) Closed() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Waiting returns the number of waiters linked into the send and receive
// queues. A select that already fired may stay linked until it unlinks
// itself, so the counts are diagnostics, not a synchronization signal.
func (c *Chan[T]) Waiting() (senders, receivers int) {
	if c == nil {
		return 0, 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendq.len(), c.recvq.len()
}

// Name returns the diagnostic name set through [Builder.Name].
func (c *Chan[T]) Name() string {
	return c.name
}

// RecvOnly returns a receive-only view of c.
func (c *Chan[T]) RecvOnly() RecvOnly[T] {
	return RecvOnly[T]{c: c}
}

func (c *Chan[T]) label() string {
	if c.name != "" {
		return c.name
	}
	return "anonymous"
}

// sendLocked attempts a send without parking. On opDone it may return the
// parker of the receiver that took v; the caller unparks it after
// releasing the lock.
func (c *Chan[T]) sendLocked(v T) (opStatus, *parker) {
	if c.closed {
		return opClosed, nil
	}
	if r := c.recvq.dequeue(); r != nil {
		r.elem = v
		r.success = true
		return opDone, r.p
	}
	if !c.buf.full() {
		c.buf.push(v)
		return opDone, nil
	}
	return opWouldBlock, nil
}

// recvLocked attempts a receive without parking. The buffer head is taken
// first; the slot it frees is refilled from the oldest parked sender so
// values leave in the order they entered.
func (c *Chan[T]) recvLocked() (T, opStatus, *parker) {
	if s := c.sendq.dequeue(); s != nil {
		var v T
		if c.buf.len() == 0 {
			v = s.elem
		} else {
			v = c.buf.pop()
			c.buf.push(s.elem)
		}
		var zero T
		s.elem = zero
		s.success = true
		return v, opDone, s.p
	}
	if c.buf.len() > 0 {
		return c.buf.pop(), opDone, nil
	}
	var zero T
	if c.closed {
		return zero, opClosed, nil
	}
	return zero, opWouldBlock, nil
}

// RecvOnly is a receive-only view of a [Chan].
//
// [Context.Done] and [Timer.C] hand out RecvOnly so that holders can wait
// on the channel, including inside [Select], but cannot send on or close it.
type RecvOnly[T any] struct {
	c *Chan[T]
}

// Recv is [Chan.Recv] on the underlying channel.
func (r RecvOnly[T]) Recv() (T, bool) {
	return r.c.Recv()
}

// TryRecv is [Chan.TryRecv] on the underlying channel.
func (r RecvOnly[T]) TryRecv() (T, bool, error) {
	return r.c.TryRecv()
}

// RecvCase is [Chan.RecvCase] on the underlying channel.
func (r RecvOnly[T]) RecvCase(dst *T) Case {
	return r.c.RecvCase(dst)
}

// Len is [Chan.Len] on the underlying channel.
func (r RecvOnly[T]) Len() int {
	return r.c.Len()
}

// Cap is [Chan.Cap] on the underlying channel.
func (r RecvOnly[T]) Cap() int {
	return r.c.Cap()
}

// Ready reports whether a receive would complete without parking,
// either with a value or by observing closure. It does not consume.
func (r RecvOnly[T]) Ready() bool {
	c := r.c
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf.len() > 0 || c.closed {
		return true
	}
	for w := c.sendq.first; w != nil; w = w.next {
		if !w.p.isClaimed() {
			return true
		}
	}
	return false
}
