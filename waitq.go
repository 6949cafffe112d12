// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

// waiter is one parked operation linked into a channel's wait queue.
//
// The waiter lives in the parking goroutine's frame; the queue only
// references it. It is unlinked either by the partner that claims it or by
// the parking goroutine itself before the parking call returns.
type waiter[T any] struct {
	p         *parker
	prev      *waiter[T]
	next      *waiter[T]
	elem      T
	success   bool // value transferred (false: woken by close)
	isSelect  bool
	caseIndex int
}

// waitq is a FIFO list of waiters for one direction of one channel.
// All methods require the channel mutex.
type waitq[T any] struct {
	first *waiter[T]
	last  *waiter[T]
}

func (q *waitq[T]) enqueue(w *waiter[T]) {
	w.next = nil
	x := q.last
	if x == nil {
		w.prev = nil
		q.first = w
		q.last = w
		return
	}
	w.prev = x
	x.next = w
	q.last = w
}

// dequeue unlinks and returns the oldest waiter whose parker the caller
// managed to claim. Waiters of selects already won through another queue
// are unlinked and skipped.
func (q *waitq[T]) dequeue() *waiter[T] {
	for {
		w := q.first
		if w == nil {
			return nil
		}
		y := w.next
		if y == nil {
			q.first = nil
			q.last = nil
		} else {
			y.prev = nil
			q.first = y
			w.next = nil
		}
		if w.p.claim(w.caseIndex) {
			return w
		}
	}
}

// remove unlinks w if it is still linked.
func (q *waitq[T]) remove(w *waiter[T]) {
	x := w.prev
	y := w.next
	if x != nil {
		if y != nil {
			x.next = y
			y.prev = x
		} else {
			x.next = nil
			q.last = x
		}
		w.prev = nil
		w.next = nil
		return
	}
	if y != nil {
		y.prev = nil
		q.first = y
		w.next = nil
		return
	}
	if q.first == w {
		q.first = nil
		q.last = nil
	}
}

func (q *waitq[T]) len() int {
	n := 0
	for w := q.first; w != nil; w = w.next {
		n++
	}
	return n
}
