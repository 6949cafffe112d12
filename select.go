// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/sirupsen/logrus"
)

// Case is one operation offered to [Select].
//
// Build cases with [Chan.SendCase], [Chan.RecvCase], [RecvOnly.RecvCase]
// or [Default]. A case is bound to a single Select call and must not be
// reused concurrently.
type Case interface {
	// core returns the channel of the case, nil for default and nil
	// channels.
	core() *chanCore
	isDefault() bool

	// poll attempts the operation without parking; caller holds the lock.
	poll() (fired, ok bool, wake *parker)
	link(p *parker, index int)
	unlink()
	// complete reports the outcome after p fired this case.
	complete() bool
}

type sendCase[T any] struct {
	c *Chan[T]
	v T
	w *waiter[T]
}

// SendCase returns a [Select] case that sends v on c.
//
// The case is ready when a receiver is parked, the buffer has room, or the
// channel is closed. If it fires on a closed channel, Select reports
// ok == false and v is not delivered. A case on a nil channel never fires.
func (c *Chan[T]) SendCase(v T) Case {
	return &sendCase[T]{c: c, v: v}
}

func (s *sendCase[T]) core() *chanCore {
	if s.c == nil {
		return nil
	}
	return &s.c.chanCore
}

func (s *sendCase[T]) isDefault() bool { return false }

func (s *sendCase[T]) poll() (bool, bool, *parker) {
	st, p := s.c.sendLocked(s.v)
	switch st {
	case opDone:
		return true, true, p
	case opClosed:
		return true, false, nil
	}
	return false, false, nil
}

func (s *sendCase[T]) link(p *parker, index int) {
	s.w = &waiter[T]{p: p, elem: s.v, isSelect: true, caseIndex: index}
	s.c.sendq.enqueue(s.w)
}

func (s *sendCase[T]) unlink() {
	s.c.sendq.remove(s.w)
}

func (s *sendCase[T]) complete() bool {
	return s.w.success
}

type recvCase[T any] struct {
	c   *Chan[T]
	dst *T
	w   *waiter[T]
}

// RecvCase returns a [Select] case that receives from c into *dst.
//
// *dst is written only when this case fires with a value; dst may be nil to
// discard the value. Select reports ok == false when the case fires because
// the channel is closed and drained. A case on a nil channel never fires.
func (c *Chan[T]) RecvCase(dst *T) Case {
	return &recvCase[T]{c: c, dst: dst}
}

func (r *recvCase[T]) core() *chanCore {
	if r.c == nil {
		return nil
	}
	return &r.c.chanCore
}

func (r *recvCase[T]) isDefault() bool { return false }

func (r *recvCase[T]) poll() (bool, bool, *parker) {
	v, st, p := r.c.recvLocked()
	switch st {
	case opDone:
		if r.dst != nil {
			*r.dst = v
		}
		return true, true, p
	case opClosed:
		return true, false, nil
	}
	return false, false, nil
}

func (r *recvCase[T]) link(p *parker, index int) {
	r.w = &waiter[T]{p: p, isSelect: true, caseIndex: index}
	r.c.recvq.enqueue(r.w)
}

func (r *recvCase[T]) unlink() {
	r.c.recvq.remove(r.w)
}

func (r *recvCase[T]) complete() bool {
	if r.w.success && r.dst != nil {
		*r.dst = r.w.elem
	}
	return r.w.success
}

type defaultCase struct{}

// Default returns the [Select] case taken when no other case is ready.
func Default() Case {
	return defaultCase{}
}

func (defaultCase) core() *chanCore { return nil }
func (defaultCase) isDefault() bool { return true }
func (defaultCase) poll() (bool, bool, *parker) { return false, false, nil }
func (defaultCase) link(*parker, int) {}
func (defaultCase) unlink() {}
func (defaultCase) complete() bool { return false }

// Select commits to exactly one of cases and returns its index.
//
// If several cases are ready, one is chosen uniformly at random. If none is
// ready and a [Default] case is present, Select returns the default index
// immediately. Otherwise it parks on every channel at once until the first
// partner operation claims it; the other cases have no effect.
//
// ok reports whether the chosen case transferred a value: false for a
// receive that observed a closed and drained channel, a send on a closed
// channel, or the default case.
//
// The same channel may appear in several cases. Select panics if it could
// only block forever (no default and no case on a non-nil channel) or if
// more than one default case is given.
//
// Example:
//
//	var job Job
//	switch i, ok := csp.Select(
//	    jobs.RecvCase(&job),
//	    ctx.Done().RecvCase(nil),
//	); {
//	case i == 0 && ok:
//	    handle(job)
//	case i == 0:
//	    // jobs closed
//	default:
//	    return ctx.Err()
//	}
func Select(cases ...Case) (chosen int, ok bool) {
	dflt := -1
	locks := make([]*chanCore, 0, len(cases))
	spins := 0
	for i, cs := range cases {
		if cs == nil {
			fatal("csp: nil select case", logrus.Fields{"case": i})
		}
		if cs.isDefault() {
			if dflt >= 0 {
				fatal("csp: multiple defaults in select", logrus.Fields{"case": i})
			}
			dflt = i
			continue
		}
		if c := cs.core(); c != nil {
			locks = append(locks, c)
			spins = max(spins, c.spins)
		}
	}
	if len(locks) == 0 {
		if dflt >= 0 {
			return dflt, false
		}
		fatal("csp: select blocks forever", logrus.Fields{"cases": len(cases)})
	}

	// Stable total order prevents lock-order inversion between selects.
	slices.SortFunc(locks, func(a, b *chanCore) int { return cmp.Compare(a.id, b.id) })
	locks = slices.Compact(locks)
	lockAll(locks)

	for _, i := range rand.Perm(len(cases)) {
		cs := cases[i]
		if cs.isDefault() || cs.core() == nil {
			continue
		}
		if fired, ok, wake := cs.poll(); fired {
			unlockAll(locks)
			if wake != nil {
				wake.unpark()
			}
			return i, ok
		}
	}

	if dflt >= 0 {
		unlockAll(locks)
		return dflt, false
	}

	p := newParker(spins)
	for i, cs := range cases {
		if cs.core() != nil {
			cs.link(p, i)
		}
	}
	unlockAll(locks)

	chosen = p.park()

	lockAll(locks)
	for _, cs := range cases {
		if cs.core() != nil {
			cs.unlink()
		}
	}
	unlockAll(locks)

	return chosen, cases[chosen].complete()
}

func lockAll(locks []*chanCore) {
	for _, c := range locks {
		c.mu.Lock()
	}
}

func unlockAll(locks []*chanCore) {
	for i := len(locks) - 1; i >= 0; i-- {
		locks[i].mu.Unlock()
	}
}
