// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/sirupsen/logrus"
)

var timerSeq atomix.Uint64

type timerState uint8

const (
	timerIdle timerState = iota
	timerArmed
)

// arming is one countdown: its duration, start and generation.
type arming struct {
	d   time.Duration
	at  time.Time
	gen uint64
}

// Timer is a single-shot, restartable countdown.
//
// Each Timer owns one worker goroutine. Reset records the arming on the
// timer and posts a wakeup on an internal channel; the worker then picks up
// the newest arming and waits on a condition variable until the duration
// elapses or the arming is stopped or superseded. On expiry it
// delivers the elapsed duration on [Timer.C], or runs the [AfterFunc]
// callback on the worker itself. Each arming fires at most once.
//
// States: idle → armed → (fired | stopped) → idle.
//
// Call [Timer.Close] to release the worker when the timer is no longer
// needed.
type Timer struct {
	id     uint64
	wakeup *Chan[struct{}]
	c      *Chan[time.Duration]
	f      func(elapsed time.Duration)

	mu     sync.Mutex
	cond   sync.Cond
	state  timerState
	cur    arming
	closed bool

	worker    WaitGroup
	closeOnce sync.Once
}

// NewTimer creates a timer armed for d. The elapsed duration is delivered
// on [Timer.C] when it fires.
func NewTimer(d time.Duration) *Timer {
	t := newTimer(nil)
	t.c = NewChan[time.Duration](1)
	t.Reset(d)
	return t
}

// AfterFunc creates a timer armed for d that calls f with the elapsed
// duration when it fires. f runs on the timer's worker goroutine, so a
// slow f delays later armings of the same timer. [Timer.C] is unused.
func AfterFunc(d time.Duration, f func(elapsed time.Duration)) *Timer {
	if f == nil {
		panic("csp: AfterFunc with nil func")
	}
	t := newTimer(f)
	t.Reset(d)
	return t
}

func newTimer(f func(time.Duration)) *Timer {
	t := &Timer{
		id:     timerSeq.AddAcqRel(1),
		wakeup: NewChan[struct{}](1),
		f:      f,
	}
	t.cond.L = &t.mu
	t.worker.Add(1)
	go t.run()
	return t
}

// C returns the channel on which the elapsed duration is delivered.
// It is closed by [Timer.Close].
func (t *Timer) C() RecvOnly[time.Duration] {
	return t.c.RecvOnly()
}

// Stop prevents the current arming from firing.
//
// Returns true if the timer was armed. After Stop returns true, no value is
// delivered and no callback runs for that arming. Stop does not drain
// [Timer.C].
func (t *Timer) Stop() bool {
	t.mu.Lock()
	active := t.state == timerArmed
	if active {
		t.state = timerIdle
		t.cur.gen++
		t.cond.Broadcast()
	}
	t.mu.Unlock()
	if active {
		diag().WithFields(logrus.Fields{"timer": t.id}).Debug("csp: timer stopped")
	}
	return active
}

// Reset rearms the timer for d and reports whether it was armed.
//
// Reset drains on its own: an active arming is stopped and a value of a
// previous arming still waiting in [Timer.C] is discarded, so after Reset
// the next value received from C belongs to the new arming. A callback of
// an arming that already fired may still be running.
//
// Panics if the timer is closed.
func (t *Timer) Reset(d time.Duration) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		fatal("csp: Reset on closed Timer", logrus.Fields{"timer": t.id})
	}
	active := t.state == timerArmed
	t.state = timerArmed
	t.cur = arming{d: d, at: time.Now(), gen: t.cur.gen + 1}
	t.cond.Broadcast()
	if t.c != nil {
		t.c.TryRecv()
	}
	t.mu.Unlock()

	diag().WithFields(logrus.Fields{"timer": t.id, "duration": d}).Debug("csp: timer armed")

	// A pending wakeup already covers this arming: the worker reads the
	// newest one from t. Never blocks, so Reset may run inside a callback.
	t.wakeup.TrySend(struct{}{})
	return active
}

// Close stops the timer, shuts its worker down and waits for the worker to
// exit, then closes [Timer.C]. Close is idempotent.
//
// Close must not be called from the timer's own callback.
func (t *Timer) Close() {
	t.closeOnce.Do(func() {
		t.shutdown()
		t.worker.Wait()
		if t.c != nil {
			t.c.Close()
		}
	})
}

// shutdown stops the timer and lets the worker exit without joining it.
func (t *Timer) shutdown() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.state = timerIdle
	t.cur.gen++
	t.cond.Broadcast()
	t.mu.Unlock()
	t.wakeup.Close()
}

func (t *Timer) run() {
	defer t.worker.Done()
	for {
		if _, ok := t.wakeup.Recv(); !ok {
			return
		}
		t.countdown()
	}
}

// countdown waits for the current arming and fires it unless it was
// stopped or superseded first. A superseded arming returns to run, which
// finds the wakeup posted by the Reset that replaced it.
func (t *Timer) countdown() {
	t.mu.Lock()
	if t.state != timerArmed {
		t.mu.Unlock()
		return
	}
	a := t.cur

	// sync.Cond has no timed wait; a runtime timer broadcasts on expiry.
	expired := false
	alarm := time.AfterFunc(a.d-time.Since(a.at), func() {
		t.mu.Lock()
		expired = true
		t.cond.Broadcast()
		t.mu.Unlock()
	})
	for !expired && t.cur.gen == a.gen && t.state == timerArmed {
		t.cond.Wait()
	}
	alarm.Stop()

	if !expired || t.cur.gen != a.gen || t.state != timerArmed {
		t.mu.Unlock()
		return
	}
	t.state = timerIdle
	elapsed := time.Since(a.at)
	if t.c != nil {
		if err := t.c.TrySend(elapsed); err != nil {
			diag().WithFields(logrus.Fields{"timer": t.id, "error": err}).Warn("csp: timer value dropped")
		}
	}
	t.mu.Unlock()

	diag().WithFields(logrus.Fields{"timer": t.id, "elapsed": elapsed}).Debug("csp: timer fired")
	if t.f != nil {
		t.f(elapsed)
	}
}
