// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

import (
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Context is a node in a tree of cancelable scopes.
//
// A Context carries a done channel (closed on cancellation), a terminal
// error, an optional deadline and request-scoped values. Cancellation flows
// from a node to all of its descendants, never upwards.
//
// Done is a [RecvOnly] channel of this runtime, so it can be combined with
// other channels in [Select]:
//
//	var item Item
//	i, ok := csp.Select(queue.RecvCase(&item), ctx.Done().RecvCase(nil))
//	if i == 1 {
//	    return ctx.Err()
//	}
type Context interface {
	// Deadline returns the time at which the context is canceled with
	// ErrDeadlineExceeded, if any.
	Deadline() (deadline time.Time, ok bool)

	// Done returns a channel that is closed when the context is canceled.
	// Successive calls return the same channel.
	Done() RecvOnly[struct{}]

	// Err returns nil while Done is not closed, and ErrCanceled or
	// ErrDeadlineExceeded afterwards.
	Err() error

	// Value returns the value bound to key by the nearest WithValue
	// ancestor, or nil.
	Value(key any) any
}

// CancelFunc cancels a context. It is idempotent and safe for
// concurrent use; when it returns, the context and every descendant are
// canceled.
type CancelFunc func()

type emptyCtx struct {
	name string
	done *Chan[struct{}]
}

func (emptyCtx) Deadline() (time.Time, bool) { return time.Time{}, false }
func (e emptyCtx) Done() RecvOnly[struct{}] { return e.done.RecvOnly() }
func (emptyCtx) Err() error { return nil }
func (emptyCtx) Value(any) any { return nil }
func (e emptyCtx) String() string { return e.name }

var (
	// never closed
	neverDone = NewChan[struct{}](0)

	background Context = emptyCtx{name: "csp.Background", done: neverDone}
	todo       Context = emptyCtx{name: "csp.TODO", done: neverDone}
)

// Background returns the root context: never canceled, no values, no
// deadline.
func Background() Context {
	return background
}

// TODO returns a root context like [Background], for code that has not
// been wired to a real parent yet.
func TODO() Context {
	return todo
}

// canceler is a context node that can be canceled by its parent.
type canceler interface {
	cancel(removeFromParent bool, err error)
	Done() RecvOnly[struct{}]
}

// cancelCtx is the cancelable node. Its children registry holds
// non-owning references; the children hold their parent.
type cancelCtx struct {
	Context // parent

	mu       sync.Mutex
	done     *Chan[struct{}]
	children map[canceler]struct{}
	err      error
}

// WithCancel returns a child of parent with its own done channel, and the
// function that cancels it.
//
// If parent is already canceled, the child is canceled before WithCancel
// returns.
func WithCancel(parent Context) (Context, CancelFunc) {
	c := newCancelCtx(parent)
	propagateCancel(parent, c)
	return c, func() { c.cancel(true, ErrCanceled) }
}

func newCancelCtx(parent Context) *cancelCtx {
	if parent == nil {
		panic("csp: cannot create context from nil parent")
	}
	return &cancelCtx{Context: parent, done: NewChan[struct{}](0)}
}

func (c *cancelCtx) Done() RecvOnly[struct{}] {
	return c.done.RecvOnly()
}

func (c *cancelCtx) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *cancelCtx) Value(key any) any {
	if key == &cancelCtxKey {
		return c
	}
	return value(c.Context, key)
}

func (c *cancelCtx) String() string {
	return contextName(c.Context) + ".WithCancel"
}

// cancelCtxKey lets Value return the nearest cancelCtx ancestor.
var cancelCtxKey int

// parentCancelCtx returns the nearest *cancelCtx ancestor of parent, if
// parent's done channel is that ancestor's.
func parentCancelCtx(parent Context) (*cancelCtx, bool) {
	if neverCanceled(parent) {
		return nil, false
	}
	p, ok := parent.Value(&cancelCtxKey).(*cancelCtx)
	if !ok {
		return nil, false
	}
	// A foreign Context wrapping a cancelCtx may expose a different done
	// channel; it is then watched like any other foreign parent.
	if parent.Done().c != p.done {
		return nil, false
	}
	return p, true
}

// propagateCancel arranges for child to be canceled when parent is.
// Registration and the canceled check happen under the ancestor's lock, so
// there is no window in which a child of a canceled parent stays active.
func propagateCancel(parent Context, child canceler) {
	if neverCanceled(parent) {
		return
	}

	if p, ok := parentCancelCtx(parent); ok {
		p.mu.Lock()
		if p.err != nil {
			err := p.err
			p.mu.Unlock()
			child.cancel(false, err)
			return
		}
		if p.children == nil {
			p.children = make(map[canceler]struct{})
		}
		p.children[child] = struct{}{}
		p.mu.Unlock()
		return
	}

	// Foreign parent implementation.
	if err := parent.Err(); err != nil {
		child.cancel(false, err)
		return
	}
	go func() {
		if i, _ := Select(parent.Done().RecvCase(nil), child.Done().RecvCase(nil)); i == 0 {
			child.cancel(false, parent.Err())
		}
	}()
}

// neverCanceled reports whether parent shares the done channel of the
// root contexts, so there is nothing to register with or watch.
func neverCanceled(parent Context) bool {
	return parent.Done().c == neverDone
}

// removeChild drops child from the registry of its nearest cancelCtx
// ancestor.
func removeChild(parent Context, child canceler) {
	p, ok := parentCancelCtx(parent)
	if !ok {
		return
	}
	p.mu.Lock()
	if p.children != nil {
		delete(p.children, child)
	}
	p.mu.Unlock()
}

// cancel closes c.done, cancels each child, and, if removeFromParent is
// set, removes c from its parent's children.
func (c *cancelCtx) cancel(removeFromParent bool, err error) {
	if !c.finish(err) {
		return
	}
	logCanceled(c, err)
	if removeFromParent {
		removeChild(c.Context, c)
	}
}

// finish records err, closes c.done and cancels each child. It reports
// false if c was already canceled.
func (c *cancelCtx) finish(err error) bool {
	if err == nil {
		panic("csp: internal error: missing cancel error")
	}
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return false
	}
	c.err = err
	c.done.Close()
	for child := range c.children {
		// parent lock held while taking the child's: locks go top-down only
		child.cancel(false, err)
	}
	c.children = nil
	c.mu.Unlock()
	return true
}

func logCanceled(c Context, err error) {
	if l := diag(); l.IsLevelEnabled(logrus.DebugLevel) {
		l.WithFields(logrus.Fields{"ctx": contextName(c), "error": err}).Debug("csp: context canceled")
	}
}

// timerCtx is a cancelCtx with a deadline armed on a Timer.
type timerCtx struct {
	cancelCtx
	timer    *Timer // under cancelCtx.mu
	deadline time.Time
}

// WithDeadline returns a child of parent that is canceled with
// [ErrDeadlineExceeded] at d, or earlier through the returned function or
// parent.
//
// If parent's deadline is already earlier than or equal to d, the child
// shares it and no timer is armed. If d has already passed, the child is
// canceled before WithDeadline returns.
func WithDeadline(parent Context, d time.Time) (Context, CancelFunc) {
	if parent == nil {
		panic("csp: cannot create context from nil parent")
	}
	if cur, ok := parent.Deadline(); ok && !cur.After(d) {
		return WithCancel(parent)
	}
	c := &timerCtx{
		cancelCtx: cancelCtx{Context: parent, done: NewChan[struct{}](0)},
		deadline:  d,
	}
	propagateCancel(parent, c)

	dur := time.Until(d)
	if dur <= 0 {
		c.cancel(true, ErrDeadlineExceeded)
		return c, func() { c.cancel(false, ErrCanceled) }
	}

	c.mu.Lock()
	if c.err == nil {
		c.timer = AfterFunc(dur, func(time.Duration) {
			c.cancel(true, ErrDeadlineExceeded)
		})
	}
	c.mu.Unlock()
	return c, func() { c.cancel(true, ErrCanceled) }
}

// WithTimeout returns WithDeadline(parent, time.Now().Add(timeout)).
func WithTimeout(parent Context, timeout time.Duration) (Context, CancelFunc) {
	return WithDeadline(parent, time.Now().Add(timeout))
}

func (c *timerCtx) Deadline() (time.Time, bool) {
	return c.deadline, true
}

func (c *timerCtx) String() string {
	return contextName(c.cancelCtx.Context) + ".WithDeadline(" +
		c.deadline.String() + " [" + time.Until(c.deadline).String() + "])"
}

// cancel also releases the timer. The worker is not joined: cancel may run
// on the worker itself, or under a parent's lock the worker's callback is
// waiting for.
func (c *timerCtx) cancel(removeFromParent bool, err error) {
	if c.cancelCtx.finish(err) {
		logCanceled(c, err)
	}
	if removeFromParent {
		removeChild(c.cancelCtx.Context, c)
	}
	if t := c.takeTimer(); t != nil {
		t.shutdown()
	}
}

func (c *timerCtx) takeTimer() *Timer {
	c.mu.Lock()
	t := c.timer
	c.timer = nil
	c.mu.Unlock()
	return t
}

// valueCtx carries one key/value pair; everything else delegates to the
// parent.
type valueCtx struct {
	Context
	key, val any
}

// WithValue returns a child of parent whose Value(key) is val.
//
// The value is shared by reference with every reader and must not be
// mutated after the call. key must be non-nil and comparable; use an
// unexported key type to avoid collisions between packages.
func WithValue(parent Context, key, val any) Context {
	if parent == nil {
		panic("csp: cannot create context from nil parent")
	}
	if key == nil {
		panic("csp: nil key")
	}
	if !reflect.TypeOf(key).Comparable() {
		panic("csp: key is not comparable")
	}
	return &valueCtx{Context: parent, key: key, val: val}
}

func (c *valueCtx) Value(key any) any {
	if c.key == key {
		return c.val
	}
	return value(c.Context, key)
}

func (c *valueCtx) String() string {
	return contextName(c.Context) + ".WithValue"
}

// value walks up the chain without recursion.
func value(c Context, key any) any {
	for {
		switch ctx := c.(type) {
		case *valueCtx:
			if key == ctx.key {
				return ctx.val
			}
			c = ctx.Context
		case *cancelCtx:
			if key == &cancelCtxKey {
				return ctx
			}
			c = ctx.Context
		case *timerCtx:
			if key == &cancelCtxKey {
				return &ctx.cancelCtx
			}
			c = ctx.cancelCtx.Context
		case emptyCtx:
			return nil
		default:
			return c.Value(key)
		}
	}
}

type stringer interface {
	String() string
}

func contextName(c Context) string {
	if s, ok := c.(stringer); ok {
		return s.String()
	}
	return reflect.TypeOf(c).String()
}
