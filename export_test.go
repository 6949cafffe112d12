// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

// ChildCount returns the number of children registered on the nearest
// cancelable node of ctx.
func ChildCount(ctx Context) int {
	p, ok := parentCancelCtx(ctx)
	if !ok {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.children)
}

// HasTimer reports whether ctx is a deadline node with an armed timer.
func HasTimer(ctx Context) bool {
	c, ok := ctx.(*timerCtx)
	if !ok {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// RootWaiters returns the number of receivers parked on the done channel
// shared by Background and TODO.
func RootWaiters() int {
	_, r := neverDone.Waiting()
	return r
}
