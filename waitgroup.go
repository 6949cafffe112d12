// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// WaitGroup is a counting barrier: Wait blocks until the counter drops
// to zero.
//
// Unlike a channel it carries no values; it exists for the common case of
// waiting for a set of goroutines to finish. The zero value is ready to use.
// A WaitGroup may be reused once Wait has returned.
//
// Example:
//
//	var wg csp.WaitGroup
//	for _, job := range jobs {
//	    wg.Add(1)
//	    go func() {
//	        defer wg.Done()
//	        run(job)
//	    }()
//	}
//	wg.Wait()
type WaitGroup struct {
	mu   sync.Mutex
	cond sync.Cond
	n    int64
}

// Add adds delta to the counter. When the counter reaches zero every
// goroutine blocked in Wait is released.
//
// Panics if the counter would become negative.
func (wg *WaitGroup) Add(delta int) {
	wg.mu.Lock()
	n := wg.n + int64(delta)
	if n < 0 {
		wg.mu.Unlock()
		fatal("csp: negative WaitGroup counter", logrus.Fields{"counter": wg.n, "delta": delta})
	}
	wg.n = n
	if n == 0 && wg.cond.L != nil {
		wg.cond.Broadcast()
	}
	wg.mu.Unlock()
}

// Done decrements the counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait blocks until the counter is zero.
func (wg *WaitGroup) Wait() {
	wg.mu.Lock()
	if wg.cond.L == nil {
		wg.cond.L = &wg.mu
	}
	for wg.n > 0 {
		wg.cond.Wait()
	}
	wg.mu.Unlock()
}

// Count returns the current counter value.
func (wg *WaitGroup) Count() int {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	return int(wg.n)
}
