// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

const (
	unclaimed uint64 = 0
	claimed   uint64 = 1
)

// parker is the identity of one parked goroutine.
//
// A plain Send or Recv links one waiter to its parker; a Select links one
// waiter per case to the same parker. Whoever wins claim() owns the right to
// complete the operation and must call unpark exactly once.
type parker struct {
	state atomix.Uint64 // unclaimed or claimed
	fired int           // case index recorded by the claimer

	mu    sync.Mutex
	cond  sync.Cond
	woken bool
	ready atomix.Bool // mirrors woken for lock-free spinning
	spins int
}

func newParker(spins int) *parker {
	p := &parker{spins: spins}
	p.cond.L = &p.mu
	return p
}

// claim reports whether the caller won the parker.
// Must be called under the lock of the channel whose queue held the waiter.
func (p *parker) claim(caseIndex int) bool {
	if !p.state.CompareAndSwapAcqRel(unclaimed, claimed) {
		return false
	}
	p.fired = caseIndex
	return true
}

func (p *parker) isClaimed() bool {
	return p.state.LoadAcquire() == claimed
}

// unpark wakes the parked goroutine. Called after claim, outside any
// channel lock.
func (p *parker) unpark() {
	p.mu.Lock()
	p.woken = true
	p.ready.StoreRelease(true)
	p.cond.Signal()
	p.mu.Unlock()
}

// park blocks until unpark. It returns the case index recorded by claim.
func (p *parker) park() int {
	if p.spins > 0 {
		sw := spin.Wait{}
		for range p.spins {
			if p.ready.LoadAcquire() {
				break
			}
			sw.Once()
		}
	}

	p.mu.Lock()
	for !p.woken {
		p.cond.Wait()
	}
	p.mu.Unlock()

	if !p.isClaimed() {
		fatal("csp: parker woken without a claim", nil)
	}
	return p.fired
}
