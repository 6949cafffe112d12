// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package csp provides typed channels, a multi-way select, a cancellation
// context tree, a restartable timer and a wait group, built from mutexes,
// condition variables and atomics.
//
// Components, leaves first:
//
//   - [Chan]: bounded FIFO channel, unbuffered (rendezvous) or buffered
//   - [Select]: commits to exactly one ready case across many channels
//   - [Timer]: single-shot countdown on a dedicated worker goroutine
//   - [Context]: tree of cancelable scopes whose done channels are [Chan]s
//   - [WaitGroup]: counting barrier
//
// # Quick Start
//
// Direct constructor:
//
//	ch := csp.NewChan[Event](0)   // unbuffered
//	ch := csp.NewChan[Event](64)  // buffered, exactly 64 slots
//
// Builder API for diagnostics names and spinning:
//
//	ch := csp.Build[Event](csp.New(64).Name("events").Spin(32))
//
// # Channels
//
// Send hands the value directly to the oldest parked receiver, else copies
// it into free buffer space, else parks. Recv is symmetric. Parked senders
// and parked receivers are each served in FIFO order.
//
//	if err := ch.Send(ev); err != nil {
//	    // csp.ErrClosed: the channel was closed
//	}
//
//	ev, ok := ch.Recv()
//	if !ok {
//	    // closed and drained: no value
//	}
//
// Closing wakes every parked goroutine. Buffered values stay receivable
// after Close; receivers observe closure only once the buffer is empty.
// Closing twice panics.
//
// TrySend and TryRecv never park and report [ErrWouldBlock] instead:
//
//	err := ch.TrySend(ev)
//	if csp.IsWouldBlock(err) {
//	    // no receiver waiting and the buffer is full
//	}
//
// # Select
//
// [Select] locks all involved channels in a fixed order, picks uniformly
// at random among the ready cases, falls back to [Default] when given, and
// otherwise parks on all channels at once. Exactly one case fires.
//
//	var req Request
//	switch i, ok := csp.Select(
//	    requests.RecvCase(&req),
//	    ctx.Done().RecvCase(nil),
//	    csp.Default(),
//	); i {
//	case 0:
//	    if ok {
//	        serve(req)
//	    }
//	case 1:
//	    return ctx.Err()
//	case 2:
//	    // nothing ready
//	}
//
// A Select without a default that has no case on a non-nil channel would
// block forever; it panics instead.
//
// # Contexts
//
// Contexts form a tree rooted at [Background]. Canceling a node closes its
// done channel and cancels every descendant before the cancel function
// returns:
//
//	ctx, cancel := csp.WithTimeout(csp.Background(), time.Second)
//	defer cancel()
//	ctx = csp.WithValue(ctx, traceKey{}, id)
//
// A child created under an already canceled parent starts canceled.
// A deadline later than the parent's arms no timer.
//
// # Timers
//
//	t := csp.NewTimer(100 * time.Millisecond)
//	defer t.Close()
//	elapsed, _ := t.C().Recv()
//
//	t.Reset(time.Second) // drains an undelivered value by itself
//
// # Misuse
//
// Programming errors panic with a "csp: " prefixed message after being
// logged through the logger installed with [SetLogger]: closing a closed
// channel, a negative [WaitGroup] counter, a Select that can never proceed,
// send or receive on a nil channel, Reset on a closed Timer.
//
// Recoverable conditions are error values: [ErrClosed], [ErrCanceled],
// [ErrDeadlineExceeded], [ErrWouldBlock].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for CPU pause instructions,
// and [github.com/sirupsen/logrus] for diagnostics.
package csp
