// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp_test

import (
	"fmt"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/csp"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// Select - Immediate Cases
// =============================================================================

// TestSelectReadyBeatsDefault tests that a ready case is always preferred
// over the default case.
func TestSelectReadyBeatsDefault(t *testing.T) {
	ch := csp.NewChan[int](1)
	idle := csp.NewChan[int](0)
	for i := range 1000 {
		ch.Send(i)
		var v int
		chosen, ok := csp.Select(idle.RecvCase(nil), ch.RecvCase(&v), csp.Default())
		if chosen != 1 || !ok || v != i {
			t.Fatalf("iteration %d: got (%d, %v, %d), want (1, true, %d)", i, chosen, ok, v, i)
		}
	}
}

// TestSelectDefaultDoesNotBlock tests that the default case is taken with
// bounded latency when nothing is ready.
func TestSelectDefaultDoesNotBlock(t *testing.T) {
	a := csp.NewChan[int](0)
	b := csp.NewChan[int](1)
	b.Send(1) // full: a send case on b is not ready

	start := time.Now()
	chosen, ok := csp.Select(a.RecvCase(nil), b.SendCase(2), csp.Default())
	if chosen != 2 || ok {
		t.Fatalf("got (%d, %v), want (2, false)", chosen, ok)
	}
	if elapsed := time.Since(start); elapsed > slack(50*time.Millisecond) {
		t.Fatalf("default took %v", elapsed)
	}
	if b.Len() != 1 {
		t.Fatalf("default case sent a value: Len=%d", b.Len())
	}
}

// TestSelectFairness tests that two simultaneously ready cases are chosen
// with roughly equal frequency.
func TestSelectFairness(t *testing.T) {
	const samples = 10000
	a := csp.NewChan[int](1)
	b := csp.NewChan[int](1)
	var counts [2]int
	for range samples {
		a.TrySend(0)
		b.TrySend(1)
		chosen, ok := csp.Select(a.RecvCase(nil), b.RecvCase(nil))
		if !ok {
			t.Fatalf("case %d: ok=false", chosen)
		}
		counts[chosen]++
	}
	for i, n := range counts {
		if n < samples*45/100 || n > samples*55/100 {
			t.Fatalf("case %d chosen %d/%d times, want within [45%%, 55%%]", i, n, samples)
		}
	}
}

// TestSelectClosed tests that closed channels make both send and receive
// cases ready with ok=false.
func TestSelectClosed(t *testing.T) {
	ch := csp.NewChan[int](1)
	ch.Send(3)
	ch.Close()

	var v int
	if chosen, ok := csp.Select(ch.RecvCase(&v)); chosen != 0 || !ok || v != 3 {
		t.Fatalf("buffered value after close: got (%d, %v, %d)", chosen, ok, v)
	}
	v = -1
	if chosen, ok := csp.Select(ch.RecvCase(&v)); chosen != 0 || ok || v != -1 {
		t.Fatalf("drained: got (%d, %v, %d), want (0, false, -1)", chosen, ok, v)
	}
	if chosen, ok := csp.Select(ch.SendCase(1), csp.Default()); chosen != 0 || ok {
		t.Fatalf("send on closed: got (%d, %v), want (0, false)", chosen, ok)
	}
}

// TestSelectNilChannel tests that cases on nil channels never fire.
func TestSelectNilChannel(t *testing.T) {
	var nilCh *csp.Chan[int]
	if chosen, _ := csp.Select(nilCh.RecvCase(nil), nilCh.SendCase(1), csp.Default()); chosen != 2 {
		t.Fatalf("got %d, want default (2)", chosen)
	}
	if err := nilCh.TrySend(1); !csp.IsWouldBlock(err) {
		t.Fatalf("TrySend on nil: got %v, want ErrWouldBlock", err)
	}
}

// TestSelectDuplicateChannel tests that the same channel may back several
// cases and only one of them fires.
func TestSelectDuplicateChannel(t *testing.T) {
	t.Run("Ready", func(t *testing.T) {
		ch := csp.NewChan[int](1)
		ch.Send(9)
		x, y := -1, -1
		chosen, ok := csp.Select(ch.RecvCase(&x), ch.RecvCase(&y))
		if !ok {
			t.Fatal("ok=false")
		}
		if (chosen == 0) != (x == 9 && y == -1) || (chosen == 1) != (y == 9 && x == -1) {
			t.Fatalf("chosen=%d x=%d y=%d", chosen, x, y)
		}
	})

	t.Run("Parked", func(t *testing.T) {
		ch := csp.NewChan[int](0)
		done := csp.NewChan[int](1)
		go func() {
			chosen, _ := csp.Select(ch.RecvCase(nil), ch.RecvCase(nil))
			done.Send(chosen)
		}()
		waitParked(t, ch, 0, 2)

		if err := ch.Send(1); err != nil {
			t.Fatalf("Send: %v", err)
		}
		recvWithin(t, done.RecvOnly(), time.Second)
		if _, r := ch.Waiting(); r != 0 {
			t.Fatalf("receivers still linked: %d", r)
		}
		// The second case must not have consumed a second value
		if err := ch.TrySend(2); !csp.IsWouldBlock(err) {
			t.Fatalf("TrySend: got %v, want ErrWouldBlock", err)
		}
	})
}

// =============================================================================
// Select - Parking
// =============================================================================

// TestSelectParkedRecv tests that a parked select is woken by a send on one
// of its channels and unlinks from the others.
func TestSelectParkedRecv(t *testing.T) {
	a := csp.NewChan[int](0)
	b := csp.NewChan[int](0)
	type result struct {
		chosen int
		ok     bool
		v      int
	}
	out := csp.NewChan[result](1)
	go func() {
		var v int
		chosen, ok := csp.Select(a.RecvCase(&v), b.RecvCase(&v))
		out.Send(result{chosen, ok, v})
	}()
	waitParked(t, a, 0, 1)
	waitParked(t, b, 0, 1)

	if err := b.Send(7); err != nil {
		t.Fatalf("Send: %v", err)
	}
	r, _ := recvWithin(t, out.RecvOnly(), time.Second)
	if r.chosen != 1 || !r.ok || r.v != 7 {
		t.Fatalf("got %+v, want {1 true 7}", r)
	}
	if s, rc := a.Waiting(); s != 0 || rc != 0 {
		t.Fatalf("a still has waiters: %d/%d", s, rc)
	}
	if err := a.TrySend(1); !csp.IsWouldBlock(err) {
		t.Fatalf("stale select case accepted a value: %v", err)
	}
}

// TestSelectParkedSend tests a parked send case handing off to a receiver.
func TestSelectParkedSend(t *testing.T) {
	a := csp.NewChan[int](0)
	b := csp.NewChan[int](0)
	out := csp.NewChan[int](1)
	go func() {
		chosen, ok := csp.Select(a.SendCase(1), b.SendCase(2))
		if !ok {
			chosen = -1
		}
		out.Send(chosen)
	}()
	waitParked(t, a, 1, 0)
	waitParked(t, b, 1, 0)

	v, ok := a.Recv()
	if !ok || v != 1 {
		t.Fatalf("Recv: got (%d, %v)", v, ok)
	}
	if chosen, _ := recvWithin(t, out.RecvOnly(), time.Second); chosen != 0 {
		t.Fatalf("chosen: got %d, want 0", chosen)
	}
	if _, _, err := b.TryRecv(); !csp.IsWouldBlock(err) {
		t.Fatalf("stale send case delivered on b: %v", err)
	}
}

// TestSelectParkedClose tests that closing a channel wakes a parked select
// with ok=false.
func TestSelectParkedClose(t *testing.T) {
	a := csp.NewChan[int](0)
	b := csp.NewChan[int](0)
	out := csp.NewChan[[2]int](1)
	go func() {
		chosen, ok := csp.Select(a.RecvCase(nil), b.SendCase(5))
		okInt := 0
		if ok {
			okInt = 1
		}
		out.Send([2]int{chosen, okInt})
	}()
	waitParked(t, b, 1, 0)
	b.Close()

	if r, _ := recvWithin(t, out.RecvOnly(), time.Second); r != [2]int{1, 0} {
		t.Fatalf("got %v, want [1 0]", r)
	}
}

// TestSelectExactlyOnce tests that competing selects on both sides transfer
// every value exactly once.
func TestSelectExactlyOnce(t *testing.T) {
	const (
		numP    = 4
		numC    = 4
		perProd = 2000
	)
	a := csp.NewChan[int](0)
	b := csp.NewChan[int](1)
	seen := make([]atomix.Int32, numP*perProd)

	var prod errgroup.Group
	for p := range numP {
		prod.Go(func() error {
			for i := range perProd {
				v := p*perProd + i
				if _, ok := csp.Select(a.SendCase(v), b.SendCase(v)); !ok {
					return fmt.Errorf("producer %d: send on closed", p)
				}
			}
			return nil
		})
	}

	var cons errgroup.Group
	for range numC {
		cons.Go(func() error {
			for {
				var v int
				_, ok := csp.Select(a.RecvCase(&v), b.RecvCase(&v))
				if !ok {
					return nil
				}
				seen[v].Add(1)
			}
		})
	}

	if err := prod.Wait(); err != nil {
		t.Fatal(err)
	}
	// Every value is handed off or buffered; wait for b to drain then close.
	for b.Len() > 0 {
		time.Sleep(time.Millisecond)
	}
	a.Close()
	b.Close()
	if err := cons.Wait(); err != nil {
		t.Fatal(err)
	}
	for v := range seen {
		if n := seen[v].Load(); n != 1 {
			t.Fatalf("value %d received %d times", v, n)
		}
	}
}

// =============================================================================
// Select - Misuse
// =============================================================================

func TestSelectMisusePanics(t *testing.T) {
	var nilCh *csp.Chan[int]
	tests := []struct {
		name string
		f    func()
		want string
	}{
		{"NoCases", func() { csp.Select() }, "csp: select blocks forever"},
		{"OnlyNilChannels", func() { csp.Select(nilCh.RecvCase(nil)) }, "csp: select blocks forever"},
		{"TwoDefaults", func() { csp.Select(csp.Default(), csp.Default()) }, "csp: multiple defaults in select"},
		{"NilCase", func() { csp.Select(nil) }, "csp: nil select case"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := panicValue(tt.f); got != tt.want {
				t.Fatalf("panic: got %v, want %q", got, tt.want)
			}
		})
	}

	if chosen, ok := csp.Select(csp.Default()); chosen != 0 || ok {
		t.Fatalf("default only: got (%d, %v)", chosen, ok)
	}
}
