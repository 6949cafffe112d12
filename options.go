// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

import "github.com/sirupsen/logrus"

// Options configures channel creation.
type Options struct {
	// Buffer capacity (0 = unbuffered)
	capacity int

	// Diagnostics
	name string

	// Performance hints
	spins int // spin.Wait iterations before blocking on the condition variable
}

// Builder creates channels with fluent configuration.
//
// Example:
//
//	// Unbuffered channel with a diagnostic name
//	jobs := csp.Build[Job](csp.New(0).Name("jobs"))
//
//	// Buffered channel whose parked goroutines spin briefly before blocking
//	events := csp.Build[Event](csp.New(256).Spin(64))
type Builder struct {
	opts Options
}

// New creates a channel builder with the given buffer capacity.
//
// Capacity is exact: capacity=3 buffers exactly 3 values.
// Capacity 0 selects an unbuffered (rendezvous) channel.
//
// Panics if capacity < 0.
func New(capacity int) *Builder {
	if capacity < 0 {
		fatal("csp: capacity must be >= 0", logrus.Fields{"cap": capacity})
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// Name sets the name reported by [Chan.Name] and in diagnostics logs.
func (b *Builder) Name(name string) *Builder {
	b.opts.name = name
	return b
}

// Spin sets how many times a parked goroutine checks for its wakeup with a
// CPU pause before blocking on its condition variable.
//
// Trade-off: lower wakeup latency for short waits, wasted CPU for long ones.
// The default is 0 (block immediately). Panics if n < 0.
func (b *Builder) Spin(n int) *Builder {
	if n < 0 {
		fatal("csp: spin count must be >= 0", logrus.Fields{"spins": n})
	}
	b.opts.spins = n
	return b
}

// Build creates a channel from the builder configuration.
// The builder may be reused; every call returns a new channel.
func Build[T any](b *Builder) *Chan[T] {
	return newChan[T](b.opts)
}
