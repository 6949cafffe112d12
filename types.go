// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

// Channel is the combined sender-receiver interface implemented by [Chan].
//
// Functions that only produce or only consume should accept [Sender] or
// [Receiver] instead, so that callers can pass a [RecvOnly] view where
// closing must stay with the owner.
//
// Example:
//
//	func pump(dst csp.Sender[int], src csp.Receiver[int]) error {
//	    for {
//	        v, ok := src.Recv()
//	        if !ok {
//	            return nil
//	        }
//	        if err := dst.Send(v); err != nil {
//	            return err
//	        }
//	    }
//	}
type Channel[T any] interface {
	Sender[T]
	Receiver[T]
	Close()
}

// Sender is the interface for sending values.
type Sender[T any] interface {
	// Send delivers v, parking until it is taken or buffered.
	// Returns ErrClosed if the channel is closed.
	Send(v T) error

	// TrySend delivers v only without parking.
	// Returns ErrWouldBlock if it would park, ErrClosed if closed.
	TrySend(v T) error

	// SendCase returns a Select case sending v.
	SendCase(v T) Case

	Cap() int
}

// Receiver is the interface for receiving values.
type Receiver[T any] interface {
	// Recv takes the next value, parking until one is available.
	// Returns (zero-value, false) once closed and drained.
	Recv() (T, bool)

	// TryRecv takes the next value only without parking.
	// Returns ErrWouldBlock if it would park.
	TryRecv() (T, bool, error)

	// RecvCase returns a Select case receiving into *dst.
	RecvCase(dst *T) Case

	Len() int
	Cap() int
}

var (
	_ Channel[int]  = (*Chan[int])(nil)
	_ Receiver[int] = RecvOnly[int]{}
)
