// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package csp

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrClosed is returned by Send and TrySend when the channel is closed,
// either before the call or while the sender was parked.
var ErrClosed = errors.New("csp: send on closed channel")

// ErrCanceled is the error returned by [Context.Err] when the context was
// canceled through its [CancelFunc] or through an ancestor.
var ErrCanceled = errors.New("csp: context canceled")

// ErrDeadlineExceeded is the error returned by [Context.Err] when the
// context's deadline passed. It reports Timeout() == true.
var ErrDeadlineExceeded error = deadlineExceededError{}

type deadlineExceededError struct{}

func (deadlineExceededError) Error() string   { return "csp: context deadline exceeded" }
func (deadlineExceededError) Timeout() bool   { return true }
func (deadlineExceededError) Temporary() bool { return true }

// ErrWouldBlock indicates the operation cannot proceed without parking.
//
// For TrySend: no receiver is parked and the buffer is full
// For TryRecv: no sender is parked and the buffer is empty
//
// ErrWouldBlock is a control flow signal, not a failure. A closed channel is
// never reported as ErrWouldBlock: TrySend returns [ErrClosed] and TryRecv
// reports ok == false.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := ch.TrySend(item)
//	    if err == nil {
//	        break
//	    }
//	    if csp.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err // ErrClosed
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrWouldBlock, or ErrMore.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
