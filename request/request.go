// Package request implements the per-request protocol state machine shared by
// the blocking and the non-blocking client paths. One ClientRequest is created
// per logical operation, handed to a connection scheduler, and dropped once
// the caller has consumed the result; requests are never pooled or reused.
package request

import (
	"bufio"
	"fmt"
)

// Codec is the wire capability one operation type provides: how to encode the
// request, how to recognize a complete response frame in a buffer prefix, and
// how to decode that frame. Any operation implementing Codec can be driven
// through the same state machine.
//
// Complete follows the bufio.SplitFunc convention: it returns (0, false)
// until buf holds a full response frame, and (frameLen, true) once it does.
// It must be pure, must accept any prefix including an empty one, and must
// give the same answer for a given prefix no matter how the bytes arrived.
type Codec[T any] interface {
	Encode(w *bufio.Writer) error
	Complete(buf []byte) (advance int, ok bool)
	Decode(frame []byte) (T, error)
}

// SchedulerRequest is the connection-facing side of a request: everything a
// scheduler needs to drive one request over a socket, with the result type
// erased. Only the scheduler may call these methods, and never concurrently
// for the same request; callers observe the outcome through Result or a
// blocking adapter instead.
type SchedulerRequest interface {
	// Format encodes the request into w. An encoding failure completes the
	// request with ErrFormat and is also returned, so the scheduler skips the
	// request without unwinding its loop. Calling Format twice is a usage
	// error.
	Format(w *bufio.Writer) error

	// ResponseComplete reports whether buf starts with the request's full
	// response frame, and the frame length when it does. It never mutates the
	// request and may be called repeatedly with a growing buffer. Once the
	// request is terminal it reports (0, true) so a scheduler never waits for
	// bytes on a dead request.
	ResponseComplete(buf []byte) (advance int, ok bool)

	// Parse decodes the frame into the result slot, or records a decode error
	// to be surfaced by Result. It trusts that ResponseComplete returned ok
	// for this buffer; a truncated frame degrades to a recorded error, never a
	// panic. No-op once terminal. Parse does no I/O and never blocks.
	Parse(frame []byte)

	// Fail forces the terminal state with a transport error, bypassing parse.
	// No-op once terminal; the first error wins.
	Fail(err error)

	// Completed is the scheduler's exactly-once notification that the request
	// reached its terminal state, by any path. The scheduler must call it
	// once, after the last mutation of the request; this is a documented
	// precondition, not something the request re-checks.
	Completed()
}

type state int

const (
	// stateUnformatted: created, not yet encoded.
	stateUnformatted state = iota
	// stateFormatted: encoded and in flight, awaiting the response. The
	// handoff to the scheduler is not observable by the request itself, so
	// there is no separate awaiting state.
	stateFormatted
	// stateComplete is terminal: exactly one of result/err is populated and
	// neither is ever overwritten.
	stateComplete
)

// ClientRequest is the state machine for a single request/response exchange.
// All mutation happens on the scheduler's goroutines; the zero-lock design
// relies on the scheduler's single-writer discipline and, for cross-goroutine
// result visibility, on the completion signal of a blocking adapter.
type ClientRequest[T any] struct {
	op Codec[T]

	state  state
	result T
	err    error
}

func New[T any](op Codec[T]) *ClientRequest[T] {
	return &ClientRequest[T]{op: op}
}

func (r *ClientRequest[T]) Format(w *bufio.Writer) error {
	if r.state != stateUnformatted {
		return fmt.Errorf("%w: format called twice", ErrUsage)
	}
	if err := r.op.Encode(w); err != nil {
		r.err = fmt.Errorf("%w: %w", ErrFormat, err)
		r.state = stateComplete
		return r.err
	}
	r.state = stateFormatted
	return nil
}

func (r *ClientRequest[T]) ResponseComplete(buf []byte) (int, bool) {
	if r.state == stateComplete {
		return 0, true
	}
	return r.op.Complete(buf)
}

func (r *ClientRequest[T]) Parse(frame []byte) {
	if r.state == stateComplete {
		return
	}
	val, err := r.op.Decode(frame)
	if err != nil {
		r.err = fmt.Errorf("%w: %w", ErrProtocol, err)
	} else {
		r.result = val
	}
	r.state = stateComplete
}

func (r *ClientRequest[T]) Fail(err error) {
	if r.state == stateComplete {
		return
	}
	r.err = fmt.Errorf("%w: %w", ErrTransport, err)
	r.state = stateComplete
}

// Completed is a no-op hook here; blocking adapters override it to release
// their waiter. Kept on the base type so a bare ClientRequest satisfies
// SchedulerRequest for fully synchronous use.
func (r *ClientRequest[T]) Completed() {}

// Result returns the decoded value or the stored error. Before completion it
// fails with ErrNotComplete; after completion it is deterministic and may be
// called any number of times.
func (r *ClientRequest[T]) Result() (T, error) {
	var zero T
	if r.state != stateComplete {
		return zero, ErrNotComplete
	}
	if r.err != nil {
		return zero, r.err
	}
	return r.result, nil
}
