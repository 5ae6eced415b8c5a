package request

import (
	"context"
	"sync/atomic"
	"time"
)

// Signal carries one request's outcome from the goroutine that completes it to
// the single goroutine waiting on it. The outcome cell is write-once: the
// first Signal call wins, every later call is dropped. Reading the cell after
// the channel close is safe without further synchronization because the close
// orders the store before the waiter's load.
type Signal[T any] struct {
	fired atomic.Bool
	val   T
	err   error
	done  chan struct{}
}

func NewSignal[T any]() *Signal[T] {
	return &Signal[T]{done: make(chan struct{})}
}

// Signal stores the outcome and wakes the waiter. First call wins; later
// calls, including ones arriving after the waiter already gave up, are
// ignored.
func (s *Signal[T]) Signal(val T, err error) {
	if !s.fired.CompareAndSwap(false, true) {
		return
	}
	s.val = val
	s.err = err
	close(s.done)
}

// Done exposes the completion channel for callers that want to select on it
// themselves.
func (s *Signal[T]) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the signal fires, the timeout elapses, or ctx is
// cancelled. A timeout surfaces as ErrTimeout, cancellation as the context's
// error; both leave the underlying request logically pending, and a late
// Signal is simply dropped. A timeout of zero means no deadline. At most one
// goroutine may wait on a given signal.
func (s *Signal[T]) Wait(ctx context.Context, timeout time.Duration) (T, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	var zero T
	select {
	case <-s.done:
		return s.val, s.err
	case <-expired:
		return zero, ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
