package request

import (
	"context"
	"time"
)

// BlockingRequest adapts a ClientRequest for conventional call/return code: a
// scheduler drives the embedded state machine, and the calling goroutine
// blocks in Await until Completed fires the signal. The Completed → Signal →
// Await chain makes the result visible to the waiter without extra locking.
type BlockingRequest[T any] struct {
	*ClientRequest[T]
	sig *Signal[T]
}

func NewBlocking[T any](op Codec[T]) *BlockingRequest[T] {
	return &BlockingRequest[T]{
		ClientRequest: New(op),
		sig:           NewSignal[T](),
	}
}

// Completed releases the waiter with whatever outcome the request holds. Like
// the base contract, the scheduler calls it exactly once, after the terminal
// state was reached.
func (b *BlockingRequest[T]) Completed() {
	b.ClientRequest.Completed()
	b.sig.Signal(b.ClientRequest.Result())
}

// Await blocks until the request completes and returns its single outcome: the
// decoded value, or exactly one error. On ErrTimeout or context cancellation
// the request is still pending underneath and must simply be discarded; a
// completion arriving later is dropped by the signal.
func (b *BlockingRequest[T]) Await(ctx context.Context, timeout time.Duration) (T, error) {
	return b.sig.Wait(ctx, timeout)
}

// Done exposes the completion channel for callers selecting across several
// in-flight requests.
func (b *BlockingRequest[T]) Done() <-chan struct{} {
	return b.sig.Done()
}
