package gonet

import (
	"net"
	"sync"
)

// Tracking wraps a ConnectionHandler and reports, via Done, when every
// connection it ever served has finished. Tests use it to wait for server
// loops to wind down after closing a listener.
type Tracking struct {
	inner ConnectionHandler

	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

func WithTracking(inner ConnectionHandler) *Tracking {
	return &Tracking{
		inner: inner,
		done:  make(chan struct{}),
	}
}

func (t *Tracking) New(c net.Conn, done <-chan struct{}) {
	t.wg.Add(1)
	defer t.wg.Done()
	t.inner.New(c, done)
}

// Done closes once all started connections have finished. Call it only after
// the listener stopped accepting, otherwise a late connection may still start
// after the channel closed.
func (t *Tracking) Done() <-chan struct{} {
	t.once.Do(func() {
		go func() {
			t.wg.Wait()
			close(t.done)
		}()
	})
	return t.done
}
