package gonet

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/rand"

	"kvclient-go/request"
)

// Pool hands out ready connections to one destination. Connections are shared
// through a slot channel; a request only borrows a slot for the send handoff,
// so many callers can pipeline onto the same connection while one of them
// waits for its response.
type Pool struct {
	addr    string
	minCons int
	maxCons int

	// isOpen is read by growth goroutines racing Close
	isOpen atomic.Bool

	slots chan *Connection

	conns    []*Connection
	connLock sync.Mutex
}

func NewPool(addr string, minCons, maxCons int) (*Pool, error) {
	p := &Pool{
		addr:    addr,
		minCons: minCons,
		maxCons: maxCons,

		slots: make(chan *Connection, maxCons),
		conns: make([]*Connection, 0, maxCons),
	}
	p.isOpen.Store(true)
	err := p.connect(minCons)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Pool) connect(n int) error {
	p.connLock.Lock()
	defer p.connLock.Unlock()

	for i := 0; i < n; i++ {
		conn, err := NewConnection(p.addr)
		if err != nil {
			return err
		}
		p.conns = append(p.conns, conn)
		p.slots <- conn
	}
	return nil
}

// Do runs one operation through the pool: borrow a connection, send a
// blocking request, return the slot, wait for the outcome. Dead connections
// found in the slot channel are skipped and swept by the next growth pass.
func Do[T any](ctx context.Context, p *Pool, op request.Codec[T], timeout time.Duration) (T, error) {
	var zero T
	for {
		if len(p.slots) == 0 {
			go p.maybeGrow(0)
		}

		select {
		case conn := <-p.slots:
			if !conn.IsOpen() {
				continue
			}

			req := request.NewBlocking(op)
			err := conn.Send(ctx, req)
			if err != nil {
				if errors.Is(err, ErrConnClosed) {
					// lost the race with a teardown; drop the slot and retry
					continue
				}
				p.slots <- conn
				return zero, err
			}

			// request is on the wire, the slot can serve other callers
			p.slots <- conn
			return req.Await(ctx, timeout)

		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func (p *Pool) maybeGrow(initialWait time.Duration) {
	if !p.isOpen.Load() {
		return
	}

	if initialWait > 0 {
		time.Sleep(initialWait)
	}

	if !p.connLock.TryLock() {
		// Already being handled
		return
	}
	defer p.connLock.Unlock()

	// re-check after taking the lock so a concurrent Close is not grown past
	if !p.isOpen.Load() {
		return
	}

	// Remove all dead connections first
	p.conns = slices.DeleteFunc(p.conns, func(conn *Connection) bool { return !conn.IsOpen() })

	if len(p.conns) < p.maxCons {
		conn, err := NewConnection(p.addr)
		if err != nil {
			go p.maybeGrow(growBackoff(initialWait))
			return
		}
		p.conns = append(p.conns, conn)
		p.slots <- conn
	}
}

// growBackoff escalates the redial wait and jitters it so concurrent growers
// do not stampede the server.
func growBackoff(prev time.Duration) time.Duration {
	wait := time.Second + prev*3/2
	if wait > 30*time.Second {
		wait = 30 * time.Second
	}
	return wait + time.Duration(rand.Int63n(int64(wait/4)))
}

func (p *Pool) Close() {
	p.connLock.Lock()
	defer p.connLock.Unlock()

	p.isOpen.Store(false)
	for _, conn := range p.conns {
		conn.Close()
	}
	p.conns = nil
}
