// Package gonet owns the sockets: the per-connection scheduler that drives
// request state machines, the connection pool, and a small server harness
// used by tests and tooling.
package gonet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/edwingeng/deque/v2"

	"kvclient-go/request"
)

// ErrConnClosed is returned by Send once the connection is torn down.
var ErrConnClosed = errors.New("connection closed")

const readChunkSize = 4 * 1024

// Connection multiplexes many in-flight requests over one socket. The write
// loop formats and flushes requests and appends them to the pending FIFO; the
// read loop accumulates inbound bytes and completes pending requests in
// strict arrival order, since the wire carries no request identifiers. Each
// request is only ever touched by one loop at a time: the write loop until it
// lands in the FIFO, the read loop after.
type Connection struct {
	conn net.Conn

	requests chan request.SchedulerRequest

	mu       sync.Mutex
	pending  *deque.Deque[request.SchedulerRequest]
	draining bool
	drainErr error

	closed    chan struct{}
	closeOnce sync.Once
}

func NewConnection(server string) (*Connection, error) {
	conn, err := net.Dial("tcp", server)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		conn:     conn,
		requests: make(chan request.SchedulerRequest),
		pending:  deque.NewDeque[request.SchedulerRequest](),
		closed:   make(chan struct{}),
	}
	go c.writeLoop()
	go c.readLoop()
	return c, nil
}

// Send hands a request to the connection's write loop. It blocks only for the
// handoff, never for the response; pair it with a BlockingRequest to wait.
func (c *Connection) Send(ctx context.Context, req request.SchedulerRequest) error {
	select {
	case c.requests <- req:
		return nil
	case <-c.closed:
		return ErrConnClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call sends op as a blocking request and waits for its single outcome.
func Call[T any](ctx context.Context, c *Connection, op request.Codec[T], timeout time.Duration) (T, error) {
	req := request.NewBlocking(op)
	if err := c.Send(ctx, req); err != nil {
		var zero T
		return zero, err
	}
	return req.Await(ctx, timeout)
}

func (c *Connection) IsOpen() bool {
	select {
	case <-c.closed:
		return false
	default:
		return true
	}
}

// Close tears the connection down. In-flight requests fail with a transport
// error; later Send calls return ErrConnClosed.
func (c *Connection) Close() {
	c.shut()
}

// shut makes the loops stop without touching any request: the read loop owns
// failing the pending ones.
func (c *Connection) shut() {
	c.closeOnce.Do(func() { close(c.closed) })
	_ = c.conn.Close()
}

// countingWriter counts the bytes that actually reached the socket, so the
// write loop can tell a purely local Format failure from one that already
// leaked a partial request onto the wire.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func (c *Connection) writeLoop() {
	cw := &countingWriter{w: c.conn}
	w := bufio.NewWriter(cw)
	for {
		var req request.SchedulerRequest
		select {
		case req = <-c.requests:
		case <-c.closed:
			return
		}

		sent := cw.n
		if err := req.Format(w); err != nil {
			if cw.n != sent {
				// the encoder overflowed the write buffer before failing, so
				// a prefix of the request is on the wire; the stream cannot
				// carry further requests
				req.Completed()
				c.shut()
				return
			}
			// purely local encoding failure: drop the buffered bytes and
			// keep the connection serving other requests
			w.Reset(cw)
			req.Completed()
			continue
		}

		c.mu.Lock()
		if c.draining {
			// the read loop already failed the FIFO; fail this request here
			// or its waiter never hears back
			err := c.drainErr
			c.mu.Unlock()
			req.Fail(err)
			req.Completed()
			return
		}
		// enqueue before flushing so a fast response always finds its request
		c.pending.PushFront(req)
		c.mu.Unlock()

		if err := w.Flush(); err != nil {
			// the read loop unblocks on the closed socket and fails this
			// request along with the rest of the FIFO
			c.shut()
			return
		}
	}
}

func (c *Connection) readLoop() {
	var buf []byte
	chunk := make([]byte, readChunkSize)
	for {
		n, err := c.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if cerr := c.consume(&buf); cerr != nil {
				c.shut()
				c.drain(cerr)
				return
			}
		}
		if err != nil {
			c.shut()
			c.drain(fmt.Errorf("receiving error: %w", err))
			return
		}
	}
}

// consume completes head-of-queue requests for as many full frames as buf
// holds, taking exactly each frame's bytes. Response bytes with nothing
// pending mean the stream is out of sync and the connection cannot be
// trusted anymore.
func (c *Connection) consume(buf *[]byte) error {
	for len(*buf) > 0 {
		c.mu.Lock()
		var head request.SchedulerRequest
		if c.pending.Len() > 0 {
			head = c.pending.PopBack()
		}
		c.mu.Unlock()
		if head == nil {
			return fmt.Errorf("%d response bytes with no request pending: %w", len(*buf), ErrConnClosed)
		}

		adv, ok := head.ResponseComplete(*buf)
		if !ok {
			// head still needs bytes; put it back at the front of the queue
			c.mu.Lock()
			c.pending.PushBack(head)
			c.mu.Unlock()
			return nil
		}

		head.Parse((*buf)[:adv])
		head.Completed()
		*buf = append((*buf)[:0], (*buf)[adv:]...)
	}
	return nil
}

// drain fails every pending request exactly once. Only the read loop calls
// it, so it never races a Parse on the same request. The draining flag closes
// the window where the write loop formats a request after the FIFO was
// already failed: such a request is failed by the write loop instead of
// being pushed into a queue nobody drains again.
func (c *Connection) drain(err error) {
	c.mu.Lock()
	c.draining = true
	c.drainErr = err
	var failed []request.SchedulerRequest
	for c.pending.Len() > 0 {
		failed = append(failed, c.pending.PopBack())
	}
	c.mu.Unlock()

	for _, req := range failed {
		req.Fail(err)
		req.Completed()
	}
}
