package gonet

import (
	"bufio"
	"net"
)

// ServerRequest is one inbound command: handled off the read loop, answered
// in arrival order. WriteResponse must emit exactly one complete frame, since
// clients match responses to requests by position.
type ServerRequest interface {
	Handle()
	WriteResponse(w *bufio.Writer) error
}

type RequestHandler interface {
	ReadRequest(r *bufio.Reader) (ServerRequest, error)
}

// Server serves one accepted connection: a read loop decodes requests and
// hands them to the handler, a write loop sends the responses back in the
// order the requests arrived, regardless of which finished handling first.
type Server struct {
	handler RequestHandler
	conn    net.Conn
	done    <-chan struct{}

	requests chan *pendingReply
}

type pendingReply struct {
	request ServerRequest
	handled chan struct{}
}

func NewServer(handler RequestHandler, conn net.Conn, done <-chan struct{}) *Server {
	return &Server{
		handler: handler,
		conn:    conn,
		done:    done,

		requests: make(chan *pendingReply),
	}
}

func (s *Server) Run() {
	go s.requestLoop()
	s.responseLoop()
	s.close()
}

func (s *Server) requestLoop() {
	defer close(s.requests)

	reader := bufio.NewReaderSize(s.conn, 1024)
	for {
		request, err := s.handler.ReadRequest(reader)
		if err != nil {
			return
		}
		pending := &pendingReply{request: request, handled: make(chan struct{})}
		s.requests <- pending
		go s.handle(pending)
	}
}

func (s *Server) handle(pending *pendingReply) {
	pending.request.Handle()
	close(pending.handled)
}

func (s *Server) responseLoop() {
	writer := bufio.NewWriter(s.conn)
	for pending := range s.requests {
		<-pending.handled
		err := pending.request.WriteResponse(writer)
		if err != nil {
			break
		}
		err = writer.Flush()
		if err != nil {
			break
		}
	}

	for range s.requests {
		// discarding any remaining requests
	}
}

// close runs after the responseLoop finished, either because all requests
// were answered or because a write failed. The requestLoop may still be
// blocked on the socket and is unblocked by closing it.
func (s *Server) close() {
	_ = s.conn.Close()

	// wait for the requestLoop to close the channel
	for range s.requests {
	}

	s.conn = nil
}

// ServerFactory adapts a RequestHandler to the listener's per-connection
// contract.
type ServerFactory struct {
	handler RequestHandler
}

func NewServerFactory(handler RequestHandler) *ServerFactory {
	return &ServerFactory{handler: handler}
}

func (s *ServerFactory) New(conn net.Conn, done <-chan struct{}) {
	svr := NewServer(s.handler, conn, done)
	// blocks until the connection is finished, per the ConnectionHandler
	// contract; the listener gives each connection its own goroutine
	svr.Run()
}
