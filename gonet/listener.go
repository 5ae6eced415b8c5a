package gonet

import (
	"context"
	"fmt"
	"net"
)

// ConnectionHandler serves one accepted connection. New must not return until
// the connection is finished with; the listener's done channel closes when it
// is shutting down.
type ConnectionHandler interface {
	New(c net.Conn, done <-chan struct{})
}

type Listener struct {
	handler ConnectionHandler
	addr    string

	listener net.Listener
	done     chan struct{}
}

func NewListener(port int, handler ConnectionHandler) *Listener {
	return NewListenerForAddr(fmt.Sprintf(":%d", port), handler)
}

func NewListenerForAddr(addr string, handler ConnectionHandler) *Listener {
	return &Listener{
		handler: handler,
		addr:    addr,

		done: make(chan struct{}),
	}
}

func (l *Listener) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return err
	}

	l.listener = listener
	go l.listen()
	return nil
}

func (l *Listener) listen() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			return
		}
		go l.handler.New(conn, l.done)
	}
}

func (l *Listener) Address() net.Addr {
	return l.listener.Addr()
}

func (l *Listener) Close() error {
	close(l.done)
	return l.listener.Close()
}
