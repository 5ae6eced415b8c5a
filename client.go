// Package kvclient_go is the user-facing client for the KV store: typed
// operations over a pool of pipelined connections. Each call builds one
// request state machine, hands it to a connection scheduler, and blocks until
// the response frame is parsed or the transport fails.
package kvclient_go

import (
	"context"
	"errors"
	"time"

	"kvclient-go/gonet"
	"kvclient-go/proto"
)

// ErrNotStored is returned by Set when the server declined the write.
var ErrNotStored = errors.New("not stored")

type Client struct {
	pool *gonet.Pool

	// Timeout caps each call's wait for a response; zero leaves the deadline
	// to the caller's context. On timeout the outcome is unknown and the
	// in-flight request is discarded, not retried.
	Timeout time.Duration
}

func NewClient(addr string, minConns, maxConns int) (*Client, error) {
	pool, err := gonet.NewPool(addr, minConns, maxConns)
	if err != nil {
		return nil, err
	}
	return &Client{pool: pool}, nil
}

func (c *Client) Close() {
	c.pool.Close()
}

// Get returns the value and flags stored under key. A miss is not an error:
// it returns a nil value and zero flags.
func (c *Client) Get(ctx context.Context, key string) ([]byte, uint16, error) {
	reply, err := gonet.Do(ctx, c.pool, proto.NewGet(key), c.Timeout)
	if err != nil {
		return nil, 0, err
	}
	if !reply.Found {
		return nil, 0, nil
	}
	return reply.Value, reply.Flags, nil
}

func (c *Client) GetV(ctx context.Context, key string) ([]byte, error) {
	val, _, err := c.Get(ctx, key)
	return val, err
}

// Set stores val under key. Stored reports false when the server refused the
// write without an error frame.
func (c *Client) Set(ctx context.Context, key string, flags uint16, val []byte, ttl time.Duration) error {
	reply, err := gonet.Do(ctx, c.pool, proto.NewSet(key, flags, val, ttl), c.Timeout)
	if err != nil {
		return err
	}
	if !reply.Stored {
		return ErrNotStored
	}
	return nil
}

func (c *Client) SetV(ctx context.Context, key string, val []byte) error {
	return c.Set(ctx, key, 0, val, 0)
}

// Delete removes key and reports whether it existed.
func (c *Client) Delete(ctx context.Context, key string) (bool, error) {
	reply, err := gonet.Do(ctx, c.pool, proto.NewDelete(key), c.Timeout)
	if err != nil {
		return false, err
	}
	return reply.Deleted, nil
}
