package proto

import (
	"bufio"
	"bytes"
	"fmt"
)

var deleteCmd = []byte("delete ")

// Delete removes a key. The response is a single line, DELETED or NOT_FOUND.
type Delete struct {
	Key []byte
}

type DeleteReply struct {
	Deleted bool
}

func NewDelete(key string) *Delete {
	return &Delete{Key: []byte(key)}
}

func (d *Delete) Encode(w *bufio.Writer) error {
	if err := checkKey(d.Key); err != nil {
		return err
	}
	if _, err := w.Write(deleteCmd); err != nil {
		return err
	}
	if _, err := w.Write(d.Key); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}

func (d *Delete) Complete(buf []byte) (int, bool) {
	_, n, ok := line(buf)
	return n, ok
}

func (d *Delete) Decode(frame []byte) (DeleteReply, error) {
	header, _, ok := line(frame)
	if !ok {
		return DeleteReply{}, fmt.Errorf("missing response header: %w", ErrBadResponse)
	}
	fields := bytes.Fields(header)
	if len(fields) == 0 {
		return DeleteReply{}, fmt.Errorf("empty response header: %w", ErrBadResponse)
	}
	if err := maybeError(fields); err != nil {
		return DeleteReply{}, err
	}
	switch {
	case bytes.Equal(fields[0], deleted):
		return DeleteReply{Deleted: true}, nil
	case bytes.Equal(fields[0], notFound):
		return DeleteReply{}, nil
	}
	return DeleteReply{}, fmt.Errorf("expected deleted, got %q: %w", string(fields[0]), ErrBadResponse)
}
