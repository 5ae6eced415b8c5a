package proto

import (
	"bufio"
	"bytes"
	"fmt"
	"time"
)

var setCmd = []byte("set ")

// Set stores a value under a key. The response is a single line, STORED or
// NOT_STORED.
type Set struct {
	Key     []byte
	Flags   uint16
	Value   []byte
	Exptime int32
}

type SetReply struct {
	Stored bool
}

func NewSet(key string, flags uint16, value []byte, ttl time.Duration) *Set {
	return &Set{Key: []byte(key), Flags: flags, Value: value, Exptime: ttlToExptime(ttl)}
}

func (s *Set) Encode(w *bufio.Writer) error {
	if err := checkKey(s.Key); err != nil {
		return err
	}
	if _, err := w.Write(setCmd); err != nil {
		return err
	}
	if _, err := w.Write(s.Key); err != nil {
		return err
	}
	params := fmt.Sprintf(" %d %d %d\r\n", s.Flags, s.Exptime, len(s.Value))
	if _, err := w.WriteString(params); err != nil {
		return err
	}
	if _, err := w.Write(s.Value); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}

func (s *Set) Complete(buf []byte) (int, bool) {
	_, n, ok := line(buf)
	return n, ok
}

func (s *Set) Decode(frame []byte) (SetReply, error) {
	header, _, ok := line(frame)
	if !ok {
		return SetReply{}, fmt.Errorf("missing response header: %w", ErrBadResponse)
	}
	fields := bytes.Fields(header)
	if len(fields) == 0 {
		return SetReply{}, fmt.Errorf("empty response header: %w", ErrBadResponse)
	}
	if err := maybeError(fields); err != nil {
		return SetReply{}, err
	}
	switch {
	case bytes.Equal(fields[0], stored):
		return SetReply{Stored: true}, nil
	case bytes.Equal(fields[0], notStored):
		return SetReply{}, nil
	}
	return SetReply{}, fmt.Errorf("expected stored, got %q: %w", string(fields[0]), ErrBadResponse)
}
