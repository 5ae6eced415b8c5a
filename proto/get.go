package proto

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
)

var getCmd = []byte("get ")

// Get fetches one key. The response is either a value frame
//
//	VALUE <key> <flags> <len>\r\n<data>\r\nEND\r\n
//
// or a bare END\r\n on a miss.
type Get struct {
	Key []byte
}

// GetReply is the decoded outcome of a Get. A miss is a valid reply, not an
// error: Found is false and Value is nil.
type GetReply struct {
	Flags uint16
	Value []byte
	Found bool
}

func NewGet(key string) *Get {
	return &Get{Key: []byte(key)}
}

func (g *Get) Encode(w *bufio.Writer) error {
	if err := checkKey(g.Key); err != nil {
		return err
	}
	if _, err := w.Write(getCmd); err != nil {
		return err
	}
	if _, err := w.Write(g.Key); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}

// Complete scans a buffer prefix for a full response frame. For a value
// header the frame length is computed from the advertised data size; an
// unparsable header is treated as a one-line frame so Decode can reject it.
func (g *Get) Complete(buf []byte) (int, bool) {
	header, n, ok := line(buf)
	if !ok {
		return 0, false
	}
	fields := bytes.Fields(header)
	if len(fields) == 0 || !bytes.Equal(fields[0], value) {
		// miss, error line, or garbage: the line is the whole frame
		return n, true
	}
	if len(fields) != 4 {
		return n, true
	}
	size, err := strconv.ParseUint(string(fields[3]), 10, 32)
	if err != nil {
		return n, true
	}
	// header + data + crlf + "END\r\n"
	total := n + int(size) + len(crlf) + len(endLine)
	if len(buf) < total {
		return 0, false
	}
	return total, true
}

func (g *Get) Decode(frame []byte) (GetReply, error) {
	header, n, ok := line(frame)
	if !ok {
		return GetReply{}, fmt.Errorf("missing response header: %w", ErrBadResponse)
	}
	fields := bytes.Fields(header)
	if len(fields) == 0 {
		return GetReply{}, fmt.Errorf("empty response header: %w", ErrBadResponse)
	}
	if err := maybeError(fields); err != nil {
		return GetReply{}, err
	}
	if isEnd(fields) {
		return GetReply{}, nil
	}
	if !bytes.Equal(fields[0], value) {
		return GetReply{}, fmt.Errorf("expected value, got %q: %w", string(fields[0]), ErrBadResponse)
	}
	if len(fields) != 4 {
		return GetReply{}, fmt.Errorf("expected 3 parts after value, got %d: %w", len(fields)-1, ErrBadResponse)
	}
	if !bytes.Equal(fields[1], g.Key) {
		return GetReply{}, fmt.Errorf("incorrect key %q, requested %q: %w", string(fields[1]), string(g.Key), ErrBadResponse)
	}
	flags, err := strconv.ParseUint(string(fields[2]), 10, 16)
	if err != nil {
		return GetReply{}, fmt.Errorf("invalid flags: %w", ErrBadResponse)
	}
	size, err := strconv.ParseUint(string(fields[3]), 10, 32)
	if err != nil {
		return GetReply{}, fmt.Errorf("invalid length: %w", ErrBadResponse)
	}

	rest := frame[n:]
	if len(rest) < int(size)+len(crlf)+len(endLine) {
		return GetReply{}, fmt.Errorf("truncated value of %d bytes: %w", size, ErrBadResponse)
	}
	val := rest[:size]
	tail := rest[size:]
	if !bytes.HasPrefix(tail, crlf) || !bytes.Equal(tail[len(crlf):], endLine) {
		return GetReply{}, fmt.Errorf("after value expected \\r\\nEND\\r\\n: %w", ErrBadResponse)
	}

	// copy out of the lent buffer; the scheduler reuses it after this call
	out := make([]byte, size)
	copy(out, val)
	return GetReply{Flags: uint16(flags), Value: out, Found: true}, nil
}
