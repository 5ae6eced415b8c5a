// Package proto implements the text wire protocol for the KV store: one
// operation type per command, each satisfying the request.Codec capability.
// Completeness checks work on a raw buffer prefix so the connection scheduler
// can decide frame boundaries without consuming bytes.
package proto

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	crlf  = []byte("\r\n")
	space = []byte(" ")

	end     = []byte("END")
	endLine = []byte("END\r\n")
	value   = []byte("VALUE")
	stored  = []byte("STORED")

	notStored = []byte("NOT_STORED")
	deleted   = []byte("DELETED")
	notFound  = []byte("NOT_FOUND")

	genError    = []byte("ERROR")
	clientError = []byte("CLIENT_ERROR")
	serverError = []byte("SERVER_ERROR")

	ErrClientError = errors.New("kv client error")
	ErrServerError = errors.New("kv server error")
	ErrGenError    = errors.New("kv error")
	ErrBadResponse = errors.New("bad kv response")
	ErrBadKey      = errors.New("invalid key")
)

const maxKeyLen = 250

// line returns the first crlf-terminated line of buf without its terminator,
// plus the number of bytes the full line occupies.
func line(buf []byte) (ln []byte, n int, ok bool) {
	i := bytes.Index(buf, crlf)
	if i < 0 {
		return nil, 0, false
	}
	return buf[:i], i + len(crlf), true
}

func maybeError(header [][]byte) error {
	if err := parseErrorX(header, clientError, ErrClientError); err != nil {
		return err
	}
	if err := parseErrorX(header, serverError, ErrServerError); err != nil {
		return err
	}
	if err := parseErrorX(header, genError, ErrGenError); err != nil {
		return err
	}
	return nil
}

func parseErrorX(header [][]byte, errorX []byte, err error) error {
	if bytes.Equal(header[0], errorX) {
		if len(header) >= 2 {
			return fmt.Errorf("%w: %s", err, string(bytes.Join(header[1:], space)))
		}
		return err
	}
	return nil
}

func isEnd(header [][]byte) bool {
	return bytes.Equal(header[0], end)
}

func validKey(key []byte) bool {
	if len(key) == 0 || len(key) > maxKeyLen {
		return false
	}
	for _, b := range key {
		if b <= ' ' || b == 0x7f {
			return false
		}
	}
	return true
}

func checkKey(key []byte) error {
	if !validKey(key) {
		return fmt.Errorf("%w: %q", ErrBadKey, string(key))
	}
	return nil
}
