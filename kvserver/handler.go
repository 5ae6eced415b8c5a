// Package kvserver is a minimal in-memory server side of the wire protocol.
// It backs the integration tests, the benchmark, and the CLI's serve command.
// Expiry is accepted on the wire but not enforced.
package kvserver

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"kvclient-go/gonet"
)

type item struct {
	flags uint16
	value []byte
}

type Store struct {
	mu    sync.Mutex
	items map[string]item
}

func NewStore() *Store {
	return &Store{items: map[string]item{}}
}

func (s *Store) get(key string) (item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	return it, ok
}

func (s *Store) set(key string, it item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = it
}

func (s *Store) delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[key]
	delete(s.items, key)
	return ok
}

// Handler decodes protocol commands into gonet server requests.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ReadRequest(r *bufio.Reader) (gonet.ServerRequest, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(strings.TrimSuffix(line, "\r\n"))
	if len(fields) == 0 {
		return errorReply("ERROR"), nil
	}

	switch fields[0] {
	case "get":
		if len(fields) != 2 {
			return errorReply("CLIENT_ERROR get expects exactly one key"), nil
		}
		return &getRequest{store: h.store, key: fields[1]}, nil

	case "set":
		if len(fields) != 5 {
			return errorReply("CLIENT_ERROR set expects key flags exptime bytes"), nil
		}
		size, err := strconv.ParseUint(fields[4], 10, 32)
		if err != nil {
			// without a trustworthy length the data block cannot be skipped
			return nil, fmt.Errorf("unreadable set length %q", fields[4])
		}
		data := make([]byte, size+2)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		flags, err := strconv.ParseUint(fields[2], 10, 16)
		if err != nil {
			return errorReply("CLIENT_ERROR bad flags"), nil
		}
		return &setRequest{store: h.store, key: fields[1], flags: uint16(flags), value: data[:size]}, nil

	case "delete":
		if len(fields) != 2 {
			return errorReply("CLIENT_ERROR delete expects exactly one key"), nil
		}
		return &deleteRequest{store: h.store, key: fields[1]}, nil
	}
	return errorReply("ERROR"), nil
}

// reply is a fixed single-line response needing no handling.
type reply struct {
	text string
}

func errorReply(line string) *reply {
	return &reply{text: line + "\r\n"}
}

func (r *reply) Handle() {}

func (r *reply) WriteResponse(w *bufio.Writer) error {
	_, err := w.WriteString(r.text)
	return err
}

type getRequest struct {
	store *Store
	key   string
	resp  []byte
}

func (g *getRequest) Handle() {
	it, ok := g.store.get(g.key)
	if !ok {
		g.resp = []byte("END\r\n")
		return
	}
	g.resp = fmt.Appendf(nil, "VALUE %s %d %d\r\n", g.key, it.flags, len(it.value))
	g.resp = append(g.resp, it.value...)
	g.resp = append(g.resp, "\r\nEND\r\n"...)
}

func (g *getRequest) WriteResponse(w *bufio.Writer) error {
	_, err := w.Write(g.resp)
	return err
}

type setRequest struct {
	store *Store
	key   string
	flags uint16
	value []byte
}

func (s *setRequest) Handle() {
	s.store.set(s.key, item{flags: s.flags, value: s.value})
}

func (s *setRequest) WriteResponse(w *bufio.Writer) error {
	_, err := w.WriteString("STORED\r\n")
	return err
}

type deleteRequest struct {
	store   *Store
	key     string
	deleted bool
}

func (d *deleteRequest) Handle() {
	d.deleted = d.store.delete(d.key)
}

func (d *deleteRequest) WriteResponse(w *bufio.Writer) error {
	if d.deleted {
		_, err := w.WriteString("DELETED\r\n")
		return err
	}
	_, err := w.WriteString("NOT_FOUND\r\n")
	return err
}
