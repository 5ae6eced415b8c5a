package request

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"kvclient-go/testutil"
)

// lineCodec is a minimal newline-framed protocol for driving the state
// machine without a real wire format.
type lineCodec struct {
	cmd       string
	encodeErr error
	decodeErr error
}

func (c *lineCodec) Encode(w *bufio.Writer) error {
	if c.encodeErr != nil {
		return c.encodeErr
	}
	_, err := w.WriteString(c.cmd + "\n")
	return err
}

func (c *lineCodec) Complete(buf []byte) (int, bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return 0, false
	}
	return i + 1, true
}

func (c *lineCodec) Decode(frame []byte) (string, error) {
	if c.decodeErr != nil {
		return "", c.decodeErr
	}
	return strings.TrimSuffix(string(frame), "\n"), nil
}

type RequestSuite struct {
	testutil.BaseSuite
}

func TestRequestSuite(t *testing.T) {
	suite.Run(t, new(RequestSuite))
}

func (s *RequestSuite) format(req *ClientRequest[string]) *bytes.Buffer {
	out := &bytes.Buffer{}
	w := bufio.NewWriter(out)
	s.Require().NoError(req.Format(w))
	s.Require().NoError(w.Flush())
	return out
}

func (s *RequestSuite) TestFormatWritesRequest() {
	req := New[string](&lineCodec{cmd: "ping"})
	out := s.format(req)
	s.Assert().Equal("ping\n", out.String())
}

func (s *RequestSuite) TestFormatTwiceIsUsageError() {
	req := New[string](&lineCodec{cmd: "ping"})
	s.format(req)

	err := req.Format(bufio.NewWriter(&bytes.Buffer{}))
	s.Require().Error(err)
	s.Assert().ErrorIs(err, ErrUsage)
}

func (s *RequestSuite) TestResultBeforeCompletion() {
	req := New[string](&lineCodec{cmd: "ping"})
	s.format(req)

	_, err := req.Result()
	s.Require().Error(err)
	s.Assert().ErrorIs(err, ErrNotComplete)
	s.Assert().ErrorIs(err, ErrUsage)
}

func (s *RequestSuite) TestCompletenessUnderChunkedDelivery() {
	req := New[string](&lineCodec{cmd: "ping"})
	s.format(req)

	response := []byte("pong\n")

	// empty buffer is a valid question
	n, ok := req.ResponseComplete(nil)
	s.Assert().Zero(n)
	s.Assert().False(ok)

	// false for every strict prefix, regardless of how the bytes arrived
	for i := 1; i < len(response); i++ {
		n, ok = req.ResponseComplete(response[:i])
		s.Assert().Zero(n)
		s.Assert().False(ok)
	}

	n, ok = req.ResponseComplete(response)
	s.Require().True(ok)
	s.Assert().Equal(len(response), n)

	// repeatable, and pure: asking did not advance the state machine
	n, ok = req.ResponseComplete(response)
	s.Require().True(ok)
	s.Assert().Equal(len(response), n)
	_, err := req.Result()
	s.Assert().ErrorIs(err, ErrNotComplete)
}

func (s *RequestSuite) TestParseStoresResultOnce() {
	req := New[string](&lineCodec{cmd: "ping"})
	s.format(req)

	req.Parse([]byte("pong\n"))

	val, err := req.Result()
	s.Require().NoError(err)
	s.Assert().Equal("pong", val)

	// terminal state: later calls cannot overwrite the outcome
	req.Parse([]byte("other\n"))
	req.Fail(io.ErrUnexpectedEOF)

	val, err = req.Result()
	s.Require().NoError(err)
	s.Assert().Equal("pong", val)
}

func (s *RequestSuite) TestEncodeFailureCompletesRequest() {
	encErr := errors.New("boom")
	req := New[string](&lineCodec{cmd: "ping", encodeErr: encErr})

	err := req.Format(bufio.NewWriter(&bytes.Buffer{}))
	s.Require().Error(err)
	s.Assert().ErrorIs(err, ErrFormat)
	s.Assert().ErrorIs(err, encErr)

	// terminal: a scheduler polling this request must not wait for bytes
	n, ok := req.ResponseComplete(nil)
	s.Assert().Zero(n)
	s.Assert().True(ok)

	_, err = req.Result()
	s.Assert().ErrorIs(err, ErrFormat)
}

func (s *RequestSuite) TestDecodeFailureSurfacesAsProtocolError() {
	decErr := errors.New("garbled")
	req := New[string](&lineCodec{cmd: "ping", decodeErr: decErr})
	s.format(req)

	req.Parse([]byte("pong\n"))

	_, err := req.Result()
	s.Require().Error(err)
	s.Assert().ErrorIs(err, ErrProtocol)
	s.Assert().ErrorIs(err, decErr)
}

func (s *RequestSuite) TestInjectedTransportError() {
	req := New[string](&lineCodec{cmd: "ping"})
	s.format(req)

	req.Fail(io.ErrUnexpectedEOF)

	_, err := req.Result()
	s.Require().Error(err)
	s.Assert().ErrorIs(err, ErrTransport)
	s.Assert().ErrorIs(err, io.ErrUnexpectedEOF)
	// the outcome is known, not pending
	s.Assert().NotErrorIs(err, ErrNotComplete)

	n, ok := req.ResponseComplete([]byte("pong\n"))
	s.Assert().Zero(n)
	s.Assert().True(ok)
}

func (s *RequestSuite) TestFirstTransportErrorWins() {
	req := New[string](&lineCodec{cmd: "ping"})
	s.format(req)

	first := errors.New("reset by peer")
	req.Fail(first)
	req.Fail(errors.New("late timeout"))

	_, err := req.Result()
	s.Require().Error(err)
	s.Assert().ErrorIs(err, first)
}
