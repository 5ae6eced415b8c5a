package request

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kvclient-go/testutil"
)

type BlockingSuite struct {
	testutil.BaseSuite
}

func TestBlockingSuite(t *testing.T) {
	suite.Run(t, new(BlockingSuite))
}

// complete plays the scheduler's part: format, feed response chunks through
// the completeness check, parse the frame, fire the completion hook.
func (s *BlockingSuite) complete(req *BlockingRequest[string], chunks ...string) {
	w := bufio.NewWriter(&bytes.Buffer{})
	if err := req.Format(w); err != nil {
		req.Completed()
		return
	}

	var buf []byte
	for _, chunk := range chunks {
		buf = append(buf, chunk...)
		n, ok := req.ResponseComplete(buf)
		if !ok {
			continue
		}
		req.Parse(buf[:n])
		req.Completed()
		return
	}
	req.Fail(io.ErrUnexpectedEOF)
	req.Completed()
}

func (s *BlockingSuite) TestAwaitReturnsParsedResult() {
	req := NewBlocking[string](&lineCodec{cmd: "get k"})

	go s.complete(req, "va", "lue\n")

	val, err := req.Await(context.Background(), time.Second)
	s.Require().NoError(err)
	s.Assert().Equal("value", val)

	// the outcome stays readable after the waiter was released
	val, err = req.Result()
	s.Require().NoError(err)
	s.Assert().Equal("value", val)
}

func (s *BlockingSuite) TestAwaitSurfacesTransportError() {
	req := NewBlocking[string](&lineCodec{cmd: "get k"})

	// a response that never completes forces the scheduler's error path
	go s.complete(req, "partial")

	_, err := req.Await(context.Background(), time.Second)
	s.Require().Error(err)
	s.Assert().ErrorIs(err, ErrTransport)
	s.Assert().ErrorIs(err, io.ErrUnexpectedEOF)
}

func (s *BlockingSuite) TestAwaitSurfacesFormatError() {
	req := NewBlocking[string](&lineCodec{cmd: "get k", encodeErr: io.ErrClosedPipe})

	go s.complete(req)

	_, err := req.Await(context.Background(), time.Second)
	s.Require().Error(err)
	s.Assert().ErrorIs(err, ErrFormat)
}

func (s *BlockingSuite) TestTimeoutThenLateCompletion() {
	req := NewBlocking[string](&lineCodec{cmd: "get k"})

	_, err := req.Await(context.Background(), time.Millisecond)
	s.Require().ErrorIs(err, ErrTimeout)

	// the scheduler knows nothing of the abandoned waiter and finishes
	// normally; the late signal is dropped, the request stays consistent
	s.complete(req, "value\n")
	<-req.Done()

	val, err := req.Result()
	s.Require().NoError(err)
	s.Assert().Equal("value", val)
}

func (s *BlockingSuite) TestRacingCompletersAndWaiters() {
	pairs := s.IntEnv("TEST_CONCURRENT_PAIRS", 100)

	wg := &sync.WaitGroup{}
	wg.Add(2 * pairs)
	for i := 0; i < pairs; i++ {
		req := NewBlocking[string](&lineCodec{cmd: "get k"})
		want := fmt.Sprintf("value-%d", i)

		go func() {
			defer wg.Done()
			runtime.Gosched()
			s.complete(req, want[:1], want[1:]+"\n")
		}()
		go func() {
			defer wg.Done()
			got, err := req.Await(context.Background(), 5*time.Second)
			s.Assert().NoError(err)
			s.Assert().Equal(want, got)
		}()
	}
	wg.Wait()
}
