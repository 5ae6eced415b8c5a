package gonet

import (
	"context"

	"kvclient-go/testutil"
)

type BaseSuite struct {
	testutil.BaseSuite
}

func (s *BaseSuite) SetupListener(h ConnectionHandler) *Listener {
	l := NewListener(0, h)
	err := l.Start(context.Background())
	s.Require().NoError(err)

	return l
}
