package request

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat marks a local encoding failure; the request was never sent.
	ErrFormat = errors.New("request format error")

	// ErrProtocol marks a response the codec could not decode.
	ErrProtocol = errors.New("protocol error")

	// ErrTransport marks a connection-level failure injected by the scheduler.
	ErrTransport = errors.New("transport error")

	// ErrTimeout is returned by Await/Wait when the deadline passes while the
	// request is still pending. The outcome is unknown, not failed: the server
	// may still be processing the request. Discard the request, do not retry
	// blindly.
	ErrTimeout = errors.New("timed out waiting for completion")

	// ErrUsage marks API misuse by the calling code, not a runtime condition.
	ErrUsage = errors.New("request usage error")

	// ErrNotComplete is returned by Result before the request completed.
	ErrNotComplete = fmt.Errorf("%w: result not yet available", ErrUsage)
)
