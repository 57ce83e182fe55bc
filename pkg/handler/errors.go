package handler

import (
	"errors"
	"fmt"

	"github.com/bft-labs/b42link/pkg/lifecycle"
)

var (
	// ErrTransport marks a failure of the underlying byte channel.
	ErrTransport = errors.New("handler: transport error")

	// ErrTimeout is returned by Receive when no frame arrived in time.
	ErrTimeout = errors.New("handler: receive timeout")

	// ErrClosed is returned by operations on a closed handler, including
	// one whose receiver stopped on a read failure.
	ErrClosed = errors.New("handler: closed")

	// ErrResetUnsupported is returned by Reset when the channel does not
	// implement channel.Resetter.
	ErrResetUnsupported = errors.New("handler: channel does not support reset")

	// ErrAlreadyRunning is returned by Start on a started handler.
	ErrAlreadyRunning = errors.New("handler: already running")

	// ErrShutdownTimeout is returned by Close when the receiver did not exit
	// within the shutdown timeout.
	ErrShutdownTimeout = lifecycle.ErrShutdownTimeout
)

// TransportError wraps an error returned by the channel.
type TransportError struct {
	Op  string // "read", "write", "reset" or "close"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("handler: channel %s: %v", e.Op, e.Err)
}

// Is reports ErrTransport as matching, so callers can test the class of
// error without a type assertion.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }
