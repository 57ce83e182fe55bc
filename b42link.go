// Package b42link talks to B42 boards over a serial line or a socket bridge.
//
// Frames carry a 4-bit command and an 18-bit data value. They are sent with
// Handler.Send and received, in arrival order, with Handler.Receive:
//
//	h, err := b42link.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	if err := h.Send(0x2, 17); err != nil {
//	    log.Fatal(err)
//	}
//	f, err := h.Receive(3 * time.Second)
//
// The packages under pkg/ expose the pieces separately: frame values, the
// wire codec, byte channels, the handler and a command dispatcher.
package b42link

import (
	"github.com/bft-labs/b42link/pkg/channel"
	"github.com/bft-labs/b42link/pkg/frame"
	"github.com/bft-labs/b42link/pkg/handler"
)

// Frame is one (command, data) message.
type Frame = frame.Frame

// Handler runs a link over a byte channel.
type Handler = handler.Handler

// Option configures a Handler.
type Option = handler.Option

// Errors returned by the link.
var (
	ErrOutOfRange = frame.ErrOutOfRange
	ErrTransport  = handler.ErrTransport
	ErrTimeout    = handler.ErrTimeout
	ErrClosed     = handler.ErrClosed
)

// NewFrame returns a validated outbound frame.
func NewFrame(command, data uint32) (Frame, error) {
	return frame.New(command, data)
}

// Open opens port with the default channel settings and starts a Handler on
// it. port is a serial device path or socket://host[:port].
func Open(port string, opts ...Option) (*Handler, error) {
	return OpenWithConfig(port, channel.DefaultConfig(), opts...)
}

// OpenWithConfig is Open with explicit channel settings.
func OpenWithConfig(port string, cfg channel.Config, opts ...Option) (*Handler, error) {
	ch, err := channel.Open(port, cfg)
	if err != nil {
		return nil, err
	}
	h, err := handler.New(ch, opts...)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return h, nil
}
