package channel

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Defaults applied by Open for zero Config fields.
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 500 * time.Millisecond
	DefaultDialTimeout = 5 * time.Second

	// DefaultSocketPort is the TCP port of Lantronix XPort style bridges.
	DefaultSocketPort = 10001

	// SocketScheme prefixes port names that address a TCP bridge.
	SocketScheme = "socket://"
)

var (
	// ErrClosed is returned by operations on a closed channel.
	ErrClosed = errors.New("channel: closed")

	// ErrUnsupportedURL is returned by Open for an unknown URL scheme.
	ErrUnsupportedURL = errors.New("channel: unsupported port URL")
)

// Channel is a bidirectional byte stream.
//
// Read waits at most the channel's read timeout and returns (0, nil) if no
// bytes arrived. Any error from Read other than that is final.
type Channel interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Resetter is implemented by channels that can flush their buffers and reset
// the attached board through modem control lines.
type Resetter interface {
	// ResetBuffers discards unread input and unsent output.
	ResetBuffers() error

	// PulseReset drives DTR and RTS low, high, then low again, holding each
	// level for d.
	PulseReset(d time.Duration) error
}

// Config holds the parameters used to open a channel.
type Config struct {
	// Baud is the serial line speed. Ignored for sockets.
	Baud int

	// ReadTimeout bounds each Read.
	ReadTimeout time.Duration

	// DialTimeout bounds the TCP connect. Ignored for serial devices.
	DialTimeout time.Duration
}

// DefaultConfig returns a Config with the default baud rate and timeouts.
func DefaultConfig() Config {
	return Config{
		Baud:        DefaultBaud,
		ReadTimeout: DefaultReadTimeout,
		DialTimeout: DefaultDialTimeout,
	}
}

// SetDefaults fills zero fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Baud <= 0 {
		c.Baud = DefaultBaud
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
}

// Open opens the channel named by port. A "socket://host[:port]" name dials a
// TCP bridge, using DefaultSocketPort when no port is given. Any other name
// without a URL scheme is treated as a serial device path.
func Open(port string, cfg Config) (Channel, error) {
	cfg.SetDefaults()

	if strings.HasPrefix(port, SocketScheme) {
		addr, err := SocketAddr(port)
		if err != nil {
			return nil, err
		}
		return DialSocket(addr, cfg)
	}
	if strings.Contains(port, "://") {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, port)
	}
	return OpenSerial(port, cfg)
}

// SocketAddr converts a "socket://host[:port]" name to a dialable address.
func SocketAddr(port string) (string, error) {
	u, err := url.Parse(port)
	if err != nil {
		return "", fmt.Errorf("parse port URL %q: %w", port, err)
	}
	if u.Scheme+"://" != SocketScheme {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, port)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("port URL %q has no host", port)
	}

	p := u.Port()
	if p == "" {
		return net.JoinHostPort(host, strconv.Itoa(DefaultSocketPort)), nil
	}
	n, err := strconv.Atoi(p)
	if err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("port URL %q has invalid port %q", port, p)
	}
	return net.JoinHostPort(host, p), nil
}
