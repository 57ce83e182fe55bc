package channel

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Socket is a Channel over a TCP connection, typically to a serial bridge.
type Socket struct {
	conn        net.Conn
	readTimeout time.Duration
}

// DialSocket connects to addr ("host:port").
func DialSocket(addr string, cfg Config) (*Socket, error) {
	cfg.SetDefaults()

	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewSocket(conn, cfg.ReadTimeout), nil
}

// NewSocket wraps an established connection.
func NewSocket(conn net.Conn, readTimeout time.Duration) *Socket {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Socket{conn: conn, readTimeout: readTimeout}
}

// Read reads available bytes, returning (0, nil) when the read deadline passes.
func (s *Socket) Read(p []byte) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
		return 0, err
	}
	n, err := s.conn.Read(p)
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return n, nil
	}
	return n, err
}

func (s *Socket) Write(p []byte) (int, error) {
	return s.conn.Write(p)
}

func (s *Socket) Close() error {
	return s.conn.Close()
}
