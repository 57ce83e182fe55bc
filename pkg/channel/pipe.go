package channel

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// pipeBuffer is one direction of a Pipe.
type pipeBuffer struct {
	mu     sync.Mutex
	buf    []byte
	closed bool
	ready  chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newPipeBuffer() *pipeBuffer {
	return &pipeBuffer{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (b *pipeBuffer) write(p []byte) (int, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return 0, ErrClosed
	}
	b.buf = append(b.buf, p...)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
	return len(p), nil
}

func (b *pipeBuffer) read(p []byte, timeout time.Duration) (int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		b.mu.Lock()
		if len(b.buf) > 0 {
			n := copy(p, b.buf)
			b.buf = b.buf[n:]
			b.mu.Unlock()
			return n, nil
		}
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return 0, io.EOF
		}

		select {
		case <-b.ready:
		case <-b.done:
		case <-timer.C:
			return 0, nil
		}
	}
}

func (b *pipeBuffer) discard() {
	b.mu.Lock()
	b.buf = nil
	b.mu.Unlock()
}

func (b *pipeBuffer) close() {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.done)
	})
}

// PipeEnd is one end of an in-memory duplex channel created by Pipe.
//
// Bytes written to one end are read from the other. Closing either end
// closes both directions: pending bytes can still be read, after which Read
// returns io.EOF, and Write returns ErrClosed.
type PipeEnd struct {
	rx, tx      *pipeBuffer
	readTimeout atomic.Int64
	closed      atomic.Bool
	pulses      atomic.Int32
}

// Pipe returns the two connected ends of an in-memory channel. Both ends use
// a 50ms read timeout; change it with SetReadTimeout.
func Pipe() (*PipeEnd, *PipeEnd) {
	ab, ba := newPipeBuffer(), newPipeBuffer()
	a := &PipeEnd{rx: ba, tx: ab}
	b := &PipeEnd{rx: ab, tx: ba}
	a.SetReadTimeout(50 * time.Millisecond)
	b.SetReadTimeout(50 * time.Millisecond)
	return a, b
}

// SetReadTimeout sets the bounded wait of Read.
func (e *PipeEnd) SetReadTimeout(d time.Duration) {
	e.readTimeout.Store(int64(d))
}

func (e *PipeEnd) Read(p []byte) (int, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	return e.rx.read(p, time.Duration(e.readTimeout.Load()))
}

func (e *PipeEnd) Write(p []byte) (int, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	return e.tx.write(p)
}

// Close closes both directions. It is safe to call more than once.
func (e *PipeEnd) Close() error {
	e.closed.Store(true)
	e.rx.close()
	e.tx.close()
	return nil
}

// ResetBuffers discards bytes written by the peer and not yet read.
func (e *PipeEnd) ResetBuffers() error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.rx.discard()
	return nil
}

// PulseReset records a reset pulse; see Pulses.
func (e *PipeEnd) PulseReset(time.Duration) error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.pulses.Add(1)
	return nil
}

// Pulses returns the number of PulseReset calls on this end.
func (e *PipeEnd) Pulses() int { return int(e.pulses.Load()) }

var (
	_ Channel  = (*PipeEnd)(nil)
	_ Resetter = (*PipeEnd)(nil)
)
