package codec

import (
	"time"

	"github.com/bft-labs/b42link/pkg/frame"
)

// State is the decoder state.
type State int

const (
	// StateIdle waits for START.
	StateIdle State = iota
	// StateAccumulating collects body bytes.
	StateAccumulating
	// StateEscaped follows an ESCAPE; the next byte is unmasked.
	StateEscaped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAccumulating:
		return "Accumulating"
	case StateEscaped:
		return "Escaped"
	default:
		return "Unknown"
	}
}

// Decoder is a streaming B42 decoder. Feed it one byte at a time.
//
// A Decoder is not safe for concurrent use; it must be owned by a single
// goroutine.
type Decoder struct {
	state   State
	buf     []byte
	now     func() time.Time
	skipped uint64
}

// NewDecoder returns a decoder in StateIdle.
func NewDecoder() *Decoder {
	return &Decoder{
		buf: make([]byte, 0, BodyLen),
		now: time.Now,
	}
}

// SetClock replaces the clock used to stamp decoded frames.
func (d *Decoder) SetClock(now func() time.Time) {
	d.now = now
}

// State returns the current decoder state.
func (d *Decoder) State() State { return d.state }

// Buffered returns the number of body bytes accumulated so far.
func (d *Decoder) Buffered() int { return len(d.buf) }

// Skipped returns the number of bytes discarded while waiting for START.
func (d *Decoder) Skipped() uint64 { return d.skipped }

// Reset discards any partial frame and returns to StateIdle.
func (d *Decoder) Reset() {
	d.state = StateIdle
	d.buf = d.buf[:0]
}

// Feed processes one byte. It returns a decoded frame with ok set when b
// completes a valid frame, a *FramingError or *ChecksumError when b completes
// or breaks an invalid one, and neither otherwise.
//
// A START always begins a new frame, whatever the current state. If that
// abandons a partial frame, Feed reports a FramingError of KindAbandoned but
// the new frame is still being accumulated.
func (d *Decoder) Feed(b byte) (f frame.Frame, ok bool, err error) {
	if b == Start {
		partial := d.state == StateEscaped || len(d.buf) > 0
		n := len(d.buf)
		d.buf = d.buf[:0]
		d.state = StateAccumulating
		if partial {
			return frame.Frame{}, false, &FramingError{Kind: KindAbandoned, Len: n}
		}
		return frame.Frame{}, false, nil
	}

	switch d.state {
	case StateAccumulating:
		switch b {
		case Escape:
			d.state = StateEscaped
			return frame.Frame{}, false, nil
		case End:
			return d.finish()
		}
		return frame.Frame{}, false, d.push(b)

	case StateEscaped:
		if b == End || b == Escape {
			return frame.Frame{}, false, d.fail(KindBadEscape)
		}
		d.state = StateAccumulating
		return frame.Frame{}, false, d.push(b ^ EscapeMask)

	default:
		d.skipped++
		return frame.Frame{}, false, nil
	}
}

// FeedAll feeds every byte of p and calls fn for each decoded frame or error.
func (d *Decoder) FeedAll(p []byte, fn func(frame.Frame, error)) {
	for _, b := range p {
		f, ok, err := d.Feed(b)
		switch {
		case err != nil:
			fn(frame.Frame{}, err)
		case ok:
			fn(f, nil)
		}
	}
}

func (d *Decoder) push(b byte) error {
	if len(d.buf) == BodyLen {
		return d.fail(KindOverflow)
	}
	d.buf = append(d.buf, b)
	return nil
}

func (d *Decoder) fail(kind FramingKind) error {
	err := &FramingError{Kind: kind, Len: len(d.buf)}
	d.Reset()
	return err
}

func (d *Decoder) finish() (frame.Frame, bool, error) {
	if len(d.buf) != BodyLen {
		return frame.Frame{}, false, d.fail(KindLength)
	}

	var p [PayloadLen]byte
	copy(p[:], d.buf[:PayloadLen])
	got := d.buf[PayloadLen]
	want := Checksum(p[:])
	if got != want {
		d.Reset()
		return frame.Frame{}, false, &ChecksumError{Want: want, Got: got}
	}

	command, data, pad := Unpack(p)
	if pad != 0 {
		return frame.Frame{}, false, d.fail(KindPadding)
	}
	d.Reset()

	f, err := frame.Received(command, data, d.now())
	if err != nil {
		// Unpack masks to the field widths, so this cannot happen.
		return frame.Frame{}, false, &FramingError{Kind: KindLength, Len: BodyLen}
	}
	return f, true, nil
}

// Decode decodes exactly one encoded frame, as produced by Encode.
// Leading bytes before the first START are ignored.
func Decode(p []byte) (frame.Frame, error) {
	d := NewDecoder()
	for _, b := range p {
		f, ok, err := d.Feed(b)
		if err != nil {
			return frame.Frame{}, err
		}
		if ok {
			return f, nil
		}
	}
	return frame.Frame{}, &FramingError{Kind: KindLength, Len: d.Buffered()}
}
