package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrFraming marks structurally invalid input: wrong body length, a bad
	// escape sequence, or a frame abandoned by a new START.
	ErrFraming = errors.New("codec: framing error")

	// ErrChecksum marks a well-formed frame whose checksum does not match.
	ErrChecksum = errors.New("codec: checksum mismatch")
)

// FramingKind classifies a FramingError.
type FramingKind int

const (
	// KindLength is an END received with a body of the wrong length.
	KindLength FramingKind = iota + 1
	// KindOverflow is a body that grew past the expected length before END.
	KindOverflow
	// KindBadEscape is ESCAPE followed by END or another ESCAPE.
	KindBadEscape
	// KindAbandoned is a partial frame discarded because a new START arrived.
	KindAbandoned
	// KindPadding is a checksum-valid body with non-zero padding bits.
	KindPadding
)

func (k FramingKind) String() string {
	switch k {
	case KindLength:
		return "length"
	case KindOverflow:
		return "overflow"
	case KindBadEscape:
		return "bad-escape"
	case KindAbandoned:
		return "abandoned"
	case KindPadding:
		return "padding"
	default:
		return "unknown"
	}
}

// FramingError reports a structural violation detected by the decoder.
type FramingError struct {
	Kind FramingKind
	// Len is the number of unstuffed body bytes accumulated when the error
	// was detected.
	Len int
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("codec: framing error (%s) after %d body bytes", e.Kind, e.Len)
}

func (e *FramingError) Unwrap() error { return ErrFraming }

// ChecksumError reports a checksum mismatch.
type ChecksumError struct {
	Want byte // computed over the received payload
	Got  byte // received checksum byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("codec: checksum mismatch: want 0x%02X, got 0x%02X", e.Want, e.Got)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksum }
