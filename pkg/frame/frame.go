package frame

import (
	"errors"
	"fmt"
	"time"
)

// Bit widths of the frame fields.
const (
	CommandBits = 4
	DataBits    = 18

	MaxCommand = 1<<CommandBits - 1 // 15
	MaxData    = 1<<DataBits - 1    // 262143
)

// ErrOutOfRange is returned when a command or data value does not fit its
// bit width.
var ErrOutOfRange = errors.New("frame: value out of range")

// Frame is one command+data unit.
// The zero value is a valid frame with command 0 and data 0.
type Frame struct {
	command   uint8
	data      uint32
	timestamp time.Time
}

// New validates command and data and returns an outbound frame.
func New(command, data uint32) (Frame, error) {
	if err := Validate(command, data); err != nil {
		return Frame{}, err
	}
	return Frame{command: uint8(command), data: data}, nil
}

// Received returns a frame stamped with its receipt time.
func Received(command, data uint32, ts time.Time) (Frame, error) {
	f, err := New(command, data)
	if err != nil {
		return Frame{}, err
	}
	f.timestamp = ts
	return f, nil
}

// Validate reports whether command and data fit their bit widths.
func Validate(command, data uint32) error {
	if command > MaxCommand {
		return fmt.Errorf("%w: command %d exceeds %d", ErrOutOfRange, command, MaxCommand)
	}
	if data > MaxData {
		return fmt.Errorf("%w: data %d exceeds %d", ErrOutOfRange, data, MaxData)
	}
	return nil
}

// Command returns the 4-bit command code.
func (f Frame) Command() uint8 { return f.command }

// Data returns the 18-bit data value.
func (f Frame) Data() uint32 { return f.data }

// Timestamp returns the receipt time, or the zero time for outbound frames.
func (f Frame) Timestamp() time.Time { return f.timestamp }

// Seconds returns the receipt time as fractional seconds since the Unix epoch.
// It returns 0 for outbound frames.
func (f Frame) Seconds() float64 {
	if f.timestamp.IsZero() {
		return 0
	}
	return float64(f.timestamp.Unix()) + float64(f.timestamp.Nanosecond())/float64(time.Second)
}

// Equal reports whether f and o carry the same command and data.
// Timestamps are ignored.
func (f Frame) Equal(o Frame) bool {
	return f.command == o.command && f.data == o.data
}

func (f Frame) String() string {
	if f.timestamp.IsZero() {
		return fmt.Sprintf("frame(cmd=0x%X data=%d)", f.command, f.data)
	}
	return fmt.Sprintf("frame(cmd=0x%X data=%d ts=%.3f)", f.command, f.data, f.Seconds())
}
