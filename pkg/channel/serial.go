package channel

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Serial is a Channel over a serial device, 8N1.
type Serial struct {
	port serial.Port
	path string
}

// OpenSerial opens the serial device at path.
func OpenSerial(path string, cfg Config) (*Serial, error) {
	cfg.SetDefaults()

	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
	}

	return &Serial{port: port, path: path}, nil
}

// Path returns the device path.
func (s *Serial) Path() string { return s.path }

// Read reads available bytes, returning (0, nil) when the read timeout expires.
func (s *Serial) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *Serial) Close() error {
	return s.port.Close()
}

// ResetBuffers discards pending input and output.
func (s *Serial) ResetBuffers() error {
	if err := s.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}
	if err := s.port.ResetOutputBuffer(); err != nil {
		return fmt.Errorf("reset output buffer: %w", err)
	}
	return nil
}

// PulseReset toggles DTR and RTS to reset the attached board.
func (s *Serial) PulseReset(d time.Duration) error {
	for i, level := range []bool{false, true, false} {
		if err := s.port.SetDTR(level); err != nil {
			return fmt.Errorf("set DTR: %w", err)
		}
		if err := s.port.SetRTS(level); err != nil {
			return fmt.Errorf("set RTS: %w", err)
		}
		if i < 2 {
			time.Sleep(d)
		}
	}
	return nil
}

var _ Resetter = (*Serial)(nil)
