// Package script parses frame scripts: short lists of (command, data) pairs
// to send on a link, optionally with a delay before each.
//
// Inline scripts are comma- or space-separated CMD:DATA pairs. Numbers may be
// decimal, 0x hex, 0o octal or 0b binary; a bare CMD sends data 0:
//
//	2:17, 0x3:0b101, 4
//
// File scripts are TOML:
//
//	[[frame]]
//	command = 2
//	data = 17
//
//	[[frame]]
//	command = 0x3
//	data = 5
//	delay = "250ms"
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/b42link/pkg/frame"
)

// ErrSyntax is returned for malformed scripts.
var ErrSyntax = errors.New("script: syntax error")

// Step is one frame to send.
type Step struct {
	Command uint32
	Data    uint32
	// Delay is waited before sending.
	Delay time.Duration
}

func (s Step) String() string {
	if s.Delay > 0 {
		return fmt.Sprintf("0x%X:%d after %v", s.Command, s.Data, s.Delay)
	}
	return fmt.Sprintf("0x%X:%d", s.Command, s.Data)
}

// Load parses arg as a TOML script file if it ends in ".toml", and as an
// inline script otherwise.
func Load(arg string) ([]Step, error) {
	if strings.HasSuffix(arg, ".toml") {
		return LoadFile(arg)
	}
	return ParseInline(arg)
}

// ParseInline parses an inline script.
func ParseInline(s string) ([]Step, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty script", ErrSyntax)
	}

	steps := make([]Step, 0, len(fields))
	for i, field := range fields {
		cmdText, dataText, hasData := strings.Cut(field, ":")
		command, err := parseNumber(cmdText)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d command %q", ErrSyntax, i+1, cmdText)
		}
		var data uint32
		if hasData {
			if data, err = parseNumber(dataText); err != nil {
				return nil, fmt.Errorf("%w: frame %d data %q", ErrSyntax, i+1, dataText)
			}
		}
		if err := frame.Validate(command, data); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i+1, err)
		}
		steps = append(steps, Step{Command: command, Data: data})
	}
	return steps, nil
}

func parseNumber(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	return uint32(v), err
}

// fileScript is the TOML layout of a script file.
type fileScript struct {
	Frames []fileStep `toml:"frame"`
}

type fileStep struct {
	Command *uint32 `toml:"command"`
	Data    uint32  `toml:"data"`
	Delay   string  `toml:"delay"`
}

// ParseTOML parses a TOML script. Unknown keys are rejected.
func ParseTOML(data []byte) ([]Step, error) {
	var f fileScript
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if len(f.Frames) == 0 {
		return nil, fmt.Errorf("%w: no [[frame]] entries", ErrSyntax)
	}

	steps := make([]Step, 0, len(f.Frames))
	for i, fs := range f.Frames {
		if fs.Command == nil {
			return nil, fmt.Errorf("%w: frame %d has no command", ErrSyntax, i+1)
		}
		step := Step{Command: *fs.Command, Data: fs.Data}
		if fs.Delay != "" {
			d, err := time.ParseDuration(fs.Delay)
			if err != nil || d < 0 {
				return nil, fmt.Errorf("%w: frame %d delay %q", ErrSyntax, i+1, fs.Delay)
			}
			step.Delay = d
		}
		if err := frame.Validate(step.Command, step.Data); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i+1, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// LoadFile reads and parses a TOML script file.
func LoadFile(path string) ([]Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	steps, err := ParseTOML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return steps, nil
}

// Sender sends one frame.
type Sender interface {
	Send(command, data uint32) error
}

// Run sends steps in order, waiting each step's delay first. It stops at the
// first send error or when ctx is done.
func Run(ctx context.Context, s Sender, steps []Step) error {
	for i, step := range steps {
		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.Send(step.Command, step.Data); err != nil {
			return fmt.Errorf("send frame %d (%v): %w", i+1, step, err)
		}
	}
	return nil
}
