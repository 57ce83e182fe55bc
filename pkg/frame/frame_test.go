package frame

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		command uint32
		data    uint32
		wantErr bool
	}{
		{"zero", 0, 0, false},
		{"max command", MaxCommand, 0, false},
		{"max data", 0, MaxData, false},
		{"both max", MaxCommand, MaxData, false},
		{"command too large", MaxCommand + 1, 0, true},
		{"data too large", 1, MaxData + 1, true},
		{"data way too large", 1, 1 << 31, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.command, tt.data)
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Fatalf("New(%d, %d) error = %v, want ErrOutOfRange", tt.command, tt.data, err)
				}
				if f != (Frame{}) {
					t.Errorf("New returned non-zero frame on error: %v", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%d, %d) unexpected error: %v", tt.command, tt.data, err)
			}
			if uint32(f.Command()) != tt.command || f.Data() != tt.data {
				t.Errorf("got (%d, %d), want (%d, %d)", f.Command(), f.Data(), tt.command, tt.data)
			}
			if !f.Timestamp().IsZero() {
				t.Errorf("outbound frame has timestamp %v", f.Timestamp())
			}
		})
	}
}

func TestValidate_NamesField(t *testing.T) {
	err := Validate(16, 0)
	if err == nil || !strings.Contains(err.Error(), "command") {
		t.Errorf("Validate(16, 0) = %v, want error naming command", err)
	}
	err = Validate(0, MaxData+1)
	if err == nil || !strings.Contains(err.Error(), "data") {
		t.Errorf("Validate(0, MaxData+1) = %v, want error naming data", err)
	}
}

func TestReceived(t *testing.T) {
	ts := time.Unix(1700000000, 500_000_000)
	f, err := Received(3, 42, ts)
	if err != nil {
		t.Fatalf("Received: %v", err)
	}
	if !f.Timestamp().Equal(ts) {
		t.Errorf("Timestamp() = %v, want %v", f.Timestamp(), ts)
	}
	if got := f.Seconds(); got != 1700000000.5 {
		t.Errorf("Seconds() = %v, want 1700000000.5", got)
	}

	if _, err := Received(99, 0, ts); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Received(99, ...) error = %v, want ErrOutOfRange", err)
	}
}

func TestEqualIgnoresTimestamp(t *testing.T) {
	a, _ := New(5, 1000)
	b, _ := Received(5, 1000, time.Now())
	c, _ := New(5, 1001)
	if !a.Equal(b) {
		t.Error("frames with same command/data should be equal")
	}
	if a.Equal(c) {
		t.Error("frames with different data should not be equal")
	}
}

func TestString(t *testing.T) {
	f, _ := New(0xA, 17)
	if got, want := f.String(), "frame(cmd=0xA data=17)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
