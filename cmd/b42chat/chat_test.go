package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/b42link/internal/script"
	"github.com/bft-labs/b42link/pkg/channel"
	"github.com/bft-labs/b42link/pkg/codec"
	"github.com/bft-labs/b42link/pkg/frame"
	"github.com/bft-labs/b42link/pkg/handler"
	"github.com/bft-labs/b42link/pkg/status"
)

// echoDevice answers every frame with the same command and data+1.
func echoDevice(t *testing.T, device *channel.PipeEnd) {
	t.Helper()
	go func() {
		dec := codec.NewDecoder()
		buf := make([]byte, 64)
		for {
			n, err := device.Read(buf)
			if err != nil {
				return
			}
			var reply []byte
			dec.FeedAll(buf[:n], func(f frame.Frame, err error) {
				if err != nil {
					return
				}
				if r, err := frame.New(uint32(f.Command()), f.Data()+1); err == nil {
					reply = codec.AppendEncode(reply, r)
				}
			})
			if len(reply) > 0 {
				if _, err := device.Write(reply); err != nil {
					return
				}
			}
		}
	}()
}

func newSession(t *testing.T) (*session, *handler.Handler, *channel.PipeEnd, *bytes.Buffer) {
	t.Helper()
	hostEnd, device := channel.Pipe()
	h, err := handler.New(hostEnd)
	if err != nil {
		t.Fatalf("handler.New: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	out := &bytes.Buffer{}
	return &session{link: h, out: out, logger: zerolog.Nop()}, h, device, out
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		watching   bool
		wantPort   string
		wantFrames string
		wantErr    bool
	}{
		{"port and frames", []string{"/dev/ttyUSB0", "1:2"}, false, "/dev/ttyUSB0", "1:2", false},
		{"frames only", []string{"1:2"}, false, "", "1:2", false},
		{"nothing", nil, false, "", "", true},
		{"watching with port", []string{"/dev/ttyUSB0"}, true, "/dev/ttyUSB0", "", false},
		{"watching with both", []string{"/dev/ttyUSB0", "1:2"}, true, "/dev/ttyUSB0", "1:2", false},
		{"watching bare", nil, true, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port, frames, err := splitArgs(tt.args, tt.watching)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if port != tt.wantPort || frames != tt.wantFrames {
				t.Errorf("splitArgs() = %q, %q; want %q, %q", port, frames, tt.wantPort, tt.wantFrames)
			}
		})
	}
}

func TestSession_Chat(t *testing.T) {
	s, h, device, out := newSession(t)
	echoDevice(t, device)

	steps, err := script.ParseInline("2:17,3:5")
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := s.chat(context.Background(), steps, 10*time.Millisecond, 100*time.Millisecond, false); err != nil {
		t.Fatalf("chat() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 110*time.Millisecond {
		t.Errorf("chat() returned after %v, before init and response timeouts", elapsed)
	}

	got := out.String()
	for _, want := range []string{"> cmd=0x2 data=17", "> cmd=0x3 data=5", "cmd=0x2 data=18", "cmd=0x3 data=6"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if st := h.Stats(); st.FramesSent != 2 || st.FramesReceived != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestSession_ChatStopsOnCancel(t *testing.T) {
	s, _, _, _ := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- s.chat(ctx, nil, 0, time.Hour, true) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("chat() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("chat() ignored cancellation")
	}
}

func TestSession_ListenReturnsOnClose(t *testing.T) {
	s, h, device, out := newSession(t)
	f, _ := frame.New(7, 70)
	if _, err := device.Write(codec.Encode(f)); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.listen(context.Background()) }()

	deadline := time.Now().Add(5 * time.Second)
	for h.Stats().FramesReceived == 0 || h.Pending() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("frame never consumed")
		}
		time.Sleep(time.Millisecond)
	}
	_ = h.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("listen() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("listen() did not return after Close")
	}
	if !strings.Contains(out.String(), "cmd=0x7 data=70") {
		t.Errorf("output = %q", out.String())
	}
}

func TestSaveStatus_Accumulates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s, h, device, _ := newSession(t)
		echoDevice(t, device)
		steps, _ := script.ParseInline("1:1")
		if err := s.chat(ctx, steps, 0, 50*time.Millisecond, false); err != nil {
			t.Fatal(err)
		}
		_ = h.Close()
		if err := saveStatus(ctx, path, "pipe", h, time.Now()); err != nil {
			t.Fatalf("saveStatus() error = %v", err)
		}
	}

	st, err := status.NewFileRepository(path).Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Sessions != 2 || st.Lifetime.FramesSent != 2 || st.Session.FramesSent != 1 {
		t.Errorf("status = %+v", st)
	}
	if st.State != "Stopped" {
		t.Errorf("State = %q, want Stopped", st.State)
	}
}
