package script

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/bft-labs/b42link/pkg/frame"
)

func TestParseInline(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []Step
		wantErr error
	}{
		{"single", "2:17", []Step{{Command: 2, Data: 17}}, nil},
		{"bases", "0x3:0b101, 0o7:0x3FFFF", []Step{{Command: 3, Data: 5}, {Command: 7, Data: frame.MaxData}}, nil},
		{"bare command", "4", []Step{{Command: 4}}, nil},
		{"spaces", " 1:1  2:2\t3:3 ", []Step{{1, 1, 0}, {2, 2, 0}, {3, 3, 0}}, nil},
		{"empty", "  ", nil, ErrSyntax},
		{"not a number", "x:1", nil, ErrSyntax},
		{"bad data", "1:abc", nil, ErrSyntax},
		{"negative", "1:-1", nil, ErrSyntax},
		{"command range", "16:0", nil, frame.ErrOutOfRange},
		{"data range", "1:262144", nil, frame.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInline(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseInline(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInline(%q) error = %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseInline(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseTOML(t *testing.T) {
	src := `
[[frame]]
command = 2
data = 17

[[frame]]
command = 0x3
data = 0b101
delay = "250ms"
`
	got, err := ParseTOML([]byte(src))
	if err != nil {
		t.Fatalf("ParseTOML() error = %v", err)
	}
	want := []Step{
		{Command: 2, Data: 17},
		{Command: 3, Data: 5, Delay: 250 * time.Millisecond},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseTOML() = %v, want %v", got, want)
	}
}

func TestParseTOML_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr error
	}{
		{"no frames", `title = "x"`, ErrSyntax},
		{"empty", ``, ErrSyntax},
		{"missing command", "[[frame]]\ndata = 1\n", ErrSyntax},
		{"unknown key", "[[frame]]\ncommand = 1\nvalue = 2\n", ErrSyntax},
		{"bad delay", "[[frame]]\ncommand = 1\ndelay = \"soon\"\n", ErrSyntax},
		{"negative delay", "[[frame]]\ncommand = 1\ndelay = \"-1s\"\n", ErrSyntax},
		{"not toml", "[[frame", ErrSyntax},
		{"command range", "[[frame]]\ncommand = 20\n", frame.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseTOML([]byte(tt.src)); !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseTOML() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.toml")
	if err := os.WriteFile(path, []byte("[[frame]]\ncommand = 9\ndata = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil || len(got) != 1 || got[0].Command != 9 {
		t.Errorf("Load(file) = %v, %v", got, err)
	}

	got, err = Load("9:1")
	if err != nil || len(got) != 1 || got[0].Data != 1 {
		t.Errorf("Load(inline) = %v, %v", got, err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load(missing file) succeeded")
	}
}

type sendRecorder struct {
	sent []Step
	at   []time.Time
	err  error
}

func (r *sendRecorder) Send(command, data uint32) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, Step{Command: command, Data: data})
	r.at = append(r.at, time.Now())
	return nil
}

func TestRun(t *testing.T) {
	rec := &sendRecorder{}
	steps := []Step{{Command: 1, Data: 1}, {Command: 2, Data: 2, Delay: 20 * time.Millisecond}}

	start := time.Now()
	if err := Run(context.Background(), rec, steps); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(rec.sent) != 2 || rec.sent[1].Command != 2 {
		t.Fatalf("sent = %v", rec.sent)
	}
	if rec.at[1].Sub(start) < 20*time.Millisecond {
		t.Errorf("second frame sent after %v, before its delay", rec.at[1].Sub(start))
	}
}

func TestRun_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	rec := &sendRecorder{err: boom}
	if err := Run(context.Background(), rec, []Step{{Command: 1}}); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want boom", err)
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &sendRecorder{}
	err := Run(ctx, rec, []Step{{Command: 1, Delay: time.Hour}})
	if !errors.Is(err, context.Canceled) || len(rec.sent) != 0 {
		t.Errorf("Run() = %v, sent %v", err, rec.sent)
	}
}
