package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bft-labs/b42link/pkg/frame"
	"github.com/bft-labs/b42link/pkg/handler"
	"github.com/bft-labs/b42link/pkg/status"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLink struct {
	mu    sync.Mutex
	sent  [][2]uint32
	state handler.State
	err   error
}

func (l *fakeLink) Send(command, data uint32) error {
	if l.err != nil {
		return l.err
	}
	if err := frame.Validate(command, data); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, [2]uint32{command, data})
	return nil
}

func (l *fakeLink) Stats() handler.Stats { return handler.Stats{FramesSent: uint64(len(l.sent))} }
func (l *fakeLink) State() handler.State { return l.state }
func (l *fakeLink) Err() error           { return nil }
func (l *fakeLink) Pending() int         { return 0 }

func newServer(t *testing.T, link *fakeLink, cfg Config) *Server {
	t.Helper()
	if cfg.Port == "" {
		cfg.Port = "pipe"
	}
	s, err := New(cfg, link, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	tests := []struct {
		state handler.State
		code  int
	}{
		{handler.StateRunning, http.StatusOK},
		{handler.StateCrashed, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			s := newServer(t, &fakeLink{state: tt.state}, Config{})
			w := do(s, http.MethodGet, "/health", "")
			if w.Code != tt.code {
				t.Errorf("GET /health = %d, want %d", w.Code, tt.code)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["status"] != strings.ToLower(tt.state.String()) || body["port"] != "pipe" {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	link := &fakeLink{state: handler.StateRunning}
	_ = link.Send(1, 1)
	s := newServer(t, link, Config{})

	w := do(s, http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /status = %d", w.Code)
	}
	var st status.Status
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Port != "pipe" || st.State != "Running" || st.Session.FramesSent != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestMetrics(t *testing.T) {
	s := newServer(t, &fakeLink{state: handler.StateRunning}, Config{})
	w := do(s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `b42link_link_frames_sent_total{port="pipe"} 0`) {
		t.Errorf("metrics missing frames_sent:\n%s", w.Body.String())
	}
}

func TestPostFrames(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		linkErr  error
		code     int
		wantSent int
	}{
		{"single", `{"command": 2, "data": 17}`, nil, http.StatusOK, 1},
		{"script", `{"script": "1:1,2:2,3"}`, nil, http.StatusOK, 3},
		{"both", `{"command": 1, "script": "1:1"}`, nil, http.StatusBadRequest, 0},
		{"neither", `{}`, nil, http.StatusBadRequest, 0},
		{"bad json", `{"command": -1}`, nil, http.StatusBadRequest, 0},
		{"bad script", `{"script": "x"}`, nil, http.StatusBadRequest, 0},
		{"out of range", `{"command": 16}`, nil, http.StatusBadRequest, 0},
		{"closed", `{"command": 1}`, handler.ErrClosed, http.StatusServiceUnavailable, 0},
		{"transport", `{"command": 1}`, errors.New("cable pulled"), http.StatusBadGateway, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := &fakeLink{state: handler.StateRunning, err: tt.linkErr}
			s := newServer(t, link, Config{})
			w := do(s, http.MethodPost, "/frames", tt.body)
			if w.Code != tt.code {
				t.Errorf("POST /frames = %d, want %d: %s", w.Code, tt.code, w.Body.String())
			}
			if len(link.sent) != tt.wantSent {
				t.Errorf("sent = %v, want %d frames", link.sent, tt.wantSent)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	s := newServer(t, &fakeLink{state: handler.StateRunning}, Config{CORSOrigins: "http://localhost:3000, http://bench:8080"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://bench:8080")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://bench:8080" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	s := newServer(t, &fakeLink{state: handler.StateRunning}, Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve() did not return after cancel")
	}
}
