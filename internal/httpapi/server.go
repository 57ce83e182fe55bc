// Package httpapi serves a link over HTTP: health, status, Prometheus
// metrics and a frame submission endpoint for driving a device from other
// tools.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bft-labs/b42link/internal/script"
	"github.com/bft-labs/b42link/pkg/frame"
	"github.com/bft-labs/b42link/pkg/handler"
	"github.com/bft-labs/b42link/pkg/metrics"
	"github.com/bft-labs/b42link/pkg/status"
)

// Link is the part of *handler.Handler the API uses.
type Link interface {
	Send(command, data uint32) error
	Stats() handler.Stats
	State() handler.State
	Err() error
	Pending() int
}

// Config configures a Server.
type Config struct {
	// Addr is the listen address, e.g. ":9042".
	Addr string
	// Port names the link in status and metric labels.
	Port string
	// CORSOrigins is a comma-separated list of allowed origins. Empty
	// disables CORS headers.
	CORSOrigins string
}

// Server is the HTTP front of one link.
type Server struct {
	cfg       Config
	link      Link
	logger    zerolog.Logger
	router    *gin.Engine
	registry  *prometheus.Registry
	startedAt time.Time
}

// New builds a server for link. It does not listen until Serve.
func New(cfg Config, link Link, logger zerolog.Logger) (*Server, error) {
	reg := prometheus.NewRegistry()
	if _, err := metrics.Register(reg, cfg.Port, link); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	if origins := splitOrigins(cfg.CORSOrigins); len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	s := &Server{
		cfg:       cfg,
		link:      link,
		logger:    logger,
		router:    r,
		registry:  reg,
		startedAt: time.Now(),
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		code := http.StatusOK
		if s.link.State() != handler.StateRunning {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status": strings.ToLower(s.link.State().String()),
			"uptime": time.Since(s.startedAt).String(),
			"port":   s.cfg.Port,
		})
	})

	s.router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, status.Snapshot(s.cfg.Port, s.link, s.startedAt))
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	s.router.POST("/frames", s.postFrames)
}

// framesRequest is either a single frame or an inline script.
type framesRequest struct {
	Command *uint32 `json:"command"`
	Data    uint32  `json:"data"`
	Script  string  `json:"script"`
}

func (s *Server) postFrames(c *gin.Context) {
	var req framesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var steps []script.Step
	switch {
	case req.Script != "" && req.Command != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "give either command or script"})
		return
	case req.Script != "":
		var err error
		if steps, err = script.ParseInline(req.Script); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	case req.Command != nil:
		steps = []script.Step{{Command: *req.Command, Data: req.Data}}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "command or script is required"})
		return
	}

	if err := script.Run(c.Request.Context(), s.link, steps); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": len(steps)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, frame.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, handler.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// Serve listens on cfg.Addr and serves until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("http api listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logger.Debug()
		if status >= 500 {
			event = logger.Error()
		} else if status >= 400 {
			event = logger.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	}
}
