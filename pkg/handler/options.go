package handler

import (
	"time"

	"github.com/bft-labs/b42link/pkg/log"
)

// Defaults for Handler options.
const (
	DefaultQueueSize       = 256
	DefaultShutdownTimeout = 2 * time.Second
	DefaultResetPulse      = 100 * time.Millisecond
	DefaultReadBufferSize  = 64
)

// Option configures optional behavior of a Handler.
type Option func(*options)

// options holds the optional configuration for a Handler.
type options struct {
	logger          log.Logger
	eventHandler    EventHandler
	plugins         []Plugin
	queueSize       int
	shutdownTimeout time.Duration
	resetPulse      time.Duration
	readBufferSize  int
	autoStart       bool
	clock           func() time.Time
}

func defaultOptions() options {
	return options{
		logger:          log.NewNoopLogger(),
		queueSize:       DefaultQueueSize,
		shutdownTimeout: DefaultShutdownTimeout,
		resetPulse:      DefaultResetPulse,
		readBufferSize:  DefaultReadBufferSize,
		autoStart:       true,
		clock:           time.Now,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for link events.
// If not provided, no events are emitted.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the handler starts.
// Plugins are initialized in registration order and shut down in reverse
// order on Close.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithQueueSize sets the inbound queue capacity. When the queue is full the
// oldest frame is dropped. Values below 1 keep the default.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithShutdownTimeout bounds how long Close waits for the receiver to exit.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithResetPulse sets how long each DTR/RTS level is held by a hard Reset.
func WithResetPulse(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.resetPulse = d
		}
	}
}

// WithReadBufferSize sets the size of the buffer passed to Channel.Read.
func WithReadBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readBufferSize = n
		}
	}
}

// WithAutoStart controls whether New starts the receiver. With false, call
// Start before receiving.
func WithAutoStart(start bool) Option {
	return func(o *options) {
		o.autoStart = start
	}
}

// WithClock sets the clock used to timestamp received frames.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}
