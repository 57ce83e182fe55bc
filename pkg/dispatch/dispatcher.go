package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/b42link/pkg/frame"
	"github.com/bft-labs/b42link/pkg/handler"
	"github.com/bft-labs/b42link/pkg/log"
)

// Command error codes.
const (
	// CodeUnregistered reports a frame whose command has no callback.
	CodeUnregistered uint8 = 0x0F
	// CodeInvalidData reports a frame whose data the registration rejects.
	CodeInvalidData uint8 = 0x0E
)

// CommandError describes a received frame that could not be dispatched.
type CommandError struct {
	Code      uint8
	Message   string
	Timestamp time.Time
	Frame     frame.Frame
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command error 0x%02X: %s", e.Code, e.Message)
}

// Callback handles a dispatched frame's receipt time and data.
type Callback func(ts time.Time, data uint32)

// Receiver is the receive side of a link. *handler.Handler implements it.
type Receiver interface {
	Receive(timeout time.Duration) (frame.Frame, error)
	ReceiveContext(ctx context.Context) (frame.Frame, error)
}

// ErrorSink receives dispatch errors.
type ErrorSink interface {
	Report(err error)
}

// RegisterOption restricts a registration.
type RegisterOption func(*entry)

// DataAtMost accepts only data values <= max.
func DataAtMost(max uint32) RegisterOption {
	return func(e *entry) {
		e.accept = func(d uint32) bool { return d <= max }
		e.expect = fmt.Sprintf("<= %d", max)
	}
}

// DataOneOf accepts only the listed data values.
func DataOneOf(values ...uint32) RegisterOption {
	allowed := make(map[uint32]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	return func(e *entry) {
		e.accept = func(d uint32) bool {
			_, ok := allowed[d]
			return ok
		}
		e.expect = fmt.Sprintf("one of %v", values)
	}
}

type entry struct {
	callback Callback
	accept   func(uint32) bool
	expect   string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithErrorSink sets where CommandErrors are reported.
func WithErrorSink(sink ErrorSink) Option {
	return func(d *Dispatcher) { d.sink = sink }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger log.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Dispatcher calls registered callbacks for received frames.
// Register may be called concurrently with dispatching.
type Dispatcher struct {
	mu     sync.RWMutex
	table  map[uint8]entry
	sink   ErrorSink
	logger log.Logger
}

// New creates an empty Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		table:  make(map[uint8]entry),
		logger: log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register sets the callback for command, replacing any previous one.
func (d *Dispatcher) Register(command uint8, cb Callback, opts ...RegisterOption) error {
	if command > frame.MaxCommand {
		return fmt.Errorf("register command %d: %w", command, frame.ErrOutOfRange)
	}
	if cb == nil {
		return errors.New("register command: nil callback")
	}

	e := entry{callback: cb}
	for _, opt := range opts {
		opt(&e)
	}

	d.mu.Lock()
	_, replaced := d.table[command]
	d.table[command] = e
	d.mu.Unlock()

	if replaced {
		d.logger.Warn("replacing registered command", log.Int("command", int(command)))
	}
	return nil
}

// Unregister removes the callback for command.
func (d *Dispatcher) Unregister(command uint8) {
	d.mu.Lock()
	delete(d.table, command)
	d.mu.Unlock()
}

// Dispatch routes one frame. It returns the *CommandError reported for it,
// or nil if a callback ran.
func (d *Dispatcher) Dispatch(f frame.Frame) error {
	d.mu.RLock()
	e, ok := d.table[f.Command()]
	d.mu.RUnlock()

	if !ok {
		return d.report(f, CodeUnregistered,
			fmt.Sprintf("unregistered command received: 0x%02X", f.Command()))
	}
	if e.accept != nil && !e.accept(f.Data()) {
		return d.report(f, CodeInvalidData,
			fmt.Sprintf("invalid data for command 0x%02X: %d, want %s", f.Command(), f.Data(), e.expect))
	}

	e.callback(f.Timestamp(), f.Data())
	return nil
}

// DispatchPending dispatches every frame r has queued, without waiting, and
// returns how many it took. It returns handler.ErrClosed once r is closed.
func (d *Dispatcher) DispatchPending(r Receiver) (int, error) {
	n := 0
	for {
		f, err := r.Receive(0)
		if errors.Is(err, handler.ErrTimeout) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
		_ = d.Dispatch(f)
	}
}

// Run dispatches frames from r as they arrive until ctx is done, returning
// ctx.Err(), or until r closes, returning nil.
func (d *Dispatcher) Run(ctx context.Context, r Receiver) error {
	for {
		f, err := r.ReceiveContext(ctx)
		if errors.Is(err, handler.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		_ = d.Dispatch(f)
	}
}

func (d *Dispatcher) report(f frame.Frame, code uint8, msg string) error {
	err := &CommandError{
		Code:      code,
		Message:   msg,
		Timestamp: f.Timestamp(),
		Frame:     f,
	}
	d.logger.Error("command dispatch failed",
		log.Int("code", int(code)),
		log.String("message", msg),
		log.Float64("ts", f.Seconds()),
	)
	if d.sink != nil {
		d.sink.Report(err)
	}
	return err
}
