package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bft-labs/b42link/pkg/channel"
	"github.com/bft-labs/b42link/pkg/codec"
	"github.com/bft-labs/b42link/pkg/frame"
	"github.com/bft-labs/b42link/pkg/lifecycle"
	"github.com/bft-labs/b42link/pkg/log"
)

// Handler runs a B42 link over a byte channel.
//
// A single receive goroutine owns the channel's read side and the decoder.
// Send may be called from any number of goroutines; each frame is written
// whole. Received frames are queued in order and retrieved with Receive.
type Handler struct {
	ch        channel.Channel
	opts      options
	logger    log.Logger
	events    EventHandler
	lifecycle *lifecycle.DefaultManager
	decoder   *codec.Decoder
	queue     *queue
	stats     counters

	// txMu serializes encode+write and Reset.
	txMu  sync.Mutex
	txBuf []byte

	// mu guards Start against Close.
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	plugins []Plugin // initialized, in order

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error

	errMu sync.Mutex
	err   error
}

// New creates a Handler over ch and, unless WithAutoStart(false) is given,
// starts its receiver. The handler owns ch from here on and closes it on
// Close.
func New(ch channel.Channel, opts ...Option) (*Handler, error) {
	if ch == nil {
		return nil, errors.New("handler: nil channel")
	}

	// Validate module version compatibility
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var emitter lifecycle.EventEmitter
	if o.eventHandler != nil {
		emitter = eventEmitterWrapper{handler: o.eventHandler}
	}

	decoder := codec.NewDecoder()
	decoder.SetClock(o.clock)

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handler{
		ch:        ch,
		opts:      o,
		logger:    o.logger,
		events:    o.eventHandler,
		lifecycle: lifecycle.NewManager(o.logger, emitter),
		decoder:   decoder,
		queue:     newQueue(o.queueSize),
		txBuf:     make([]byte, 0, codec.MaxEncodedLen),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	if o.autoStart {
		if err := h.Start(); err != nil {
			_ = h.Close()
			return nil, err
		}
	}
	return h, nil
}

// Start starts the receiver and initializes plugins. It is only needed with
// WithAutoStart(false).
func (h *Handler) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.isClosed() {
		return ErrClosed
	}
	if !h.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := h.lifecycle.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
		return err
	}

	h.lifecycle.Go(h.receiveLoop)

	cfg := PluginConfig{Sender: h, Logger: h.logger}
	for _, p := range h.opts.plugins {
		if err := initPlugin(h.ctx, p, cfg); err != nil {
			h.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			h.fail(err, "plugin init failed: "+p.Name())
			return err
		}
		h.plugins = append(h.plugins, p)
		h.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	if err := h.lifecycle.TransitionTo(lifecycle.StateRunning, "receiver started"); err != nil {
		// The receiver failed while plugins were starting.
		if cause := h.Err(); cause != nil {
			return cause
		}
		return err
	}
	return nil
}

// Send validates command and data, encodes the frame and writes it.
// It returns an error wrapping frame.ErrOutOfRange for invalid values, a
// *TransportError (matching ErrTransport) if the write fails or is short,
// and ErrClosed after Close.
func (h *Handler) Send(command, data uint32) error {
	f, err := frame.New(command, data)
	if err != nil {
		return err
	}
	return h.SendFrame(f)
}

// SendFrame encodes and writes f.
func (h *Handler) SendFrame(f frame.Frame) error {
	if h.isClosed() {
		return ErrClosed
	}

	h.txMu.Lock()
	defer h.txMu.Unlock()

	h.txBuf = codec.AppendEncode(h.txBuf[:0], f)
	n, err := h.ch.Write(h.txBuf)
	if n > 0 {
		h.stats.bytesWritten.Add(uint64(n))
	}
	if err == nil && n < len(h.txBuf) {
		err = io.ErrShortWrite
	}
	if err != nil {
		if h.isClosed() {
			return ErrClosed
		}
		return &TransportError{Op: "write", Err: err}
	}

	h.stats.framesSent.Add(1)
	h.logger.Debug("frame sent",
		log.Int("command", int(f.Command())),
		log.Uint("data", f.Data()),
		log.Hex("wire", h.txBuf),
	)
	return nil
}

// Receive returns the next received frame. It waits up to timeout; with
// timeout <= 0 it only polls. It returns ErrTimeout if no frame is available
// and ErrClosed once the handler is closed, including after a read failure.
func (h *Handler) Receive(timeout time.Duration) (frame.Frame, error) {
	if h.isClosed() {
		return frame.Frame{}, ErrClosed
	}

	if timeout <= 0 {
		select {
		case f := <-h.queue.ch:
			return f, nil
		default:
			return frame.Frame{}, ErrTimeout
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-h.queue.ch:
		return h.received(f)
	case <-h.done:
		return frame.Frame{}, ErrClosed
	case <-timer.C:
		return frame.Frame{}, ErrTimeout
	}
}

// ReceiveContext is like Receive but waits until ctx is done, returning
// ctx.Err().
func (h *Handler) ReceiveContext(ctx context.Context) (frame.Frame, error) {
	if h.isClosed() {
		return frame.Frame{}, ErrClosed
	}

	select {
	case f := <-h.queue.ch:
		return h.received(f)
	case <-h.done:
		return frame.Frame{}, ErrClosed
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	}
}

// received hands f to a blocked receiver unless Close ran while it waited;
// select picks at random when both are ready.
func (h *Handler) received(f frame.Frame) (frame.Frame, error) {
	if h.isClosed() {
		return frame.Frame{}, ErrClosed
	}
	return f, nil
}

// Pending returns the number of queued frames.
func (h *Handler) Pending() int { return h.queue.len() }

// Reset flushes the channel buffers and, if hard is set, pulses DTR/RTS to
// reset the attached board. It returns ErrResetUnsupported for channels that
// do not implement channel.Resetter.
func (h *Handler) Reset(hard bool) error {
	if h.isClosed() {
		return ErrClosed
	}
	r, ok := h.ch.(channel.Resetter)
	if !ok {
		return ErrResetUnsupported
	}

	h.txMu.Lock()
	defer h.txMu.Unlock()

	if err := r.ResetBuffers(); err != nil {
		return &TransportError{Op: "reset", Err: err}
	}
	if hard {
		if err := r.PulseReset(h.opts.resetPulse); err != nil {
			return &TransportError{Op: "reset", Err: err}
		}
	}
	h.logger.Info("link reset", log.Bool("hard", hard))
	return nil
}

// Close stops the receiver, shuts down plugins, closes the channel and
// unblocks all pending Receive calls. It is safe to call more than once;
// later calls return the result of the first.
func (h *Handler) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.shutdown()
	})
	return h.closeErr
}

func (h *Handler) shutdown() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	stopping := h.lifecycle.CanStop()
	if stopping {
		_ = h.lifecycle.TransitionTo(lifecycle.StateStopping, "Close() called")
	}

	h.closeDone()
	h.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), h.opts.shutdownTimeout)
	defer cancel()
	for i := len(h.plugins) - 1; i >= 0; i-- {
		p := h.plugins[i]
		if err := shutdownPlugin(shutdownCtx, p); err != nil {
			h.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			h.logger.Debug("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}

	closeErr := h.ch.Close()
	waitErr := h.lifecycle.WaitWithTimeout(h.opts.shutdownTimeout)

	if stopping {
		if waitErr != nil {
			_ = h.lifecycle.TransitionTo(lifecycle.StateCrashed, "shutdown timeout")
		} else {
			_ = h.lifecycle.TransitionTo(lifecycle.StateStopped, "closed")
		}
	}

	s := h.stats.snapshot()
	h.logger.Info("link closed",
		log.Uint64("frames_received", s.FramesReceived),
		log.Uint64("frames_sent", s.FramesSent),
		log.Uint64("decode_errors", s.DecodeErrors()),
		log.Uint64("dropped", s.Dropped),
	)

	if waitErr != nil {
		return waitErr
	}
	if closeErr != nil && !errors.Is(closeErr, channel.ErrClosed) {
		return &TransportError{Op: "close", Err: closeErr}
	}
	return nil
}

// Stats returns a snapshot of the link counters.
func (h *Handler) Stats() Stats { return h.stats.snapshot() }

// State returns the current lifecycle state.
func (h *Handler) State() State { return h.lifecycle.State() }

// Done returns a channel that is closed when the handler closes.
func (h *Handler) Done() <-chan struct{} { return h.done }

// Err returns the error that stopped the handler, if it stopped on its own:
// a *TransportError for a read failure, or a plugin initialization error.
func (h *Handler) Err() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

func (h *Handler) isClosed() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *Handler) closeDone() {
	h.doneOnce.Do(func() { close(h.done) })
}

// fail records err as the cause, crashes the lifecycle and closes the handler
// to consumers. The channel itself is released by Close.
func (h *Handler) fail(err error, reason string) {
	h.errMu.Lock()
	if h.err == nil {
		h.err = err
	}
	h.errMu.Unlock()

	_ = h.lifecycle.TransitionTo(lifecycle.StateCrashed, reason)
	h.closeDone()
	h.cancel()
}

func (h *Handler) receiveLoop() {
	buf := make([]byte, h.opts.readBufferSize)
	for {
		if h.isClosed() {
			return
		}

		n, err := h.ch.Read(buf)
		if n > 0 {
			h.stats.bytesRead.Add(uint64(n))
			h.feed(buf[:n])
		}
		if err != nil {
			if h.isClosed() {
				return
			}
			h.logger.Error("channel read failed, stopping receiver", log.Err(err))
			h.fail(&TransportError{Op: "read", Err: err}, fmt.Sprintf("read failed: %v", err))
			return
		}
	}
}

// feed runs p through the decoder. Only the receive goroutine calls it.
func (h *Handler) feed(p []byte) {
	for _, b := range p {
		f, ok, err := h.decoder.Feed(b)
		switch {
		case err != nil:
			h.decodeError(err)
		case ok:
			h.deliver(f)
		}
	}
	h.stats.skippedBytes.Store(h.decoder.Skipped())
}

func (h *Handler) decodeError(err error) {
	var fe *codec.FramingError
	switch {
	case errors.As(err, &fe) && fe.Kind == codec.KindAbandoned:
		// A START mid-frame is a resync, not corruption.
		h.stats.abandoned.Add(1)
		h.logger.Debug("abandoned partial frame", log.Int("length", fe.Len))
	case errors.Is(err, codec.ErrChecksum):
		h.stats.checksumErrors.Add(1)
		h.logger.Warn("discarded inbound frame", log.Err(err))
	default:
		h.stats.framingErrors.Add(1)
		h.logger.Warn("discarded inbound frame", log.Err(err))
	}

	if h.events != nil {
		h.events.OnDecodeError(DecodeErrorEvent{Err: err, Time: h.opts.clock()})
	}
}

func (h *Handler) deliver(f frame.Frame) {
	h.stats.framesReceived.Add(1)
	h.logger.Debug("frame received",
		log.Int("command", int(f.Command())),
		log.Uint("data", f.Data()),
	)

	dropped, ok := h.queue.push(f)
	if !ok {
		return
	}
	total := h.stats.dropped.Add(1)
	h.logger.Warn("inbound queue full, dropped oldest frame",
		log.String("frame", dropped.String()),
		log.Uint64("dropped_total", total),
	)
	if h.events != nil {
		h.events.OnFrameDropped(FrameDroppedEvent{Frame: dropped, Total: total})
	}
}

var _ Sender = (*Handler)(nil)
