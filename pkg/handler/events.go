package handler

import (
	"time"

	"github.com/bft-labs/b42link/pkg/frame"
	"github.com/bft-labs/b42link/pkg/lifecycle"
)

// State is the lifecycle state of a Handler.
type State = lifecycle.State

// Handler states.
const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateCrashed  = lifecycle.StateCrashed
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// DecodeErrorEvent is emitted for every framing or checksum error detected
// on the inbound stream. Err is a *codec.FramingError or *codec.ChecksumError.
type DecodeErrorEvent struct {
	Err  error
	Time time.Time
}

// FrameDroppedEvent is emitted when the inbound queue is full and its oldest
// frame is discarded to make room.
type FrameDroppedEvent struct {
	Frame frame.Frame
	// Total is the number of frames dropped so far, including this one.
	Total uint64
}

// EventHandler receives notifications about link activity.
//
// Decode error and drop events are called synchronously from the receive
// goroutine; implementations should return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnDecodeError(DecodeErrorEvent)
	OnFrameDropped(FrameDroppedEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnDecodeError(DecodeErrorEvent)   {}
func (BaseEventHandler) OnFrameDropped(FrameDroppedEvent) {}

// eventEmitterWrapper adapts EventHandler to lifecycle.EventEmitter.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e eventEmitterWrapper) OnStateChange(previous, current lifecycle.State, reason string) {
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}
