// Package handler runs a B42 link: it sends frames over a byte channel and
// delivers the frames received on it.
//
// # Basic Usage
//
//	ch, err := channel.Open("/dev/ttyUSB0", channel.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	h, err := handler.New(ch, handler.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	if err := h.Send(0x2, 17); err != nil {
//	    return err
//	}
//	f, err := h.Receive(3 * time.Second)
//	switch {
//	case errors.Is(err, handler.ErrTimeout):
//	    // nothing arrived
//	case errors.Is(err, handler.ErrClosed):
//	    // handler closed or the channel failed; see h.Err()
//	}
//
// # Concurrency
//
// One goroutine, started by New, reads the channel and runs the decoder.
// Decoded frames go to a bounded FIFO; when it is full the oldest frame is
// dropped and counted. Corrupted frames are counted in [Stats], logged, and
// reported to [EventHandler.OnDecodeError]; they never stop the receiver. A
// read error does: the handler enters [StateCrashed] and every pending and
// later Receive returns [ErrClosed].
//
// Send is safe for concurrent use. A transmit lock covers encode and write,
// so bytes of different frames never interleave on the wire.
//
// # Plugins
//
// A [Plugin] registered with [WithPlugin] is initialized after the receiver
// starts and shut down in reverse order by Close.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package handler
