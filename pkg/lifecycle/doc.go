// Package lifecycle provides the state machine a link handler moves through
// and accounting for the goroutines it owns.
//
// # Usage
//
//	manager := lifecycle.NewManager(logger, emitter)
//
//	if !manager.CanStart() {
//	    return ErrAlreadyRunning
//	}
//	_ = manager.TransitionTo(lifecycle.StateStarting, "Start() called")
//
//	manager.Go(receiveLoop)
//	_ = manager.TransitionTo(lifecycle.StateRunning, "receiver started")
//
//	// Graceful shutdown
//	_ = manager.TransitionTo(lifecycle.StateStopping, "Close() called")
//	if err := manager.WaitWithTimeout(2 * time.Second); err != nil {
//	    return err
//	}
//	_ = manager.TransitionTo(lifecycle.StateStopped, "closed")
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//
// Crashed is terminal: a handler whose channel failed is not restarted.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
package lifecycle
