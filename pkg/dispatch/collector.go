package dispatch

import (
	"sync"

	"github.com/bft-labs/b42link/pkg/handler"
)

// MaxPendingErrors bounds the errors a synchronous ErrorCollector holds.
// Past it the oldest error is discarded.
const MaxPendingErrors = 1024

// ErrorCollector gathers link errors and hands them to a callback, either as
// they arrive or on ProcessErrors.
//
// It is both an ErrorSink for a Dispatcher and a handler.EventHandler, so
// decode errors from the receiver and command errors from dispatching end
// up in one place.
type ErrorCollector struct {
	handler.BaseEventHandler

	callback func(error)
	async    bool

	mu        sync.Mutex
	pending   []error
	discarded uint64
}

// NewErrorCollector returns a collector calling callback for each error.
// With async set, callback runs immediately in the reporting goroutine,
// which for decode errors is the handler's receiver. Otherwise errors are
// queued until ProcessErrors.
func NewErrorCollector(callback func(error), async bool) *ErrorCollector {
	if callback == nil {
		callback = func(error) {}
	}
	return &ErrorCollector{callback: callback, async: async}
}

// Report records err.
func (c *ErrorCollector) Report(err error) {
	if err == nil {
		return
	}
	if c.async {
		c.callback(err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == MaxPendingErrors {
		c.pending = c.pending[1:]
		c.discarded++
	}
	c.pending = append(c.pending, err)
}

// OnDecodeError implements handler.EventHandler.
func (c *ErrorCollector) OnDecodeError(ev handler.DecodeErrorEvent) {
	c.Report(ev.Err)
}

// ProcessErrors calls the callback for every queued error, oldest first, and
// returns how many it processed. It does nothing in async mode.
func (c *ErrorCollector) ProcessErrors() int {
	c.mu.Lock()
	errs := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, err := range errs {
		c.callback(err)
	}
	return len(errs)
}

// Pending returns the number of queued errors.
func (c *ErrorCollector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Discarded returns the number of errors dropped because the queue was full.
func (c *ErrorCollector) Discarded() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discarded
}

var (
	_ ErrorSink            = (*ErrorCollector)(nil)
	_ handler.EventHandler = (*ErrorCollector)(nil)
)
