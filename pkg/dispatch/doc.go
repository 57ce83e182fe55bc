// Package dispatch routes received frames to per-command callbacks and
// collects link errors.
//
// A [Dispatcher] maps command codes to callbacks. Frames with an
// unregistered command, or with data a registration does not accept, become
// [CommandError] values reported to an [ErrorSink]:
//
//	errs := dispatch.NewErrorCollector(func(err error) { log.Println(err) }, false)
//	d := dispatch.New(dispatch.WithErrorSink(errs))
//	d.Register(0x2, onButton, dispatch.DataAtMost(3))
//
//	h, _ := handler.New(ch, handler.WithEventHandler(errs))
//
//	// synchronously, from a main loop
//	d.DispatchPending(h)
//	errs.ProcessErrors()
//
//	// or asynchronously
//	go d.Run(ctx, h)
package dispatch
