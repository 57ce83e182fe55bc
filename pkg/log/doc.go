// Package log provides the logging abstraction used by b42link components.
//
// Handlers, dispatchers and plugins log through the Logger interface so that
// an embedding application can route protocol diagnostics (dropped frames,
// checksum failures, transport errors) into its own logging stack.
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	h, err := handler.New(ch, handler.WithLogger(logger))
//
// NewNoopLogger returns a logger that discards everything; it is the default
// when no logger is configured.
package log
