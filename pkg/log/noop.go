package log

// NoopLogger implements Logger by discarding all log messages. Handlers and
// dispatchers built without WithLogger log to it, as do plugins until their
// PluginConfig supplies a logger.
type NoopLogger struct{}

var _ Logger = (*NoopLogger)(nil)

// NewNoopLogger returns the logger used when a link has none configured.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

// Debug discards the message.
func (NoopLogger) Debug(msg string, fields ...Field) {}

// Info discards the message.
func (NoopLogger) Info(msg string, fields ...Field) {}

// Warn discards the message.
func (NoopLogger) Warn(msg string, fields ...Field) {}

// Error discards the message.
func (NoopLogger) Error(msg string, fields ...Field) {}
