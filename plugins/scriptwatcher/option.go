package scriptwatcher

import "github.com/bft-labs/b42link/pkg/handler"

// WithScriptWatcher returns a handler Option that replays the script at
// cfg.Path whenever the file changes.
//
// Usage:
//
//	h, err := handler.New(ch,
//	    scriptwatcher.WithScriptWatcher(scriptwatcher.Config{
//	        Path:          "frames.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithScriptWatcher(cfg Config) handler.Option {
	return handler.WithPlugin(New(cfg))
}

// WithDefaultScriptWatcher watches path with DefaultConfig.
func WithDefaultScriptWatcher(path string) handler.Option {
	return WithScriptWatcher(DefaultConfig(path))
}
