// Package scriptwatcher replays a frame script whenever its file changes.
// The script is sent once when the handler starts and again after every
// write to the file, which makes it handy for iterating on device commands
// with an editor open.
package scriptwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/b42link/internal/script"
	"github.com/bft-labs/b42link/pkg/handler"
	"github.com/bft-labs/b42link/pkg/log"
)

// Plugin implements script watching.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration
	sendOnStart   bool

	// Runtime state
	sender   handler.Sender
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	runs     atomic.Uint64
	failures atomic.Uint64
}

// Config holds configuration options for the script watcher plugin.
type Config struct {
	// Path is the TOML script to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before sending.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// SendOnStart sends the script once when the plugin starts.
	SendOnStart bool
}

// DefaultConfig returns a Config for path that sends on start and debounces
// for 100ms.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		DebounceDelay: 100 * time.Millisecond,
		SendOnStart:   true,
	}
}

// New creates a new script watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		sendOnStart:   cfg.SendOnStart,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "scriptwatcher"
}

// Runs reports how many times the script was sent completely.
func (p *Plugin) Runs() uint64 { return p.runs.Load() }

// Failures reports how many script runs failed to load or send.
func (p *Plugin) Failures() uint64 { return p.failures.Load() }

// Initialize starts the watch loop.
func (p *Plugin) Initialize(ctx context.Context, cfg handler.PluginConfig) error {
	p.mu.Lock()
	p.sender = cfg.Sender
	if cfg.Logger != nil {
		p.logger = cfg.Logger
	}
	p.mu.Unlock()

	if p.path == "" || p.sender == nil {
		p.logger.Warn("Script watcher disabled: no script path or sender")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("Script watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

var _ handler.Plugin = (*Plugin)(nil)

// Shutdown stops the watcher and waits for any script in flight.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	if p.sendOnStart {
		p.run(ctx)
	}

	debounce := time.NewTimer(p.debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(p.debounceDelay)

		case <-debounce.C:
			p.run(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("Script watcher error", log.Err(err))
		}
	}
}

// run loads and sends the script.
func (p *Plugin) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	steps, err := script.LoadFile(p.path)
	if err != nil {
		p.failures.Add(1)
		p.logger.Warn("Script watcher: cannot load script", log.String("path", p.path), log.Err(err))
		return
	}
	if err := script.Run(ctx, p.sender, steps); err != nil {
		if ctx.Err() == nil {
			p.failures.Add(1)
			p.logger.Warn("Script watcher: send failed", log.Err(err))
		}
		return
	}
	p.runs.Add(1)
	p.logger.Info("Script watcher: sent script", log.String("path", p.path), log.Int("frames", len(steps)))
}
