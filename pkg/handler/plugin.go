package handler

import (
	"context"
	"fmt"

	"github.com/bft-labs/b42link/pkg/log"
)

// Sender sends frames on a link. *Handler implements it.
type Sender interface {
	Send(command, data uint32) error
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	// Sender sends frames on the handler's link.
	Sender Sender
	// Logger is the handler's logger.
	Logger log.Logger
}

// Plugin extends a Handler with functionality that runs alongside it.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called once the receiver is running. ctx is canceled
	// when the handler closes.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called on Close, in reverse registration order.
	Shutdown(ctx context.Context) error
}

// BasePlugin implements Plugin with no-ops. Embed it and override what you
// need.
type BasePlugin struct{}

func (BasePlugin) Name() string                                   { return "unnamed" }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }

// initPlugin calls p.Initialize, converting a panic into an error.
func initPlugin(ctx context.Context, p Plugin, cfg PluginConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked during initialization: %v", p.Name(), r)
		}
	}()
	return p.Initialize(ctx, cfg)
}

// shutdownPlugin calls p.Shutdown, converting a panic into an error.
func shutdownPlugin(ctx context.Context, p Plugin) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked during shutdown: %v", p.Name(), r)
		}
	}()
	return p.Shutdown(ctx)
}
