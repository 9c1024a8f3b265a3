package modinput

import (
	"context"

	"github.com/bft-labs/modinput/pkg/log"
)

// Plugin is an optional component that lives for the duration of a run.
// Plugins are initialized in registration order before the mode runs and
// shut down in reverse order after it finishes.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to every plugin on initialization.
type PluginConfig struct {
	RunID  string
	Mode   Mode
	Logger log.Logger
}

// BasePlugin provides no-op Initialize and Shutdown methods for embedding.
type BasePlugin struct{}

func (BasePlugin) Initialize(ctx context.Context, cfg PluginConfig) error { return nil }
func (BasePlugin) Shutdown(ctx context.Context) error                     { return nil }
