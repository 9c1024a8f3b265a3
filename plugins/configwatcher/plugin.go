// Package configwatcher reloads the modinput config file while a run is in
// progress. Streaming runs can last as long as the host keeps the process
// alive, so the log level can be raised or lowered without a restart.
package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/modinput/internal/cliconfig"
	"github.com/bft-labs/modinput/pkg/log"
	"github.com/bft-labs/modinput/pkg/modinput"
)

// ApplyFunc receives the reloaded file.
type ApplyFunc func(cliconfig.FileConfig) error

// Plugin watches one TOML config file.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	apply         ApplyFunc

	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch. The plugin is inert when empty.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Apply is called with every successfully parsed version of the file.
	// Default: ApplyLogLevel
	Apply ApplyFunc
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		DebounceDelay: 100 * time.Millisecond,
		Apply:         ApplyLogLevel,
	}
}

// ApplyLogLevel sets the process log level from the file's log_level.
func ApplyLogLevel(fc cliconfig.FileConfig) error {
	if fc.LogLevel == "" {
		return nil
	}
	return cliconfig.SetLogLevel(fc.LogLevel)
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.Apply == nil {
		cfg.Apply = ApplyLogLevel
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		apply:         cfg.Apply,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the file's directory.
func (p *Plugin) Initialize(ctx context.Context, cfg modinput.PluginConfig) error {
	p.mu.Lock()
	if cfg.Logger != nil {
		p.logger = cfg.Logger.With(log.String(log.KeyPlugin, p.Name()))
	}
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Debug("config watcher disabled: no config file")
		return nil
	}

	// Editors often replace the file, which drops a watch on the file itself.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("configwatcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("configwatcher: watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Debug("config watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	target := filepath.Clean(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Warn("config reload failed", log.String("path", p.path), log.Err(err))
		return
	}
	if err := p.apply(fc); err != nil {
		p.logger.Warn("config reload rejected", log.String("path", p.path), log.Err(err))
		return
	}
	p.logger.Info("config reloaded", log.String("path", p.path), log.String("log_level", fc.LogLevel))
}

// Ensure Plugin implements modinput.Plugin.
var _ modinput.Plugin = (*Plugin)(nil)
