package configwatcher

import "github.com/bft-labs/modinput/pkg/modinput"

// WithConfigWatcher returns a runner Option that reloads cfg.Path on change.
//
// Usage:
//
//	r := modinput.New(input,
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig(path)),
//	)
func WithConfigWatcher(cfg Config) modinput.Option {
	return modinput.WithPlugin(New(cfg))
}
