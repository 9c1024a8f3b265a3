package modinput

import (
	"io"
	"os"
	"time"

	"github.com/bft-labs/modinput/pkg/log"
)

// Recorder receives run measurements. pkg/metrics provides a Prometheus
// implementation.
type Recorder interface {
	RunStarted(mode string)
	RunFinished(mode string, elapsed time.Duration, err error)
	EventWritten(stanza string, size int)
	InstanceFinished(stanza string, elapsed time.Duration, err error)
}

type noopRecorder struct{}

func (noopRecorder) RunStarted(string)                             {}
func (noopRecorder) RunFinished(string, time.Duration, error)      {}
func (noopRecorder) EventWritten(string, int)                      {}
func (noopRecorder) InstanceFinished(string, time.Duration, error) {}

// Option configures a Runner.
type Option func(*options)

type options struct {
	in             io.Reader
	out            io.Writer
	logger         log.Logger
	readTimeout    time.Duration
	maxConcurrency int
	recorder       Recorder
	plugins        []Plugin
	observer       StateObserver
	runID          string
}

func defaultOptions() options {
	return options{
		in:       os.Stdin,
		out:      os.Stdout,
		logger:   log.NewNoopLogger(),
		recorder: noopRecorder{},
	}
}

// WithStreams replaces stdin and stdout.
func WithStreams(in io.Reader, out io.Writer) Option {
	return func(o *options) {
		if in != nil {
			o.in = in
		}
		if out != nil {
			o.out = out
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithReadTimeout overrides how long to wait for the host's document.
// Non-positive values keep the default.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		o.readTimeout = d
	}
}

// WithMaxConcurrency bounds the number of instances streaming at once.
// Zero or less runs every instance at the same time.
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		o.maxConcurrency = n
	}
}

// WithMetrics sets the recorder that receives run measurements.
func WithMetrics(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithPlugin registers a plugin. Plugins are initialized in registration
// order and shut down in reverse order.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, p)
	}
}

// WithStateObserver is notified of every lifecycle transition.
func WithStateObserver(obs StateObserver) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}
