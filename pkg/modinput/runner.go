package modinput

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/modinput/pkg/definition"
	"github.com/bft-labs/modinput/pkg/log"
	"github.com/bft-labs/modinput/pkg/xmlcodec"
	"github.com/bft-labs/modinput/pkg/xmlstream"
)

const (
	tagStream  = "stream"
	tagError   = "error"
	tagMessage = "message"
)

// Runner drives one input through the host protocol.
type Runner struct {
	input Input
	opts  options

	mu        sync.Mutex
	lifecycle *Lifecycle
}

// New creates a Runner for input.
func New(input Input, opts ...Option) *Runner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Runner{input: input, opts: o}
}

// State returns the state of the current or last run.
func (r *Runner) State() State {
	r.mu.Lock()
	lc := r.lifecycle
	r.mu.Unlock()
	if lc == nil {
		return StateStart
	}
	return lc.State()
}

// Run performs one exchange with the host in the given mode.
//
// Failures to read or decode the host's document are returned before
// anything is written. In stream mode the <stream> container is closed
// even when instances fail; their errors are joined into the result.
func (r *Runner) Run(ctx context.Context, mode Mode) (err error) {
	runID := r.opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := r.opts.logger.With(log.String(log.KeyRunID, runID), log.String(log.KeyMode, mode.String()))
	ctx = log.WithContext(ctx, logger)

	lc := NewLifecycle(logger, r.opts.observer)
	r.mu.Lock()
	r.lifecycle = lc
	r.mu.Unlock()

	started := time.Now()
	r.opts.recorder.RunStarted(mode.String())
	defer func() {
		r.opts.recorder.RunFinished(mode.String(), time.Since(started), err)
	}()

	initialized, err := r.initPlugins(ctx, PluginConfig{RunID: runID, Mode: mode, Logger: logger}, logger)
	defer r.shutdownPlugins(initialized, logger)
	if err != nil {
		_ = lc.TransitionTo(StateFailed, err.Error())
		return err
	}

	if err := lc.TransitionTo(stateForMode(mode), "run"); err != nil {
		return err
	}

	out := r.opts.out
	if _, ok := out.(interface{ Flush() error }); !ok {
		out = bufio.NewWriter(out)
	}
	w := xmlstream.NewWriter(out)

	switch mode {
	case ModeScheme:
		err = r.runScheme(w, logger)
	case ModeValidate:
		err = r.runValidate(ctx, w, logger)
	case ModeStream:
		err = r.runStream(ctx, w, logger)
	default:
		err = fmt.Errorf("modinput: unknown mode %d", mode)
	}

	if err != nil {
		_ = lc.TransitionTo(StateFailed, err.Error())
		logger.Error("run failed", log.Err(err), log.Duration("elapsed", time.Since(started)))
		return err
	}
	_ = lc.TransitionTo(StateDone, "completed")
	logger.Debug("run completed", log.Duration("elapsed", time.Since(started)))
	return nil
}

func (r *Runner) reader() *xmlstream.Reader {
	return xmlstream.NewReader(r.opts.in, xmlstream.WithTimeout(r.opts.readTimeout))
}

func (r *Runner) runScheme(w *xmlstream.Writer, logger log.Logger) error {
	s := r.input.Scheme()
	if s == nil {
		return ErrNoScheme
	}
	if err := s.Validate(); err != nil {
		logger.Warn("scheme does not validate", log.Err(err))
	}
	return w.WriteNode(definition.EncodeScheme(s))
}

func (r *Runner) runValidate(ctx context.Context, w *xmlstream.Writer, logger log.Logger) error {
	root, err := r.reader().ReadDocument(ctx, definition.TagItems)
	if err != nil {
		return err
	}
	req, err := definition.DecodeValidationRequest(root)
	if err != nil {
		return err
	}

	v, ok := r.input.(Validator)
	if !ok {
		logger.Debug("input has no validator, accepting", log.String(log.KeyStanza, req.Name))
		return nil
	}
	verr := v.ValidateInput(ctx, req)
	if verr == nil {
		logger.Debug("configuration accepted", log.String(log.KeyStanza, req.Name))
		return nil
	}

	logger.Warn("configuration rejected", log.String(log.KeyStanza, req.Name), log.Err(verr))
	doc := xmlcodec.NewNode(tagError)
	doc.AddText(tagMessage, verr.Error())
	rejected := fmt.Errorf("%w: %w", ErrValidationRejected, verr)
	if err := w.WriteNode(doc); err != nil {
		return errors.Join(rejected, err)
	}
	return rejected
}

func (r *Runner) runStream(ctx context.Context, w *xmlstream.Writer, logger log.Logger) (err error) {
	root, err := r.reader().ReadDocument(ctx, definition.TagInput)
	if err != nil {
		return err
	}
	bundle, err := definition.DecodeBundle(root)
	if err != nil {
		return err
	}

	if h, ok := r.input.(SetupHook); ok {
		if err := h.Setup(ctx, bundle.Metadata); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	}

	if err := w.Open(tagStream); err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(tagStream); cerr != nil {
			err = errors.Join(err, cerr)
		}
		if h, ok := r.input.(TeardownHook); ok {
			if terr := h.Teardown(ctx); terr != nil {
				err = errors.Join(err, fmt.Errorf("teardown: %w", terr))
			}
		}
	}()

	names := bundle.Names()
	logger.Info("streaming", log.Int("instances", len(names)), log.Strings("names", names))

	// Siblings keep running when one fails, so no WithContext here.
	var g errgroup.Group
	if r.opts.maxConcurrency > 0 {
		g.SetLimit(r.opts.maxConcurrency)
	}
	results := make([]error, len(names))
	for i, name := range names {
		params := bundle.Inputs[name]
		g.Go(func() error {
			results[i] = r.runInstance(ctx, name, params, w, logger)
			return nil
		})
	}
	_ = g.Wait()

	var failures []error
	for _, e := range results {
		if e != nil {
			failures = append(failures, e)
		}
	}
	return errors.Join(failures...)
}

func (r *Runner) runInstance(ctx context.Context, name string, params definition.Stanza, w *xmlstream.Writer, logger log.Logger) (err error) {
	ilog := logger.With(log.String(log.KeyStanza, name))
	ctx = log.WithContext(ctx, ilog)
	phase := PhaseStart
	started := time.Now()

	defer func() {
		if v := recover(); v != nil {
			err = &InstanceError{Name: name, Phase: phase, Err: &PanicError{Value: v}}
		}
		if err != nil {
			ilog.Error("instance failed", log.String(log.KeyPhase, string(phase)), log.Err(err))
		} else {
			ilog.Debug("instance finished", log.Duration("elapsed", time.Since(started)))
		}
		r.opts.recorder.InstanceFinished(name, time.Since(started), err)
	}()

	if s, ok := r.input.(Starter); ok {
		if err := s.Start(ctx, name, params); err != nil {
			return &InstanceError{Name: name, Phase: phase, Err: err}
		}
	}

	phase = PhaseStream
	ew := &instanceWriter{name: name, out: w, recorder: r.opts.recorder}
	if err := r.input.StreamEvents(ctx, name, params, ew); err != nil {
		return &InstanceError{Name: name, Phase: phase, Err: err}
	}

	phase = PhaseEnd
	if e, ok := r.input.(Ender); ok {
		if err := e.End(ctx, name, params); err != nil {
			return &InstanceError{Name: name, Phase: phase, Err: err}
		}
	}
	return nil
}

func (r *Runner) initPlugins(ctx context.Context, cfg PluginConfig, logger log.Logger) ([]Plugin, error) {
	var initialized []Plugin
	for _, p := range r.opts.plugins {
		if err := initPlugin(ctx, p, cfg); err != nil {
			logger.Error("plugin initialization failed", log.String(log.KeyPlugin, p.Name()), log.Err(err))
			return initialized, fmt.Errorf("%w: %s: %w", ErrPluginFailure, p.Name(), err)
		}
		logger.Debug("plugin initialized", log.String(log.KeyPlugin, p.Name()))
		initialized = append(initialized, p)
	}
	return initialized, nil
}

func initPlugin(ctx context.Context, p Plugin, cfg PluginConfig) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()
	return p.Initialize(ctx, cfg)
}

func (r *Runner) shutdownPlugins(plugins []Plugin, logger log.Logger) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := shutdownPlugin(ctx, p); err != nil {
			logger.Error("plugin shutdown failed", log.String(log.KeyPlugin, p.Name()), log.Err(err))
			continue
		}
		logger.Debug("plugin shutdown complete", log.String(log.KeyPlugin, p.Name()))
	}
}

func shutdownPlugin(ctx context.Context, p Plugin) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Value: v}
		}
	}()
	return p.Shutdown(ctx)
}
