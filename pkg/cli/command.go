package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/modinput/internal/cliconfig"
	"github.com/bft-labs/modinput/pkg/log"
	"github.com/bft-labs/modinput/pkg/metrics"
	"github.com/bft-labs/modinput/pkg/modinput"
	"github.com/bft-labs/modinput/plugins/configwatcher"
)

// Option adds runner options to every run started by the command.
type Option func(*settings)

type settings struct {
	short   string
	long    string
	example string
	runOpts []modinput.Option
}

// WithShort sets the one-line description shown in help.
func WithShort(s string) Option {
	return func(o *settings) { o.short = s }
}

// WithLong sets the long description shown in help.
func WithLong(s string) Option {
	return func(o *settings) { o.long = s }
}

// WithExample sets the usage examples shown in help.
func WithExample(s string) Option {
	return func(o *settings) { o.example = s }
}

// WithRunnerOptions passes extra options to modinput.New.
func WithRunnerOptions(opts ...modinput.Option) Option {
	return func(o *settings) { o.runOpts = append(o.runOpts, opts...) }
}

// NewCommand builds the root command for an input executable named name.
//
// Protocol documents are read from the command's input and written to its
// output (stdin and stdout unless redirected with --in and --out); logs go
// to the error stream.
func NewCommand(name string, input modinput.Input, opts ...Option) *cobra.Command {
	st := settings{short: "Modular input " + name}
	for _, opt := range opts {
		opt(&st)
	}

	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	var scheme, validate bool

	cmd := &cobra.Command{
		Use:           name,
		Short:         st.short,
		Long:          st.long,
		Example:       st.example,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := modinput.ParseMode(scheme, validate)
			if err != nil {
				return err
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := loadConfig(&cfg, cfgPath, changed); err != nil {
				return err
			}

			ios, err := openStreams(cmd, cfg)
			if err != nil {
				return err
			}
			defer ios.Close()

			zl := cliconfig.NewLogger(ios.err, cfg.LogFormat)
			if err := cliconfig.SetLogLevel(cfg.LogLevel); err != nil {
				return err
			}
			logger := log.NewZerologAdapterWithLogger(zl)

			runOpts := []modinput.Option{
				modinput.WithStreams(ios.in, ios.out),
				modinput.WithLogger(logger),
				modinput.WithReadTimeout(cfg.ReadTimeout),
				modinput.WithMaxConcurrency(cfg.MaxConcurrency),
			}
			var m *metrics.Metrics
			if cfg.MetricsFile != "" {
				m = metrics.New()
				runOpts = append(runOpts, modinput.WithMetrics(m))
			}
			if cfg.WatchConfig {
				runOpts = append(runOpts, configwatcher.WithConfigWatcher(configwatcher.DefaultConfig(cfg.ConfigPath)))
			}
			runOpts = append(runOpts, st.runOpts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runErr := modinput.New(input, runOpts...).Run(ctx, mode)

			if m != nil {
				if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
					logger.Warn("metrics not written", log.Err(err))
				}
			}
			return runErr
		},
	}

	f := cmd.Flags()
	f.BoolVar(&scheme, "scheme", false, "print the input's scheme and exit")
	f.BoolVar(&validate, "validate-arguments", false, "validate the configuration read from the input stream")
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.modinput/config.toml)")
	f.StringVar(&cfg.InPath, "in", cfg.InPath, "read protocol documents from this file instead of stdin")
	f.StringVar(&cfg.OutPath, "out", cfg.OutPath, "write protocol documents to this file instead of stdout")
	f.StringVar(&cfg.ErrPath, "error", cfg.ErrPath, "append logs to this file instead of stderr")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	f.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console or json")
	f.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "how long to wait for the host's document")
	f.IntVar(&cfg.MaxConcurrency, "max-concurrency", cfg.MaxConcurrency, "instances streaming at once (0: all)")
	f.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write Prometheus metrics to this file at exit")
	f.BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload the config file's log level on change")

	return cmd
}

// Execute runs cmd and returns the process exit code.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", cmd.Name(), err)
	}
	return modinput.ExitCode(err)
}

// Main is the entry point for an input executable.
func Main(name string, input modinput.Input, opts ...Option) {
	os.Exit(Execute(context.Background(), NewCommand(name, input, opts...)))
}

func loadConfig(cfg *cliconfig.Config, explicitPath string, changed map[string]bool) error {
	// Load config file first (default $HOME/.modinput/config.toml), then env,
	// with explicitly set flags winning over both.
	path := explicitPath
	if path == "" {
		path = cliconfig.DefaultConfigPath()
	}

	if path != "" && cliconfig.FileExists(path) {
		fc, err := cliconfig.LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
		cfg.ConfigPath = path
	} else if explicitPath != "" {
		return fmt.Errorf("config file %s does not exist", explicitPath)
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

type streams struct {
	in      io.Reader
	out     io.Writer
	err     io.Writer
	closers []io.Closer
}

func openStreams(cmd *cobra.Command, cfg cliconfig.Config) (*streams, error) {
	s := &streams{in: cmd.InOrStdin(), out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}

	if cfg.InPath != "" {
		f, err := os.Open(cfg.InPath)
		if err != nil {
			return nil, fmt.Errorf("open --in: %w", err)
		}
		s.in = f
		s.closers = append(s.closers, f)
	}
	if cfg.OutPath != "" {
		f, err := os.Create(cfg.OutPath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open --out: %w", err)
		}
		s.out = f
		s.closers = append(s.closers, f)
	}
	if cfg.ErrPath != "" {
		f, err := os.OpenFile(cfg.ErrPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open --error: %w", err)
		}
		s.err = f
		s.closers = append(s.closers, f)
	}
	return s, nil
}

func (s *streams) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i].Close()
	}
}
