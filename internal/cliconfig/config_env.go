package cliconfig

import "os"

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "MODINPUT_"

// ApplyEnvConfig applies configuration from environment variables (MODINPUT_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("in", os.Getenv(EnvPrefix+"IN"), &cfg.InPath)
	s.setString("out", os.Getenv(EnvPrefix+"OUT"), &cfg.OutPath)
	s.setString("error", os.Getenv(EnvPrefix+"ERROR"), &cfg.ErrPath)
	s.setString("log-level", os.Getenv(EnvPrefix+"LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", os.Getenv(EnvPrefix+"LOG_FORMAT"), &cfg.LogFormat)
	s.setString("metrics-file", os.Getenv(EnvPrefix+"METRICS_FILE"), &cfg.MetricsFile)

	if err := s.setDuration("read-timeout", os.Getenv(EnvPrefix+"READ_TIMEOUT"), &cfg.ReadTimeout); err != nil {
		return err
	}
	if err := s.setIntFromString("max-concurrency", os.Getenv(EnvPrefix+"MAX_CONCURRENCY"), &cfg.MaxConcurrency); err != nil {
		return err
	}

	s.setBoolFromString("watch-config", os.Getenv(EnvPrefix+"WATCH_CONFIG"), &cfg.WatchConfig)

	return nil
}
