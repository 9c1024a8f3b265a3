package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	InPath         string `toml:"in"`
	OutPath        string `toml:"out"`
	ErrPath        string `toml:"error"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`
	ReadTimeout    string `toml:"read_timeout"`
	MaxConcurrency int    `toml:"max_concurrency"`
	MetricsFile    string `toml:"metrics_file"`
	WatchConfig    *bool  `toml:"watch_config"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.modinput/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".modinput", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("in", fc.InPath, &cfg.InPath)
	s.setString("out", fc.OutPath, &cfg.OutPath)
	s.setString("error", fc.ErrPath, &cfg.ErrPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setString("metrics-file", fc.MetricsFile, &cfg.MetricsFile)

	if err := s.setDuration("read-timeout", fc.ReadTimeout, &cfg.ReadTimeout); err != nil {
		return err
	}

	s.setInt("max-concurrency", fc.MaxConcurrency, &cfg.MaxConcurrency)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
