// Package log is the structured logging surface used by the runner, the
// CLI and plugins.
//
// Inputs receive a Logger through the runner and never talk to zerolog
// directly, so an embedding program can route messages wherever it wants.
// Note that an input must not log to stdout: stdout carries the protocol.
//
//	logger := log.NewZerologAdapter(os.Stderr)
//	logger = logger.With(log.String("stanza", name))
//	logger.Info("instance started")
//
// NewNoopLogger discards everything and is the default when no logger is
// configured.
package log
