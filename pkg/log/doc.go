// Package log provides flashlog's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. It is backed by the standard library's
// slog through a bridge handler that feeds our formatter and output pipeline,
// so output stays consistent whether code logs through this facade or through
// a *slog.Logger obtained from Slog.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("eventlog"))
//	l.Info("segment rotated", log.Int("segment", 3))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level, text or json
// format, console or null output).
//
// # Interop
//
// Pebble and other libraries log through the standard library's log package;
// RedirectStdLog routes those lines into a Logger.
package log
