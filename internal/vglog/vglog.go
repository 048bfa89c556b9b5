// Package vglog is a thin functional-options wrapper around
// log/slog, grounded on ardnew-aenv's log package shape (SPEC_FULL
// ยง7). log/slog itself is standard library: no repo in the example
// pack ships a non-stdlib-backed structured logger, so this wrapper
// carries the pack's functional-option idiom without reaching for a
// third-party logging library that isn't demonstrated anywhere in it.
package vglog

import (
	"io"
	"log/slog"
)

// Logger embeds *slog.Logger so callers can use the full slog API
// (With, Debug, Info, ...) directly.
type Logger struct {
	*slog.Logger
}

// Option configures a Logger built by New.
type Option func(*options)

type options struct {
	level  slog.Level
	source bool
}

// WithLevel sets the minimum level a Logger emits.
func WithLevel(l slog.Level) Option {
	return func(o *options) { o.level = l }
}

// WithSource enables source file:line annotations on log records.
func WithSource(enabled bool) Option {
	return func(o *options) { o.source = enabled }
}

// New builds a Logger writing text-formatted records to w.
func New(w io.Writer, opts ...Option) Logger {
	o := options{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(&o)
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     o.level,
		AddSource: o.source,
	})
	return Logger{Logger: slog.New(handler)}
}

// Discard returns a Logger that drops every record, for callers (such
// as tests) that don't want log output.
func Discard() Logger {
	return Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
