// Package logging holds the logger shared by the fence generator packages.
// By default nothing is logged; commands install a real handler with
// SetLogger.
package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records. Enabled returns false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger replaces the shared logger. Passing nil restores the silent
// default. Safe for concurrent use.
//
// Levels:
//   - Debug: per-candidate rejections, intermediate geometry counts
//   - Info: run summaries
//   - Warn: recovered geometry failures
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the shared logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
