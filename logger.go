package dusk

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message
// formatting entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for dusk and all its sub-packages.
// By default dusk produces no log output. Pass nil to restore the
// default silent behavior.
//
// Log levels used by dusk:
//   - [slog.LevelDebug]: per-cycle diagnostics (layout passes, paint
//     list sizes, backend event traffic)
//   - [slog.LevelInfo]: lifecycle events (backend selected, surface
//     configured)
//   - [slog.LevelWarn]: degraded-but-continuing cases (unparsable CSS
//     declarations, image decode failures, present retries)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Sub-packages call this to share
// one logger configuration without import cycles.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
