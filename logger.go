package poserender

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that discards all records
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// loggerPtr stores the active logger
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by the renderer.  By default no log
// output is produced.  Pass nil to restore the silent default.
//
// Log levels used:
//   - [slog.LevelDebug]: lifecycle events, device buffer sizes
//   - [slog.LevelWarn]: resource release failures
//   - [slog.LevelError]: frames that failed to render
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}

	loggerPtr.Store(l)
}

// Logger returns the current logger
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// logError logs a failed operation with its call site
func logError(err error) {

	var e *Error

	if errors.As(err, &e) && e.Err != nil {
		Logger().Error(e.Err.Error(),
			"op", e.Op,
			"kind", e.Kind.String(),
			"file", e.File,
			"line", e.Line,
		)
		return
	}

	Logger().Error(err.Error())
}
