package cmaa

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/cmaa/internal/pipeline"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for cmaa, the frame orchestrator and every
// registered backend. By default cmaa produces no log output. Pass nil to
// restore the silent default.
//
// Log levels used by cmaa:
//   - [slog.LevelDebug]: per-frame diagnostics (stage order, counters, overflow)
//   - [slog.LevelInfo]: device lifecycle (adapter selected)
//   - [slog.LevelWarn]: non-fatal issues (device fallback, shader reflection fallback)
//
// Example:
//
//	cmaa.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	pipeline.SetLogger(l)

	for _, name := range backends.Available() {
		propagateLogger(backends.Get(name), l)
	}
}

// Logger returns the current logger. Sub-packages call it to share the same
// configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(b Backend, l *slog.Logger) {
	if ls, ok := b.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
