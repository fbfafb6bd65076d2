package hearth

import (
	"log/slog"

	"github.com/gogpu/wgpu/hal"
	"github.com/hearth-engine/hearth/internal/logging"
)

// SetLogger configures the logger for hearth and all its sub-packages.
// By default, hearth produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior). The same
// logger is handed to the wgpu HAL so backend diagnostics are interleaved
// with engine output.
//
// Log levels used by hearth:
//   - [slog.LevelDebug]: internal diagnostics (batch flushes, buffer sizes)
//   - [slog.LevelInfo]: lifecycle events (adapter selected, engine started)
//   - [slog.LevelWarn]: non-fatal issues (rejected resize, terrain arena full)
//   - [slog.LevelError]: shader diagnostics emitted right before a fatal panic
//
// Example:
//
//	hearth.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
	hal.SetLogger(l)
}

// Logger returns the current logger used by hearth.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
