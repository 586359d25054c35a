package fiber

import (
	"log/slog"

	"github.com/inory/fiber/fiberruntime"
)

// LogFormat selects how NewLogger renders records: LogFormatJSON (zap,
// bridged through zap-slog) or LogFormatConsole (colorized, via
// internal/prettylog). An empty LogFormat auto-detects from whether
// stderr is a terminal.
type LogFormat = fiberruntime.LogFormat

const (
	LogFormatJSON    = fiberruntime.LogFormatJSON
	LogFormatConsole = fiberruntime.LogFormatConsole
)

// NewLogger builds the runtime's structured logger.
func NewLogger(format LogFormat, level slog.Level) *slog.Logger {
	return fiberruntime.NewLogger(format, level)
}

// SetLogger installs the logger used for warnings the runtime itself
// emits (resume-of-done, dropped schedules, and similar).
func SetLogger(l *slog.Logger) {
	fiberruntime.SetLogger(l)
}
