package fiberruntime

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	zapslog "github.com/tommoulard/zap-slog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inory/fiber/internal/prettylog"
)

// LogFormat selects the rendering used by NewLogger, mirroring the
// teacher's own raw/pretty console switch in gosimruntime/log.go.
type LogFormat string

const (
	// LogFormatJSON renders structured JSON via zap, bridged to the
	// standard slog.Logger front door through zap-slog.
	LogFormatJSON LogFormat = "json"
	// LogFormatConsole renders colorized human-readable lines (adapted
	// from the teacher's internal/prettylog) when stderr is a terminal.
	LogFormatConsole LogFormat = "console"
)

// NewLogger builds the runtime's structured logger. The handler adds no
// fields of its own: records carry "worker" and "fiber" fields only where
// the call site attached them through fiberLogger.
func NewLogger(format LogFormat, level slog.Level) *slog.Logger {
	if format == "" {
		if isatty.IsTerminal(os.Stderr.Fd()) {
			format = LogFormatConsole
		} else {
			format = LogFormatJSON
		}
	}

	var handler slog.Handler
	switch format {
	case LogFormatConsole:
		handler = slog.NewJSONHandler(prettylog.NewWriter(os.Stderr), &slog.HandlerOptions{Level: level})
	default:
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(os.Stderr),
			zapLevelFor(level),
		)
		handler = zapslog.NewHandler(core)
	}

	return slog.New(&runtimeHandler{inner: handler})
}

func zapLevelFor(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// runtimeHandler is a thin pass-through today. The teacher's wrapHandler can
// stamp "machine"/"goroutine" onto every line unconditionally because gosim
// drives its whole simulation from one OS thread at a time; this runtime
// hands fibers across a real worker pool, so there is no ambient
// goroutine-local "current fiber" to read back from inside Handle without a
// global that would race across workers. Instead, call sites that run on
// behalf of a fiber attach its identity explicitly via fiberLogger below,
// the same way the stdlib wants context values threaded rather than
// recovered from ambient state.
type runtimeHandler struct {
	inner slog.Handler
}

func (h *runtimeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *runtimeHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *runtimeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &runtimeHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *runtimeHandler) WithGroup(name string) slog.Handler {
	return &runtimeHandler{inner: h.inner.WithGroup(name)}
}

// fiberLogger returns base annotated with f's identity and owning worker,
// the per-record equivalent of the teacher's auto-stamped "goroutine" field.
func fiberLogger(base *slog.Logger, f *Fiber) *slog.Logger {
	if f == nil {
		return base
	}
	return base.With(slog.Int64("fiber", f.ID), slog.Int("worker", int(f.consumerID.Load())))
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(discardLogger)
}

// SetLogger installs the logger used internally for warnings the runtime
// itself emits (resume-of-done, dropped schedules, and the like). Tests and
// callers that don't want a default should call this with a logger built
// from NewLogger, or leave it unset to discard these lines.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = discardLogger
	}
	defaultLogger.Store(l)
}

func runtimeLog() *slog.Logger {
	return defaultLogger.Load()
}
