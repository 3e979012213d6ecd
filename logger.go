package appendbuf

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with appendbuf-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithBlock adds a block ID field to the logger.
func (l *Logger) WithBlock(id uint32) *Logger {
	return &Logger{
		Logger: l.Logger.With("block", id),
	}
}

// LogAllocate logs a block allocation for a new buffer.
func (l *Logger) LogAllocate(ctx context.Context, id uint32, capacity int, err error) {
	if err != nil {
		l.WarnContext(ctx, "buffer allocation failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "buffer allocated",
			"block", id,
			"capacity", capacity,
		)
	}
}

// LogRelease logs the return of a block to its source.
func (l *Logger) LogRelease(ctx context.Context, id uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "block release failed",
			"block", id,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "block released",
			"block", id,
		)
	}
}

// LogLeak logs a handle that became unreachable without being released.
func (l *Logger) LogLeak(ctx context.Context, kind string, id uint32) {
	l.WarnContext(ctx, "handle leaked without release",
		"kind", kind,
		"block", id,
	)
}
