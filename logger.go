package rombasis

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with rombasis-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithBasisName adds the basis blob-name prefix to the logger.
func (l *Logger) WithBasisName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("basis_name", name),
	}
}

// WithInterval adds a time-interval index field to the logger.
func (l *Logger) WithInterval(interval int) *Logger {
	return &Logger{
		Logger: l.Logger.With("interval", interval),
	}
}

// LogSample logs a sample collection.
func (l *Logger) LogSample(ctx context.Context, time float64, rank, numSamples int, accepted bool) {
	if !accepted {
		l.WarnContext(ctx, "sample rejected",
			"time", time,
		)
	} else {
		l.DebugContext(ctx, "sample collected",
			"time", time,
			"rank", rank,
			"num_samples", numSamples,
		)
	}
}

// LogFlush logs an interval snapshot flush.
func (l *Logger) LogFlush(ctx context.Context, name string, interval, rank int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "interval flush failed",
			"name", name,
			"interval", interval,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "interval flushed",
			"name", name,
			"interval", interval,
			"rank", rank,
		)
	}
}

// LogStateSave logs a restart-state save.
func (l *Logger) LogStateSave(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "state save failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "state saved",
			"name", name,
		)
	}
}

// LogRestore logs a restart-state restore.
func (l *Logger) LogRestore(ctx context.Context, name string, numSamples int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "restore failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "restore completed",
			"name", name,
			"num_samples", numSamples,
		)
	}
}
