package geogenie

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/VijetHegde604/GeoGenie-backend/model"
)

// Logger wraps slog.Logger with geogenie-specific context.
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
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// LogRecognize logs a recognition request.
func (l *Logger) LogRecognize(ctx context.Context, res model.Result, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "recognition failed",
			"duration", duration,
			"error", err,
		)
		return
	}

	l.DebugContext(ctx, "recognition completed",
		"source", res.Source.String(),
		"place_name", res.PlaceName,
		"confidence", res.Confidence,
		"duration", duration,
	)
}

// LogFeedback logs a feedback submission.
func (l *Logger) LogFeedback(ctx context.Context, correctedName string, duration time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "feedback rejected",
			"corrected_name", correctedName,
			"error", err,
		)
		return
	}

	l.InfoContext(ctx, "feedback accepted",
		"corrected_name", correctedName,
		"duration", duration,
	)
}

// LogSeed logs a bulk seed operation.
func (l *Logger) LogSeed(ctx context.Context, inserted int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "seed failed",
			"inserted", inserted,
			"error", err,
		)
		return
	}

	l.InfoContext(ctx, "seed completed",
		"inserted", inserted,
		"duration", duration,
	)
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"op", op,
			"name", name,
			"error", err,
		)
		return
	}

	l.InfoContext(ctx, "snapshot completed",
		"op", op,
		"name", name,
	)
}
