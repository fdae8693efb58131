package colmap

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/mrliujie/ColmapForVisSat/model"
)

// Logger wraps slog.Logger with cache-specific context.
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

// WithImage adds an image id field to the logger.
func (l *Logger) WithImage(imageID model.ImageID) *Logger {
	return &Logger{
		Logger: l.Logger.With("image_id", uint32(imageID)),
	}
}

// WithImagePair adds the two image ids of a pair to the logger.
func (l *Logger) WithImagePair(imageID1, imageID2 model.ImageID) *Logger {
	return &Logger{
		Logger: l.Logger.With("image_id1", uint32(imageID1), "image_id2", uint32(imageID2)),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogLoadPhase logs one completed phase of a cache load with the number of
// records it admitted and the time it took.
func (l *Logger) LogLoadPhase(ctx context.Context, phase string, count int, elapsed time.Duration) {
	l.InfoContext(ctx, "load phase completed",
		"phase", phase,
		"count", count,
		"elapsed", elapsed,
	)
}

// LogLoadFailed logs an aborted cache load.
func (l *Logger) LogLoadFailed(ctx context.Context, phase string, err error) {
	l.ErrorContext(ctx, "load failed",
		"phase", phase,
		"error", err,
	)
}

// LogIgnoredPairs logs how many image pairs the load filtered out.
func (l *Logger) LogIgnoredPairs(ctx context.Context, count int) {
	if count == 0 {
		return
	}
	l.WithCount(count).InfoContext(ctx, "ignored image pairs")
}

// LogImageObservations logs the observation count of one image. Used by the
// diagnostics reporter to emit per-image detail below the summary.
func (l *Logger) LogImageObservations(ctx context.Context, imageID model.ImageID, name string, numObservations int) {
	l.WithImage(imageID).DebugContext(ctx, "per-view observations",
		"name", name,
		"observations", numObservations,
	)
}
