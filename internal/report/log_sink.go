package report

import (
	"context"
	"log/slog"

	"github.com/vk/taskgrid/internal/ctxlog"
)

// LogSink writes events to the logger found in the emitting context.
type LogSink struct{}

// Emit logs ev. Target starts are debug-level; everything else is info,
// or error when a target failed.
func (LogSink) Emit(ctx context.Context, ev Event) {
	logger := ctxlog.FromContext(ctx).With("run_id", ev.RunID)

	switch ev.Kind {
	case RunStarted:
		logger.Info("🚀 Run started.", "goals", ev.Goals)
	case TargetStarted:
		logger.Debug("Target started.", "target", ev.Target)
	case TargetFinished:
		level := slog.LevelInfo
		if ev.Status == "failed" {
			level = slog.LevelError
		}
		args := []any{"target", ev.Target, "status", ev.Status, "duration", ev.Duration}
		if ev.Error != "" {
			args = append(args, "error", ev.Error)
		}
		logger.Log(ctx, level, "Target finished.", args...)
	case RunFinished:
		logger.Info("🏁 Run finished.", "status", ev.Status, "duration", ev.Duration)
	}
}

// Close is a no-op.
func (LogSink) Close() error { return nil }
