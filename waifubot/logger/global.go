package logger

import (
	"log/slog"
	"time"
)

// Values of the "type" attribute. Handler tags each line by them.
const (
	KindCommand   = "cmd"
	KindComponent = "component"
	KindDB        = "db"
	KindSystem    = "sys"
	KindError     = "error"
)

// Interaction outcomes, also used as the status label of the latency histogram.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSlow    = "slow"
	StatusTimeout = "timeout"
)

// LogInteraction reports how a slash command or button handler finished.
// kind is KindCommand or KindComponent.
func LogInteraction(kind, name, userID, userName, status string, took time.Duration, err error) {
	attrs := []any{
		slog.String("type", kind),
		slog.String("name", name),
		slog.String("user_id", userID),
		slog.String("user_name", userName),
		slog.String("status", status),
		slog.Duration("took", took),
	}
	switch status {
	case StatusSuccess:
		slog.Info("Interaction completed", attrs...)
	case StatusSlow:
		slog.Warn("Interaction executed slowly", attrs...)
	case StatusTimeout:
		slog.Error("Interaction timed out", attrs...)
	default:
		slog.Error("Interaction failed", append(attrs, slog.Any("error", err))...)
	}
}

// LogQuery reports a raw statement. Successes only show at debug level; schema setup runs
// dozens of them on every start.
func LogQuery(op, query string, took time.Duration, affected int64, err error) {
	attrs := []any{
		slog.String("type", KindDB),
		slog.String("operation", op),
		slog.String("query", query),
		slog.Duration("took", took),
	}
	if err != nil {
		slog.Error("Query failed", append(attrs, slog.Any("error", err))...)
		return
	}
	slog.Debug("Query executed", append(attrs, slog.Int64("affected_rows", affected))...)
}

// LogSystem logs a lifecycle event: startup steps, imports, shutdown.
func LogSystem(msg string, attrs ...any) {
	slog.Info(msg, append([]any{slog.String("type", KindSystem)}, attrs...)...)
}

// LogError logs a failure that has no caller left to return it to.
func LogError(msg string, err error, attrs ...any) {
	slog.Error(msg, append([]any{slog.String("type", KindError), slog.Any("error", err)}, attrs...)...)
}
