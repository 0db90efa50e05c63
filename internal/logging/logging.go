package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type requestIDKey struct{}

// Setup installs the process-wide slog logger. Production gets JSON, everything else text.
func Setup(env, level string) *slog.Logger {
	return setup(os.Stdout, env, level)
}

func setup(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if env == "production" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request id set by WithRequestID.
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured logging scoped to one request.
type Logger struct {
	log *slog.Logger
}

// NewLogger creates a logger carrying the request id found in ctx.
func NewLogger(ctx context.Context) *Logger {
	rid := RequestID(ctx)
	if rid == "" {
		rid = "unknown"
	}
	return &Logger{log: slog.Default().With("request_id", rid)}
}

// Slog exposes the underlying logger for callers that want extra attributes.
func (l *Logger) Slog() *slog.Logger {
	return l.log
}

func (l *Logger) LogError(operation string, err error) {
	l.log.Error("operation failed", "operation", operation, "error", err)
}

func (l *Logger) LogInfo(operation, message string, args ...any) {
	l.log.Info(message, append([]any{"operation", operation}, args...)...)
}

func (l *Logger) LogWarn(operation, message string, args ...any) {
	l.log.Warn(message, append([]any{"operation", operation}, args...)...)
}
