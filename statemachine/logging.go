package statemachine

import (
	"context"
	"log/slog"
	"time"

	"github.com/amp-labs/amp-fsm/logger"
)

// Logger provides logging hooks for engine execution.
type Logger interface {
	StateEntered(ctx context.Context, state string)
	StateExited(ctx context.Context, state string)
	TransitionExecuted(ctx context.Context, from, to string, duration time.Duration, err error)
	HookCompleted(ctx context.Context, state string, hook HookName, duration time.Duration, err error)
	ActionInvoked(ctx context.Context, state, action string, duration time.Duration, err error)
}

// DefaultLogger implements Logger using slog. Without an explicit slog
// logger it resolves one per call through logger.Get, so context values added
// with logger.With show up in engine logs.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger backed by the process wide slog setup.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

// NewSlogLogger creates a logger that writes to l.
func NewSlogLogger(l *slog.Logger) *DefaultLogger {
	return &DefaultLogger{logger: l}
}

func (l *DefaultLogger) get(ctx context.Context) *slog.Logger {
	if l.logger != nil {
		return l.logger
	}

	return logger.Get(ctx)
}

func (l *DefaultLogger) StateEntered(ctx context.Context, state string) {
	l.get(ctx).DebugContext(ctx, "State entered", "state", state)
}

func (l *DefaultLogger) StateExited(ctx context.Context, state string) {
	l.get(ctx).DebugContext(ctx, "State exited", "state", state)
}

func (l *DefaultLogger) TransitionExecuted(ctx context.Context, from, to string, duration time.Duration, err error) {
	fields := []any{
		"from", sanitizeState(from),
		"to", to,
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		l.get(ctx).ErrorContext(ctx, "Transition failed", append(fields, "error", err)...)

		return
	}

	l.get(ctx).InfoContext(ctx, "Transition executed", fields...)
}

func (l *DefaultLogger) HookCompleted(
	ctx context.Context,
	state string,
	hook HookName,
	duration time.Duration,
	err error,
) {
	fields := []any{
		"state", state,
		"hook", string(hook),
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		l.get(ctx).ErrorContext(ctx, "Hook completed with error", append(fields, "error", err)...)

		return
	}

	l.get(ctx).DebugContext(ctx, "Hook completed", fields...)
}

func (l *DefaultLogger) ActionInvoked(
	ctx context.Context,
	state, action string,
	duration time.Duration,
	err error,
) {
	fields := []any{
		"state", sanitizeState(state),
		"action", action,
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		l.get(ctx).ErrorContext(ctx, "Action completed with error", append(fields, "error", err)...)

		return
	}

	l.get(ctx).DebugContext(ctx, "Action completed", fields...)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) StateEntered(context.Context, string)                                    {}
func (NopLogger) StateExited(context.Context, string)                                     {}
func (NopLogger) TransitionExecuted(context.Context, string, string, time.Duration, error) {}
func (NopLogger) HookCompleted(context.Context, string, HookName, time.Duration, error)    {}
func (NopLogger) ActionInvoked(context.Context, string, string, time.Duration, error)      {}

var (
	_ Logger = (*DefaultLogger)(nil)
	_ Logger = NopLogger{}
)
