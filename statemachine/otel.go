package statemachine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startTransitionSpan creates the span covering one transition. It is ended
// by the transition's completion, which may happen on another goroutine.
//
//nolint:spancheck // Span lifecycle managed by caller
func startTransitionSpan(ctx context.Context, e *Engine, from, to string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fsm.transition")
	addEngineAttributes(span, e)
	span.SetAttributes(
		attribute.String("from_state", sanitizeState(from)),
		attribute.String("to_state", to),
	)

	return ctx, span
}

// startHookSpan creates a child span for an init, enter or exit hook.
//
//nolint:spancheck // Span lifecycle managed by caller
func startHookSpan(ctx context.Context, e *Engine, state string, hook HookName) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fsm.hook."+string(hook))
	addEngineAttributes(span, e)
	span.SetAttributes(
		attribute.String("state", state),
		attribute.String("hook", string(hook)),
	)

	return ctx, span
}

// startActionSpan creates a span for an invoked action. Transitions requested
// by the action become its children.
//
//nolint:spancheck // Span lifecycle managed by caller
func startActionSpan(ctx context.Context, e *Engine, state, action string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "fsm.action."+action)
	addEngineAttributes(span, e)
	span.SetAttributes(
		attribute.String("state", sanitizeState(state)),
		attribute.String("action", action),
	)

	return ctx, span
}

func addEngineAttributes(span trace.Span, e *Engine) {
	span.SetAttributes(
		attribute.String("machine", e.name),
		attribute.String("engine_id", e.id),
	)
}

func endSpan(span trace.Span, elapsed time.Duration, err error) {
	span.SetAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds()))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "completed")
	}

	span.End()
}
