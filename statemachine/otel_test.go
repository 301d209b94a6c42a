//nolint:err113 // Test file uses errors.New() for creating test errors
package statemachine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs a tracer provider backed by an in-memory exporter.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(trace.WithSyncer(exporter))

	oldProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(oldProvider)
	})

	return exporter
}

func spanAttr(span tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}

	return attribute.Value{}, false
}

// Swaps the global tracer provider.
//
//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestSpans_TransitionAndHooks(t *testing.T) {
	exporter := setupTestTracer(t)

	boom := errors.New("refused")
	def := &Definition{
		States: map[string]StateTable{
			"a": {
				OnEnter: Sync(func(context.Context) error { return nil }),
				Actions: map[string]Action{
					"reject": SyncAction(func(context.Context, any) error { return boom }),
				},
			},
		},
	}

	engine := NewEngine(WithName("traced"), WithLogger(NopLogger{}))
	require.NoError(t, engine.Attach(def))

	ctx := context.Background()
	require.NoError(t, engine.Start(ctx, "a", nil, nil))
	require.NoError(t, engine.Invoke(ctx, "reject", nil, nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	// Spans are exported as they end: hook, then transition, then action.
	hook, transition, action := spans[0], spans[1], spans[2]

	assert.Equal(t, "fsm.hook.enter", hook.Name)
	assert.Equal(t, "fsm.transition", transition.Name)
	assert.Equal(t, "fsm.action.reject", action.Name)

	assert.Equal(t, transition.SpanContext.SpanID(), hook.Parent.SpanID())
	assert.Equal(t, codes.Ok, transition.Status.Code)
	assert.Equal(t, codes.Error, action.Status.Code)

	machine, ok := spanAttr(transition, "machine")
	require.True(t, ok)
	assert.Equal(t, "traced", machine.AsString())

	from, ok := spanAttr(transition, "from_state")
	require.True(t, ok)
	assert.Equal(t, "none", from.AsString())

	id, ok := spanAttr(action, "engine_id")
	require.True(t, ok)
	assert.Equal(t, engine.ID(), id.AsString())
}
