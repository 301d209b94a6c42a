//nolint:err113 // Test file uses errors.New() for creating test errors
package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotateError_NilError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, AnnotateError(nil, "key", "value"))
}

func TestAnnotateError_KeepsMessageAndChain(t *testing.T) {
	t.Parallel()

	base := errors.New("base error")
	annotated := AnnotateError(base, "state", "idle", "attempt", 3)

	require.Error(t, annotated)
	assert.Equal(t, "base error", annotated.Error())
	require.ErrorIs(t, annotated, base)

	var ae *annotatedError
	require.ErrorAs(t, annotated, &ae)
	require.Len(t, ae.attrs, 2)
	assert.Equal(t, "state", ae.attrs[0].Key)
	assert.Equal(t, "attempt", ae.attrs[1].Key)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	return out
}

func TestErrorHandler_ExpandsAnnotations(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := slog.New(NewErrorHandler(slog.NewJSONHandler(&buf, nil)))

	err := fmt.Errorf("wrapped: %w", AnnotateError(errors.New("boom"), "state", "running"))
	log.ErrorContext(context.Background(), "hook failed", "error", err)

	line := decodeLine(t, &buf)
	assert.Equal(t, "hook failed", line["msg"])
	assert.Equal(t, "wrapped: boom", line["error"])
	assert.Equal(t, "running", line["state"])
}

func TestErrorHandler_PassesThroughPlainRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	log := slog.New(NewErrorHandler(slog.NewJSONHandler(&buf, nil))).
		With("machine", "door").
		WithGroup("g")

	log.Info("plain", "error", errors.New("plain error"))

	line := decodeLine(t, &buf)
	assert.Equal(t, "door", line["machine"])

	group, ok := line["g"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "plain error", group["error"])
}
