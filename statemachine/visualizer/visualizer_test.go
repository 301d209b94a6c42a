package visualizer

import (
	"context"
	"strings"
	"testing"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop() statemachine.Action {
	return statemachine.SyncAction(func(context.Context, any) error { return nil })
}

func lightSwitch() *statemachine.Definition {
	return &statemachine.Definition{States: map[string]statemachine.StateTable{
		"on":  {Actions: map[string]statemachine.Action{"turnOff": noop()}},
		"off": {Actions: map[string]statemachine.Action{"turnOn": noop(), "break": noop()}},
	}}
}

func TestGenerateMermaid(t *testing.T) {
	t.Parallel()

	out, err := GenerateMermaid(lightSwitch())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "```mermaid\nstateDiagram-v2\n    direction TB\n"))
	assert.Contains(t, out, "    note right of off: break, turnOn\n")
	assert.Contains(t, out, "    note right of on: turnOff\n")
	assert.NotContains(t, out, "[*]")
	assert.Less(t, strings.Index(out, "state off"), strings.Index(out, "state on"))
	assert.True(t, strings.HasSuffix(out, "```\n"))
}

func TestGenerateMermaid_Errors(t *testing.T) {
	t.Parallel()

	_, err := GenerateMermaid(nil)
	require.ErrorIs(t, err, ErrDefinitionNil)

	_, err = GenerateMermaid(&statemachine.Definition{})
	require.ErrorIs(t, err, ErrNoStates)

	_, err = GenerateMermaidFromFile("testdata/missing.yaml", DefaultOptions())
	require.Error(t, err)
}

func TestGenerateMermaid_WithEngine(t *testing.T) {
	t.Parallel()

	def := lightSwitch()
	engine := statemachine.NewEngine(statemachine.WithLogger(nil))
	require.NoError(t, engine.Attach(def))

	ctx := context.Background()
	require.NoError(t, engine.Start(ctx, "off", nil, nil))
	require.NoError(t, engine.Transition(ctx, "on", nil, nil))
	require.NoError(t, engine.Transition(ctx, "off", nil, nil))
	require.NoError(t, engine.Transition(ctx, "on", nil, nil))

	opts := DefaultOptions().
		WithEngine(engine).
		WithShowActions(false).
		WithDirection("LR").
		WithHighlightPath([]string{"off"})

	out, err := GenerateMermaidWithOptions(def, opts)
	require.NoError(t, err)

	assert.Contains(t, out, "direction LR")
	assert.Contains(t, out, "    [*] --> off\n")
	assert.Contains(t, out, "    off --> on: x2\n")
	assert.Contains(t, out, "    on --> off\n")
	assert.Contains(t, out, "    class on current\n")
	assert.Contains(t, out, "    class off highlighted\n")
	assert.NotContains(t, out, "note right of")
}

func TestGenerateMermaidFromFile(t *testing.T) {
	t.Parallel()

	out, err := GenerateMermaidFromFile("testdata/door.yaml", DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, out, "    [*] --> closed\n")
	assert.Contains(t, out, "    note right of closed: open, lock\n")
	assert.Less(t, strings.Index(out, "state closed"), strings.Index(out, "state open"))

	out, err = GenerateMermaidFromFile("testdata/door.yaml", DefaultOptions().WithInitialState("open"))
	require.NoError(t, err)
	assert.Contains(t, out, "    [*] --> open\n")
}
