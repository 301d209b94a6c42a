// Package visualizer renders state machine definitions as Mermaid state
// diagrams. Since any state may transition to any other, edges come from
// observed engine history rather than from the definition.
//
//nolint:varnamelen // short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/amp-fsm/statemachine"
)

// Visualizer errors.
var (
	ErrDefinitionNil = errors.New("definition cannot be nil")
	ErrNoStates      = errors.New("definition must have at least one state")
)

type stateView struct {
	name    string
	actions []string
}

// GenerateMermaid converts a definition to a Mermaid state diagram.
func GenerateMermaid(def *statemachine.Definition) (string, error) {
	return GenerateMermaidWithOptions(def, DefaultOptions())
}

// GenerateMermaidWithOptions converts a definition with custom options.
func GenerateMermaidWithOptions(def *statemachine.Definition, opts Options) (string, error) {
	if def == nil {
		return "", ErrDefinitionNil
	}

	names := make([]string, 0, len(def.States))
	for name := range def.States {
		names = append(names, name)
	}

	natsort.Sort(names)

	views := make([]stateView, 0, len(names))

	for _, name := range names {
		actions := make([]string, 0, len(def.States[name].Actions))
		for action := range def.States[name].Actions {
			actions = append(actions, action)
		}

		natsort.Sort(actions)

		views = append(views, stateView{name: name, actions: actions})
	}

	return render(views, opts)
}

// GenerateMermaidFromFile renders a YAML manifest, keeping its state order.
// The manifest's initial state is used unless opts sets one.
func GenerateMermaidFromFile(path string, opts Options) (string, error) {
	manifest, err := statemachine.LoadManifest(path)
	if err != nil {
		return "", fmt.Errorf("failed to load manifest: %w", err)
	}

	if opts.InitialState == "" {
		opts.InitialState = manifest.InitialState
	}

	views := make([]stateView, 0, len(manifest.States))

	for _, state := range manifest.States {
		view := stateView{name: state.Name}
		for _, action := range state.Actions {
			view.actions = append(view.actions, action.Name)
		}

		views = append(views, view)
	}

	return render(views, opts)
}

func render(states []stateView, opts Options) (string, error) {
	if len(states) == 0 {
		return "", ErrNoStates
	}

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("stateDiagram-v2\n")

	if opts.Direction != "" {
		fmt.Fprintf(&sb, "    direction %s\n", opts.Direction)
	}

	initial := opts.InitialState
	if initial == "" && len(opts.History) > 0 && opts.History[0].From == statemachine.Unset {
		initial = opts.History[0].To
	}

	if initial != "" {
		fmt.Fprintf(&sb, "    [*] --> %s\n", initial)
	}

	highlighted := make(map[string]bool, len(opts.HighlightPath))
	for _, state := range opts.HighlightPath {
		highlighted[state] = true
	}

	for _, state := range states {
		fmt.Fprintf(&sb, "    state %s\n", state.name)

		if opts.ShowActions && len(state.actions) > 0 {
			fmt.Fprintf(&sb, "    note right of %s: %s\n", state.name, strings.Join(state.actions, ", "))
		}
	}

	writeHistoryEdges(&sb, opts.History)

	for _, state := range states {
		switch {
		case state.name == opts.Current:
			fmt.Fprintf(&sb, "    class %s current\n", state.name)
		case highlighted[state.name]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", state.name)
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef current fill:#c8e6c9,stroke:#2e7d32,stroke-width:3px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:2px\n")
	sb.WriteString("```\n")

	return sb.String(), nil
}

// writeHistoryEdges draws one edge per distinct observed swap, in order of
// first occurrence, labelled with a count when it happened more than once.
func writeHistoryEdges(sb *strings.Builder, history []statemachine.StateTransition) {
	type edge struct{ from, to string }

	var order []edge

	counts := make(map[edge]int)

	for _, h := range history {
		if h.From == statemachine.Unset {
			continue
		}

		e := edge{from: h.From, to: h.To}
		if counts[e] == 0 {
			order = append(order, e)
		}

		counts[e]++
	}

	for _, e := range order {
		if n := counts[e]; n > 1 {
			fmt.Fprintf(sb, "    %s --> %s: x%d\n", e.from, e.to, n)
		} else {
			fmt.Fprintf(sb, "    %s --> %s\n", e.from, e.to)
		}
	}
}
