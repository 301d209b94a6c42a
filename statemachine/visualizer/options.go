package visualizer

import "github.com/amp-labs/amp-fsm/statemachine"

// Options configures the visualization output.
type Options struct {
	// ShowActions adds a note listing the actions of each state.
	ShowActions bool

	// Direction controls diagram flow: "TB" (top to bottom) or "LR" (left to right).
	Direction string

	// InitialState draws the [*] entry edge. When empty, the first recorded
	// history entry is used, if any.
	InitialState string

	// History adds an edge for every observed state swap.
	History []statemachine.StateTransition

	// Current highlights the active state.
	Current string

	// HighlightPath highlights a set of states.
	HighlightPath []string
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowActions: true,
		Direction:   "TB",
	}
}

// WithShowActions enables or disables action notes.
func (o Options) WithShowActions(show bool) Options {
	o.ShowActions = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithInitialState sets the state the entry edge points to.
func (o Options) WithInitialState(state string) Options {
	o.InitialState = state

	return o
}

// WithEngine draws the history and current state of engine.
func (o Options) WithEngine(engine *statemachine.Engine) Options {
	o.History = engine.History()
	o.Current = engine.CurrentState()

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}
