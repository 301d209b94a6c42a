package fsmtest

import (
	"context"

	"github.com/amp-labs/amp-fsm/statemachine"
)

// Requester gives fixture handlers access to the engine running them, which
// only exists after the definition is built.
type Requester struct {
	Engine *statemachine.Engine
}

// GoTo returns an asynchronous action that transitions to target, carrying
// the action params as the new data.
func (r *Requester) GoTo(target string) statemachine.Action {
	return statemachine.AsyncAction(func(ctx context.Context, params any, done statemachine.Callback) {
		if err := r.Engine.Transition(ctx, target, params, done); err != nil {
			done(err)
		}
	})
}

// LightSwitch builds the two state on/off machine. Bind r.Engine before
// invoking actions.
func LightSwitch(r *Requester) *statemachine.Definition {
	return &statemachine.Definition{
		States: map[string]statemachine.StateTable{
			"off": {Actions: map[string]statemachine.Action{"turnOn": r.GoTo("on")}},
			"on":  {Actions: map[string]statemachine.Action{"turnOff": r.GoTo("off")}},
		},
	}
}

// Linear builds a machine where each state has a "next" action leading to
// the following state. The last state has no actions.
func Linear(r *Requester, states ...string) *statemachine.Definition {
	def := &statemachine.Definition{States: make(map[string]statemachine.StateTable, len(states))}

	for i, name := range states {
		table := statemachine.StateTable{Actions: map[string]statemachine.Action{}}
		if i+1 < len(states) {
			table.Actions["next"] = r.GoTo(states[i+1])
		}

		def.States[name] = table
	}

	return def
}
