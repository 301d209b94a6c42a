package fsmtest

import (
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/statemachine"
)

// Matcher errors.
var (
	ErrNoTrace            = errors.New("no events recorded")
	ErrStateNotEntered    = errors.New("state was not entered")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrHookNotRun         = errors.New("hook was not run")
	ErrWrongFinalState    = errors.New("unexpected final state")
	ErrNoMatchersPassed   = errors.New("no matchers passed")
)

// Matcher is a predicate over a recorded trace.
type Matcher interface {
	Match(engine *TestEngine) (bool, error)
	Description() string
}

type matcherFunc struct {
	description string
	match       func(trace []statemachine.Event) error
}

func (m matcherFunc) Match(engine *TestEngine) (bool, error) {
	if err := m.match(engine.Trace()); err != nil {
		return false, err
	}

	return true, nil
}

func (m matcherFunc) Description() string {
	return m.description
}

// StateWasEntered matches when a swap into state was recorded.
func StateWasEntered(state string) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("state '%s' should be entered", state),
		match: func(trace []statemachine.Event) error {
			for _, e := range trace {
				if e.Kind == statemachine.EventSwap && e.To == state {
					return nil
				}
			}

			return fmt.Errorf("%w: '%s'", ErrStateNotEntered, state)
		},
	}
}

// TransitionWasTaken matches when a swap from one state to another was
// recorded. Use statemachine.Unset as from for the initial transition.
func TransitionWasTaken(from, to string) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("transition from '%s' to '%s' should be taken", from, to),
		match: func(trace []statemachine.Event) error {
			for _, e := range trace {
				if e.Kind == statemachine.EventSwap && e.From == from && e.To == to {
					return nil
				}
			}

			return fmt.Errorf("%w: from '%s' to '%s'", ErrTransitionNotTaken, from, to)
		},
	}
}

// HookWasRun matches when hook of state completed, successfully or not.
func HookWasRun(state string, hook statemachine.HookName) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("%s hook of '%s' should run", hook, state),
		match: func(trace []statemachine.Event) error {
			for _, e := range trace {
				if e.Kind == statemachine.EventHook && e.State == state && e.Hook == hook {
					return nil
				}
			}

			return fmt.Errorf("%w: %s of '%s'", ErrHookNotRun, hook, state)
		},
	}
}

// EndedIn matches when the last recorded swap went into state.
func EndedIn(state string) Matcher {
	return matcherFunc{
		description: fmt.Sprintf("final state should be '%s'", state),
		match: func(trace []statemachine.Event) error {
			for i := len(trace) - 1; i >= 0; i-- {
				if trace[i].Kind != statemachine.EventSwap {
					continue
				}

				if trace[i].To == state {
					return nil
				}

				return fmt.Errorf("%w: expected '%s', got '%s'", ErrWrongFinalState, state, trace[i].To)
			}

			return ErrNoTrace
		},
	}
}

// Not inverts a matcher.
func Not(m Matcher) Matcher {
	return matcherFunc{
		description: "NOT " + m.Description(),
		match: func(trace []statemachine.Event) error {
			probe := &TestEngine{trace: trace}
			if ok, _ := m.Match(probe); ok {
				return fmt.Errorf("matcher unexpectedly passed: %s", m.Description()) //nolint:err113
			}

			return nil
		},
	}
}

// AnyOf matches when at least one matcher matches.
func AnyOf(matchers ...Matcher) Matcher {
	return matcherFunc{
		description: "any of the matchers should pass",
		match: func(trace []statemachine.Event) error {
			probe := &TestEngine{trace: trace}

			for _, m := range matchers {
				if ok, _ := m.Match(probe); ok {
					return nil
				}
			}

			return ErrNoMatchersPassed
		},
	}
}
