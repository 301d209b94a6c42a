package statemachine

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error so callers can branch on it without
// parsing messages.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNoDefinition means an operation needed a definition before one was attached.
	KindNoDefinition
	// KindUnknownState means a transition targeted a state that is not defined.
	KindUnknownState
	// KindUnknownAction means an action is absent from the current state's table.
	KindUnknownAction
	// KindNoActiveState means Save was called before any successful transition.
	KindNoActiveState
	// KindAlreadyStarted means Start or Restore was called on an active engine.
	KindAlreadyStarted
	// KindInvalidSnapshot means a snapshot's state is missing or unknown.
	KindInvalidSnapshot
	// KindHook means a user supplied hook reported an error through its callback.
	KindHook
	// KindDefinitionAttached means Attach was called more than once.
	KindDefinitionAttached
	// KindInvalidDefinition means the definition cannot be attached at all.
	KindInvalidDefinition
)

func (k Kind) String() string {
	switch k {
	case KindNoDefinition:
		return "no_definition"
	case KindUnknownState:
		return "unknown_state"
	case KindUnknownAction:
		return "unknown_action"
	case KindNoActiveState:
		return "no_active_state"
	case KindAlreadyStarted:
		return "already_started"
	case KindInvalidSnapshot:
		return "invalid_snapshot"
	case KindHook:
		return "hook"
	case KindDefinitionAttached:
		return "definition_attached"
	case KindInvalidDefinition:
		return "invalid_definition"
	case KindUnknown:
		fallthrough
	default:
		return "unknown"
	}
}

// Predefined error types.
var (
	// ErrNoDefinition indicates no definition has been attached yet.
	ErrNoDefinition = errors.New("no fsm definition found")
	// ErrUnknownState indicates the target state is not part of the definition.
	ErrUnknownState = errors.New("state not found")
	// ErrUnknownAction indicates the action is not defined for the current state.
	ErrUnknownAction = errors.New("function not found for state")
	// ErrNoActiveState indicates the engine does not have a state yet.
	ErrNoActiveState = errors.New("fsm does not have a state yet")
	// ErrAlreadyStarted indicates the engine already has an active state.
	ErrAlreadyStarted = errors.New("fsm already has a state")
	// ErrInvalidSnapshot indicates the snapshot cannot be restored.
	ErrInvalidSnapshot = errors.New("invalid snapshot state")
	// ErrHook indicates a lifecycle hook failed.
	ErrHook = errors.New("hook failed")
	// ErrDefinitionAttached indicates a definition was already attached.
	ErrDefinitionAttached = errors.New("fsm definition already attached")
	// ErrInvalidDefinition indicates the definition is nil or has no states.
	ErrInvalidDefinition = errors.New("invalid fsm definition")
)

var kindSentinels = map[Kind]error{
	KindNoDefinition:       ErrNoDefinition,
	KindUnknownState:       ErrUnknownState,
	KindUnknownAction:      ErrUnknownAction,
	KindNoActiveState:      ErrNoActiveState,
	KindAlreadyStarted:     ErrAlreadyStarted,
	KindInvalidSnapshot:    ErrInvalidSnapshot,
	KindHook:               ErrHook,
	KindDefinitionAttached: ErrDefinitionAttached,
	KindInvalidDefinition:  ErrInvalidDefinition,
}

// Error is returned synchronously for misuse of the engine. It wraps the
// sentinel for its Kind, so errors.Is(err, ErrUnknownState) works.
type Error struct {
	Kind   Kind
	State  string
	Action string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Err.Error()

	switch {
	case e.Action != "":
		return fmt.Sprintf("fsm error: %s: '%s' for state '%s'", msg, e.Action, e.State)
	case e.State != "":
		return fmt.Sprintf("fsm error: %s: '%s'", msg, e.State)
	default:
		return "fsm error: " + msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, state, action string) error {
	return &Error{
		Kind:   kind,
		State:  state,
		Action: action,
		Err:    kindSentinels[kind],
	}
}

// HookName identifies a lifecycle hook.
type HookName string

const (
	HookInit  HookName = "init"
	HookEnter HookName = "enter"
	HookExit  HookName = "exit"
)

// HookError wraps an error reported by a user supplied hook. It is only ever
// delivered through a completion callback, never returned synchronously.
type HookError struct {
	State string
	Hook  HookName
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook of state %s: %v", e.Hook, e.State, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// Is reports ErrHook as a match in addition to the wrapped error.
func (e *HookError) Is(target error) bool {
	return target == ErrHook //nolint:errorlint,err113
}

// WrapHookError wraps err with hook context. Returns nil if err is nil.
func WrapHookError(state string, hook HookName, err error) error {
	if err == nil {
		return nil
	}

	var hookErr *HookError
	if errors.As(err, &hookErr) {
		return err
	}

	return &HookError{
		State: state,
		Hook:  hook,
		Err:   err,
	}
}

// KindOf returns the Kind of an engine error, or KindUnknown when err did not
// originate from the engine.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}

	var hookErr *HookError
	if errors.As(err, &hookErr) {
		return KindHook
	}

	return KindUnknown
}
