package statemachine

import (
	"errors"
	"fmt"
)

// Builder errors.
var (
	// ErrStateNameRequired indicates that a state name is required.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrDuplicateStateName indicates that a state was declared twice.
	ErrDuplicateStateName = errors.New("duplicate state name")
	// ErrActionNameRequired indicates that an action name is required.
	ErrActionNameRequired = errors.New("action name is required")
	// ErrDuplicateActionName indicates that an action was declared twice in one state.
	ErrDuplicateActionName = errors.New("duplicate action name")
	// ErrActionHandlerRequired indicates an action without a handler.
	ErrActionHandlerRequired = errors.New("action handler is required")
	// ErrHookHandlerRequired indicates a hook without a handler.
	ErrHookHandlerRequired = errors.New("hook handler is required")
)

// Builder provides a fluent API for constructing definitions.
type Builder struct {
	def  *Definition
	errs []error
}

// NewBuilder creates a new definition builder.
func NewBuilder() *Builder {
	return &Builder{
		def: &Definition{
			States: make(map[string]StateTable),
		},
	}
}

// Init sets the root init hook.
func (b *Builder) Init(hook InitHook) *Builder {
	b.def.Init = hook

	return b
}

// State starts declaring a state. Call Done on the result to get back to the
// builder.
func (b *Builder) State(name string) *StateBuilder {
	switch {
	case name == Unset:
		b.errs = append(b.errs, ErrStateNameRequired)
	case b.def.HasState(name):
		b.errs = append(b.errs, fmt.Errorf("%w: %s", ErrDuplicateStateName, name))
	}

	return &StateBuilder{
		parent: b,
		name:   name,
		table: StateTable{
			Actions: make(map[string]Action),
		},
	}
}

// Build returns the definition, or every problem found while building it.
func (b *Builder) Build() (*Definition, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, errors.Join(b.errs...))
	}

	if len(b.def.States) == 0 {
		return nil, fmt.Errorf("%w: at least one state is required", ErrInvalidDefinition)
	}

	return b.def, nil
}

// StateBuilder declares the table of a single state.
type StateBuilder struct {
	parent *Builder
	name   string
	table  StateTable
}

// OnEnter sets the enter hook.
func (s *StateBuilder) OnEnter(hook *Hook) *StateBuilder {
	if !hook.valid() {
		s.fail(fmt.Errorf("state %s, enter: %w", s.name, ErrHookHandlerRequired))
	}

	s.table.OnEnter = hook

	return s
}

// OnExit sets the exit hook.
func (s *StateBuilder) OnExit(hook *Hook) *StateBuilder {
	if !hook.valid() {
		s.fail(fmt.Errorf("state %s, exit: %w", s.name, ErrHookHandlerRequired))
	}

	s.table.OnExit = hook

	return s
}

// Action adds a named action.
func (s *StateBuilder) Action(name string, action Action) *StateBuilder {
	switch {
	case name == "":
		s.fail(fmt.Errorf("state %s: %w", s.name, ErrActionNameRequired))
	case action.IsZero():
		s.fail(fmt.Errorf("state %s, action %s: %w", s.name, name, ErrActionHandlerRequired))
	default:
		if _, dup := s.table.Actions[name]; dup {
			s.fail(fmt.Errorf("state %s: %w: %s", s.name, ErrDuplicateActionName, name))
		}
	}

	s.table.Actions[name] = action

	return s
}

// Done finishes the state and returns the parent builder.
func (s *StateBuilder) Done() *Builder {
	if s.name != Unset {
		if _, exists := s.parent.def.States[s.name]; !exists {
			s.parent.def.States[s.name] = s.table
		}
	}

	return s.parent
}

func (s *StateBuilder) fail(err error) {
	s.parent.errs = append(s.parent.errs, err)
}
