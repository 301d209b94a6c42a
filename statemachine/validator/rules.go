//nolint:lll // Long validation messages
package validator

import (
	"fmt"
	"unicode"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule checks a model for one kind of issue.
type Rule interface {
	Name() string
	Severity() Severity
	Check(model *Model) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&noStatesRule{},
		&stateNameRule{},
		&actionNameRule{},
		&handlerRule{},
		&initialStateRule{},
		&deadEndRule{},
		&namingConventionRule{},
	}
}

// noStatesRule rejects models without any state.
type noStatesRule struct{}

func (r *noStatesRule) Name() string       { return "NoStates" }
func (r *noStatesRule) Severity() Severity { return SeverityError }

func (r *noStatesRule) Check(model *Model) RuleResult {
	if len(model.States) > 0 {
		return RuleResult{}
	}

	return RuleResult{Errors: []ValidationError{{
		Code:    "NO_STATES",
		Message: "Definition declares no states",
		Hint:    "Declare at least one state",
	}}}
}

// stateNameRule rejects empty and duplicate state names.
type stateNameRule struct{}

func (r *stateNameRule) Name() string       { return "StateName" }
func (r *stateNameRule) Severity() Severity { return SeverityError }

func (r *stateNameRule) Check(model *Model) RuleResult {
	var errs []ValidationError

	seen := make(map[string]bool, len(model.States))

	for i, state := range model.States {
		if state.Name == "" {
			errs = append(errs, ValidationError{
				Code:    "EMPTY_STATE_NAME",
				Message: fmt.Sprintf("State #%d has an empty name, which is reserved for 'no state'", i),
			})

			continue
		}

		if seen[state.Name] {
			errs = append(errs, ValidationError{
				Code:     "DUPLICATE_STATE_NAME",
				Message:  fmt.Sprintf("State '%s' is declared more than once", state.Name),
				Location: Location{State: state.Name},
			})
		}

		seen[state.Name] = true
	}

	return RuleResult{Errors: errs}
}

// actionNameRule rejects empty and duplicate action names within a state.
type actionNameRule struct{}

func (r *actionNameRule) Name() string       { return "ActionName" }
func (r *actionNameRule) Severity() Severity { return SeverityError }

func (r *actionNameRule) Check(model *Model) RuleResult {
	var errs []ValidationError

	for _, state := range model.States {
		seen := make(map[string]bool, len(state.Actions))

		for _, action := range state.Actions {
			if action.Name == "" {
				errs = append(errs, ValidationError{
					Code:     "EMPTY_ACTION_NAME",
					Message:  fmt.Sprintf("State '%s' has an action with an empty name", state.Name),
					Location: Location{State: state.Name},
				})

				continue
			}

			if seen[action.Name] {
				errs = append(errs, ValidationError{
					Code:     "DUPLICATE_ACTION_NAME",
					Message:  fmt.Sprintf("Action '%s' is declared more than once in state '%s'", action.Name, state.Name),
					Location: Location{State: state.Name, Action: action.Name},
				})
			}

			seen[action.Name] = true
		}
	}

	return RuleResult{Errors: errs}
}

// handlerRule rejects actions and hooks that were declared without a handler.
// Such actions are never callable and such hooks silently do nothing.
type handlerRule struct{}

func (r *handlerRule) Name() string       { return "Handler" }
func (r *handlerRule) Severity() Severity { return SeverityError }

func (r *handlerRule) Check(model *Model) RuleResult {
	var errs []ValidationError

	for _, state := range model.States {
		for _, action := range state.Actions {
			if action.Callable {
				continue
			}

			errs = append(errs, ValidationError{
				Code:     "NIL_ACTION",
				Message:  fmt.Sprintf("Action '%s' of state '%s' has no handler and can never be invoked", action.Name, state.Name),
				Location: Location{State: state.Name, Action: action.Name},
				Hint:     "Wrap the handler with statemachine.SyncAction or statemachine.AsyncAction",
			})
		}

		hooks := []struct {
			name string
			zero bool
		}{{"enter", state.ZeroEnter}, {"exit", state.ZeroExit}}

		for _, hook := range hooks {
			if !hook.zero {
				continue
			}

			errs = append(errs, ValidationError{
				Code:     "NIL_HOOK",
				Message:  fmt.Sprintf("The %s hook of state '%s' has no handler", hook.name, state.Name),
				Location: Location{State: state.Name},
				Hint:     "Use statemachine.Sync or statemachine.Async, or leave the hook nil",
			})
		}
	}

	return RuleResult{Errors: errs}
}

// initialStateRule checks a declared initial state exists.
type initialStateRule struct{}

func (r *initialStateRule) Name() string       { return "InitialState" }
func (r *initialStateRule) Severity() Severity { return SeverityError }

func (r *initialStateRule) Check(model *Model) RuleResult {
	if model.InitialState == "" {
		return RuleResult{}
	}

	for _, state := range model.States {
		if state.Name == model.InitialState {
			return RuleResult{}
		}
	}

	return RuleResult{Errors: []ValidationError{{
		Code:     "UNKNOWN_INITIAL_STATE",
		Message:  fmt.Sprintf("Initial state '%s' is not declared", model.InitialState),
		Location: Location{State: model.InitialState},
	}}}
}

// deadEndRule warns about states without actions. Once entered, such a state
// can only be left by a hook or by code outside the machine.
type deadEndRule struct{}

func (r *deadEndRule) Name() string       { return "DeadEnd" }
func (r *deadEndRule) Severity() Severity { return SeverityWarning }

func (r *deadEndRule) Check(model *Model) RuleResult {
	var warnings []ValidationWarning

	for _, state := range model.States {
		if state.Name == "" || len(state.Actions) > 0 || state.HasEnter {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code:     "DEAD_END_STATE",
			Message:  fmt.Sprintf("State '%s' has no actions and no enter hook; it can only be left from outside the machine", state.Name),
			Location: Location{State: state.Name},
		})
	}

	return RuleResult{Warnings: warnings}
}

// namingConventionRule warns about names that are not identifiers.
type namingConventionRule struct{}

func (r *namingConventionRule) Name() string       { return "NamingConvention" }
func (r *namingConventionRule) Severity() Severity { return SeverityWarning }

func (r *namingConventionRule) Check(model *Model) RuleResult {
	var warnings []ValidationWarning

	for _, state := range model.States {
		if state.Name != "" && !isIdentifier(state.Name) {
			warnings = append(warnings, ValidationWarning{
				Code:     "NAMING_CONVENTION",
				Message:  fmt.Sprintf("State '%s' should start with a letter and use only letters, digits and underscores", state.Name),
				Location: Location{State: state.Name},
			})
		}

		for _, action := range state.Actions {
			if action.Name != "" && !isIdentifier(action.Name) {
				warnings = append(warnings, ValidationWarning{
					Code:     "NAMING_CONVENTION",
					Message:  fmt.Sprintf("Action '%s' of state '%s' should start with a letter and use only letters, digits and underscores", action.Name, state.Name),
					Location: Location{State: state.Name, Action: action.Name},
				})
			}
		}
	}

	return RuleResult{Warnings: warnings}
}

func isIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '_'):
		default:
			return false
		}
	}

	return s != ""
}
