// Package validator reports structural problems in state machine definitions
// and manifests before they are attached to an engine.
package validator

import (
	"fmt"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/amp-fsm/statemachine"
)

// ValidationResult contains the results of validating a definition.
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// ValidationError is a problem that prevents the definition from working.
type ValidationError struct {
	Code     string
	Message  string
	Location Location
	Hint     string
}

// ValidationWarning is a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
}

// Location identifies where an issue occurred.
type Location struct {
	File   string
	State  string
	Action string
}

// Model is the shape shared by definitions and manifests that rules inspect.
type Model struct {
	Name         string
	InitialState string
	States       []StateInfo
	// Resolved is true for definitions, whose handlers can be inspected.
	Resolved bool
}

// StateInfo describes one state of a Model.
type StateInfo struct {
	Name      string
	Actions   []ActionInfo
	HasEnter  bool
	HasExit   bool
	ZeroEnter bool
	ZeroExit  bool
}

// ActionInfo describes one action of a state.
type ActionInfo struct {
	Name     string
	Callable bool
}

// FromDefinition converts a definition into a Model. States and actions are
// ordered naturally so reports are stable.
func FromDefinition(def *statemachine.Definition) *Model {
	model := &Model{Resolved: true}
	if def == nil {
		return model
	}

	names := make([]string, 0, len(def.States))
	for name := range def.States {
		names = append(names, name)
	}

	natsort.Sort(names)

	for _, name := range names {
		table := def.States[name]

		info := StateInfo{
			Name:      name,
			HasEnter:  table.OnEnter != nil,
			HasExit:   table.OnExit != nil,
			ZeroEnter: table.OnEnter != nil && table.OnEnter.IsZero(),
			ZeroExit:  table.OnExit != nil && table.OnExit.IsZero(),
		}

		actions := make([]string, 0, len(table.Actions))
		for action := range table.Actions {
			actions = append(actions, action)
		}

		natsort.Sort(actions)

		for _, action := range actions {
			info.Actions = append(info.Actions, ActionInfo{
				Name:     action,
				Callable: !table.Actions[action].IsZero(),
			})
		}

		model.States = append(model.States, info)
	}

	return model
}

// FromManifest converts a manifest into a Model, keeping manifest order.
// Handlers are not resolved, so every declared handler counts as present.
func FromManifest(m *statemachine.Manifest) *Model {
	model := &Model{}
	if m == nil {
		return model
	}

	model.Name = m.Name
	model.InitialState = m.InitialState

	for _, state := range m.States {
		info := StateInfo{
			Name:     state.Name,
			HasEnter: state.OnEnter != "",
			HasExit:  state.OnExit != "",
		}

		for _, action := range state.Actions {
			info.Actions = append(info.Actions, ActionInfo{Name: action.Name, Callable: true})
		}

		model.States = append(model.States, info)
	}

	return model
}

// Validate checks a definition with the default rules.
func Validate(def *statemachine.Definition) ValidationResult {
	return ValidateWithRules(FromDefinition(def), DefaultRules())
}

// ValidateManifest checks a manifest with the default rules.
func ValidateManifest(m *statemachine.Manifest) ValidationResult {
	return ValidateWithRules(FromManifest(m), DefaultRules())
}

// ValidateFile loads a manifest from path and validates it. The returned
// error is only set when the file cannot be read or parsed.
func ValidateFile(path string, strict bool) (ValidationResult, error) {
	manifest, err := statemachine.LoadManifest(path)
	if err != nil {
		return ValidationResult{
			Errors: []ValidationError{{
				Code:     "MANIFEST_LOAD_FAILED",
				Message:  fmt.Sprintf("Failed to load manifest: %v", err),
				Location: Location{File: path},
			}},
		}, err
	}

	result := ValidateWithRules(FromManifest(manifest), DefaultRules())
	if strict {
		result = Strict(result)
	}

	for i := range result.Errors {
		result.Errors[i].Location.File = path
	}

	for i := range result.Warnings {
		result.Warnings[i].Location.File = path
	}

	return result, nil
}

// ValidateWithRules runs rules against model.
func ValidateWithRules(model *Model, rules []Rule) ValidationResult {
	var result ValidationResult

	for _, rule := range rules {
		ruleResult := rule.Check(model)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	result.Valid = len(result.Errors) == 0

	return result
}

// Strict promotes every warning of result to an error.
func Strict(result ValidationResult) ValidationResult {
	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError{
			Code:     warning.Code,
			Message:  warning.Message,
			Location: warning.Location,
		})
	}

	result.Warnings = nil
	result.Valid = len(result.Errors) == 0

	return result
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Codes returns the codes of every error followed by every warning.
func (r ValidationResult) Codes() []string {
	codes := make([]string, 0, len(r.Errors)+len(r.Warnings))

	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}

	for _, w := range r.Warnings {
		codes = append(codes, w.Code)
	}

	return codes
}

// String returns a human-readable summary.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("definition is valid\n")
	} else {
		fmt.Fprintf(&sb, "definition has %d error(s)\n", len(r.Errors))
	}

	for _, err := range r.Errors {
		fmt.Fprintf(&sb, "  [%s] %s", err.Code, err.Message)

		if err.Location.State != "" {
			fmt.Fprintf(&sb, " (state: %s)", err.Location.State)
		}

		sb.WriteString("\n")

		if err.Hint != "" {
			fmt.Fprintf(&sb, "    hint: %s\n", err.Hint)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "%d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(&sb, "  [%s] %s\n", warn.Code, warn.Message)
		}
	}

	return sb.String()
}
