package statemachine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrManifestNameRequired indicates that a manifest name is required.
var ErrManifestNameRequired = errors.New("manifest name is required")

// Manifest is the declarative, YAML friendly description of a definition.
// Handlers are referenced by name and resolved against a Registry by Bind.
type Manifest struct {
	Name         string          `json:"name"                   yaml:"name"`
	InitialState string          `json:"initialState,omitempty" yaml:"initialState,omitempty"`
	Init         string          `json:"init,omitempty"         yaml:"init,omitempty"`
	States       []StateManifest `json:"states"                 yaml:"states"`
}

// StateManifest describes one state.
type StateManifest struct {
	Name     string           `json:"name"               yaml:"name"`
	OnEnter  string           `json:"onEnter,omitempty"  yaml:"onEnter,omitempty"`
	OnExit   string           `json:"onExit,omitempty"   yaml:"onExit,omitempty"`
	Actions  []ActionManifest `json:"actions,omitempty"  yaml:"actions,omitempty"`
	Metadata map[string]any   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ActionManifest describes one action. Handler defaults to Name.
type ActionManifest struct {
	Name    string `json:"name"              yaml:"name"`
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty"`
}

// HandlerName returns the registry key of the action's handler.
func (a ActionManifest) HandlerName() string {
	if a.Handler != "" {
		return a.Handler
	}

	return a.Name
}

// LoadManifest reads a YAML manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %q: %w", path, err)
	}

	return LoadManifestFromBytes(data)
}

// LoadManifestFromFS reads a YAML manifest from an embedded filesystem.
func LoadManifestFromFS(fsys fs.FS, path string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest from FS: %w", err)
	}

	return LoadManifestFromBytes(data)
}

// LoadManifestFromBytes parses and validates a YAML manifest.
func LoadManifestFromBytes(data []byte) (*Manifest, error) {
	var manifest Manifest

	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	return &manifest, nil
}

// Validate checks the structure of the manifest. It does not resolve handlers.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrManifestNameRequired
	}

	if len(m.States) == 0 {
		return fmt.Errorf("%w: at least one state is required", ErrInvalidDefinition)
	}

	seen := make(map[string]bool, len(m.States))

	for i, state := range m.States {
		if state.Name == "" {
			return fmt.Errorf("state %d: %w", i, ErrStateNameRequired)
		}

		if seen[state.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateStateName, state.Name)
		}

		seen[state.Name] = true

		actions := make(map[string]bool, len(state.Actions))

		for j, action := range state.Actions {
			if action.Name == "" {
				return fmt.Errorf("state %s, action %d: %w", state.Name, j, ErrActionNameRequired)
			}

			if actions[action.Name] {
				return fmt.Errorf("state %s: %w: %s", state.Name, ErrDuplicateActionName, action.Name)
			}

			actions[action.Name] = true
		}
	}

	if m.InitialState != "" && !seen[m.InitialState] {
		return fmt.Errorf("initial state: %w: %s", ErrUnknownState, m.InitialState)
	}

	return nil
}

// StateNames returns the declared state names in manifest order.
func (m *Manifest) StateNames() []string {
	names := make([]string, 0, len(m.States))
	for _, state := range m.States {
		names = append(names, state.Name)
	}

	return names
}
