package statemachine

import (
	"errors"
	"fmt"
)

// ErrUnknownHandler indicates that a manifest references a handler that was
// never registered.
var ErrUnknownHandler = errors.New("unknown handler")

// Registry maps handler names used in manifests to Go handlers.
// Applications register their handlers once and bind any number of
// manifests against them.
type Registry struct {
	actions map[string]Action
	hooks   map[string]*Hook
	inits   map[string]InitHook
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Action),
		hooks:   make(map[string]*Hook),
		inits:   make(map[string]InitHook),
	}
}

// RegisterAction registers an action handler.
func (r *Registry) RegisterAction(name string, action Action) *Registry {
	r.actions[name] = action

	return r
}

// RegisterHook registers an enter or exit hook.
func (r *Registry) RegisterHook(name string, hook *Hook) *Registry {
	r.hooks[name] = hook

	return r
}

// RegisterInit registers an init hook.
func (r *Registry) RegisterInit(name string, hook InitHook) *Registry {
	r.inits[name] = hook

	return r
}

func (r *Registry) hook(name string) (*Hook, error) {
	if name == "" {
		return nil, nil //nolint:nilnil // absent hook
	}

	hook, ok := r.hooks[name]
	if !ok {
		return nil, fmt.Errorf("%w: hook %q", ErrUnknownHandler, name)
	}

	return hook, nil
}

// Bind resolves every handler referenced by the manifest and builds a
// definition from it.
func Bind(manifest *Manifest, registry *Registry) (*Definition, error) {
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	builder := NewBuilder()

	if manifest.Init != "" {
		init, ok := registry.inits[manifest.Init]
		if !ok {
			return nil, fmt.Errorf("%w: init %q", ErrUnknownHandler, manifest.Init)
		}

		builder.Init(init)
	}

	for _, state := range manifest.States {
		sb := builder.State(state.Name)

		enter, err := registry.hook(state.OnEnter)
		if err != nil {
			return nil, fmt.Errorf("state %s: %w", state.Name, err)
		}

		if enter != nil {
			sb.OnEnter(enter)
		}

		exit, err := registry.hook(state.OnExit)
		if err != nil {
			return nil, fmt.Errorf("state %s: %w", state.Name, err)
		}

		if exit != nil {
			sb.OnExit(exit)
		}

		for _, action := range state.Actions {
			handler, ok := registry.actions[action.HandlerName()]
			if !ok {
				return nil, fmt.Errorf("state %s, action %s: %w: %q",
					state.Name, action.Name, ErrUnknownHandler, action.HandlerName())
			}

			sb.Action(action.Name, handler)
		}

		sb.Done()
	}

	return builder.Build()
}
