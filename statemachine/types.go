package statemachine

import "context"

// Unset is the value of CurrentState before the engine has been started.
const Unset = ""

// Callback signals completion of an asynchronous step. A nil error means
// success; a non-nil error short-circuits whatever sequence is pending.
type Callback func(err error)

// InitHook runs once on Start, before the initial transition. It must call
// done exactly once.
type InitHook func(ctx context.Context, state string, data any, done Callback)

// Hook is an enter or exit lifecycle handler. Whether it is synchronous or
// asynchronous is fixed when it is constructed with Sync or Async.
type Hook struct {
	sync  func(ctx context.Context) error
	async func(ctx context.Context, done Callback)
}

// Sync wraps a synchronous hook. Its completion is synthesized as soon as fn
// returns.
func Sync(fn func(ctx context.Context) error) *Hook {
	return &Hook{sync: fn}
}

// Async wraps an asynchronous hook. The engine waits for done before it
// proceeds.
func Async(fn func(ctx context.Context, done Callback)) *Hook {
	return &Hook{async: fn}
}

// IsAsync reports whether the hook completes through a callback.
func (h *Hook) IsAsync() bool {
	return h != nil && h.async != nil
}

// IsZero reports whether the hook has no handler. A nil hook is zero.
func (h *Hook) IsZero() bool {
	return !h.valid()
}

func (h *Hook) valid() bool {
	return h != nil && (h.sync != nil || h.async != nil)
}

// run invokes the hook and forwards its outcome to done. A nil hook completes
// immediately.
func (h *Hook) run(ctx context.Context, done Callback) {
	switch {
	case h == nil:
		done(nil)
	case h.async != nil:
		h.async(ctx, done)
	case h.sync != nil:
		done(h.sync(ctx))
	default:
		done(nil)
	}
}

// Action is a named handler in a state's table.
type Action struct {
	sync  func(ctx context.Context, params any) error
	async func(ctx context.Context, params any, done Callback)
}

// SyncAction wraps a synchronous action. The caller's completion receives the
// returned error right after fn returns.
func SyncAction(fn func(ctx context.Context, params any) error) Action {
	return Action{sync: fn}
}

// AsyncAction wraps an asynchronous action. fn is responsible for calling
// done, typically by passing it to Transition.
func AsyncAction(fn func(ctx context.Context, params any, done Callback)) Action {
	return Action{async: fn}
}

// IsZero reports whether the action has no handler and therefore is not callable.
func (a Action) IsZero() bool {
	return a.sync == nil && a.async == nil
}

// IsAsync reports whether the action completes through a callback.
func (a Action) IsAsync() bool {
	return a.async != nil
}

// Run invokes the action outside an engine and forwards its outcome to done.
// A zero action completes with ErrActionHandlerRequired.
func (a Action) Run(ctx context.Context, params any, done Callback) {
	if a.IsZero() {
		done(ErrActionHandlerRequired)

		return
	}

	a.run(ctx, params, done)
}

func (a Action) run(ctx context.Context, params any, done Callback) {
	if a.async != nil {
		a.async(ctx, params, done)

		return
	}

	done(a.sync(ctx, params))
}

// StateTable holds the actions and lifecycle hooks of one state.
type StateTable struct {
	Actions map[string]Action
	OnEnter *Hook
	OnExit  *Hook
}

// Definition maps state names to their tables. Init is optional.
type Definition struct {
	Init   InitHook
	States map[string]StateTable
}

// HasState reports whether name is a state of the definition.
func (d *Definition) HasState(name string) bool {
	if d == nil || name == Unset {
		return false
	}

	_, ok := d.States[name]

	return ok
}

// action looks up a callable action of state.
func (d *Definition) action(state, name string) (Action, bool) {
	if !d.HasState(state) {
		return Action{}, false
	}

	act, ok := d.States[state].Actions[name]
	if !ok || act.IsZero() {
		return Action{}, false
	}

	return act, true
}

// Snapshot is the externalized form of an engine produced by Save and
// accepted by Restore.
type Snapshot struct {
	State string `json:"state" yaml:"state"`
	Data  any    `json:"data"  yaml:"data"`
}
