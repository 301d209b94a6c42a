//nolint:err113 // Test file uses errors.New() for creating test errors
package statemachine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// result captures the outcome of a completion callback.
type result struct {
	ch chan error
}

func newResult() *result {
	return &result{ch: make(chan error, 1)}
}

func (r *result) done(err error) {
	r.ch <- err
}

func (r *result) wait(t *testing.T) error {
	t.Helper()

	select {
	case err := <-r.ch:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("completion callback was not called")

		return nil
	}
}

// recorder collects ordered hook calls across goroutines.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, call)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.calls))
	copy(out, r.calls)

	return out
}

func (r *recorder) hook(name string) *Hook {
	return Sync(func(context.Context) error {
		r.add(name)

		return nil
	})
}

func newTestEngine(t *testing.T, def *Definition, opts ...Option) *Engine {
	t.Helper()

	opts = append([]Option{WithName(t.Name()), WithLogger(NopLogger{})}, opts...)
	engine := NewEngine(opts...)
	require.NoError(t, engine.Attach(def))

	return engine
}

// lightSwitch is the on/off machine used by the end-to-end scenarios.
func lightSwitch(engine **Engine) *Definition {
	return &Definition{
		States: map[string]StateTable{
			"off": {
				Actions: map[string]Action{
					"turnOn": AsyncAction(func(ctx context.Context, _ any, done Callback) {
						if err := (*engine).Transition(ctx, "on", nil, done); err != nil {
							done(err)
						}
					}),
				},
			},
			"on": {
				Actions: map[string]Action{
					"turnOff": SyncAction(func(ctx context.Context, _ any) error {
						return (*engine).Transition(ctx, "off", nil, nil)
					}),
				},
			},
		},
	}
}

func TestScenario_LightSwitch(t *testing.T) {
	t.Parallel()

	var engine *Engine

	engine = newTestEngine(t, lightSwitch(&engine))
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "off", nil, nil))
	assert.Equal(t, "off", engine.CurrentState())

	res := newResult()
	require.NoError(t, engine.Invoke(ctx, "turnOn", nil, res.done))
	require.NoError(t, res.wait(t))
	assert.Equal(t, "on", engine.CurrentState())

	// "on" has no turnOn action.
	err := engine.Invoke(ctx, "turnOn", nil, nil)
	require.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, KindUnknownAction, KindOf(err))
	assert.Equal(t, "on", engine.CurrentState())

	require.NoError(t, engine.Invoke(ctx, "turnOff", nil, nil))
	assert.Equal(t, "off", engine.CurrentState())
}

func TestScenario_SaveBeforeStart(t *testing.T) {
	t.Parallel()

	var engine *Engine

	engine = newTestEngine(t, lightSwitch(&engine))

	_, err := engine.Save()
	require.ErrorIs(t, err, ErrNoActiveState)
	assert.Equal(t, KindNoActiveState, KindOf(err))
}

func TestTransition_SetsStateAndData(t *testing.T) {
	t.Parallel()

	var engine *Engine

	engine = newTestEngine(t, lightSwitch(&engine))
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "off", map[string]int{"n": 1}, nil))
	assert.Equal(t, map[string]int{"n": 1}, engine.Data())

	payload := []string{"a", "b"}

	res := newResult()
	require.NoError(t, engine.Transition(ctx, "on", payload, res.done))
	require.NoError(t, res.wait(t))

	assert.Equal(t, "on", engine.CurrentState())
	assert.Equal(t, payload, engine.Data())
}

func TestTransition_UnknownStateLeavesEngineUnchanged(t *testing.T) {
	t.Parallel()

	var engine *Engine

	engine = newTestEngine(t, lightSwitch(&engine))
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "off", "data", nil))

	called := false
	err := engine.Transition(ctx, "dimmed", "other", func(error) { called = true })

	require.ErrorIs(t, err, ErrUnknownState)
	assert.False(t, called)
	assert.Equal(t, "off", engine.CurrentState())
	assert.Equal(t, "data", engine.Data())

	var engineErr *Error
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "dimmed", engineErr.State)
}

func TestTransition_ExitBeforeEnter(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	def := &Definition{
		States: map[string]StateTable{
			"A": {OnEnter: rec.hook("enter A"), OnExit: rec.hook("exit A")},
			"B": {OnEnter: rec.hook("enter B"), OnExit: rec.hook("exit B")},
		},
	}

	engine := newTestEngine(t, def)
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "A", nil, nil))
	require.NoError(t, engine.Transition(ctx, "B", nil, nil))

	assert.Equal(t, []string{"enter A", "exit A", "enter B"}, rec.get())
}

func TestTransition_AsyncHooksKeepOrder(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	later := func(name string) *Hook {
		return Async(func(_ context.Context, done Callback) {
			go func() {
				time.Sleep(5 * time.Millisecond)
				rec.add(name)
				done(nil)
			}()
		})
	}

	def := &Definition{
		States: map[string]StateTable{
			"A": {OnExit: later("exit A")},
			"B": {OnEnter: later("enter B")},
		},
	}

	engine := newTestEngine(t, def)
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "A", nil, nil))

	var stateDuringExit string

	engine.Observe(func(event Event) {
		if event.Kind == EventHook && event.Hook == HookExit {
			stateDuringExit = engine.CurrentState()
		}
	})

	res := newResult()
	require.NoError(t, engine.Transition(ctx, "B", 42, res.done))
	require.NoError(t, res.wait(t))

	assert.Equal(t, []string{"exit A", "enter B"}, rec.get())
	assert.Equal(t, "A", stateDuringExit)
	assert.Equal(t, "B", engine.CurrentState())
	assert.Equal(t, 42, engine.Data())
}

func TestTransition_FailingExitHookAborts(t *testing.T) {
	t.Parallel()

	boom := errors.New("cannot leave")
	entered := false

	def := &Definition{
		States: map[string]StateTable{
			"A": {OnExit: Async(func(_ context.Context, done Callback) { done(boom) })},
			"B": {OnEnter: Sync(func(context.Context) error {
				entered = true

				return nil
			})},
		},
	}

	engine := newTestEngine(t, def)
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "A", "keep", nil))

	res := newResult()
	require.NoError(t, engine.Transition(ctx, "B", "replace", res.done))

	err := res.wait(t)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, ErrHook)
	assert.Equal(t, KindHook, KindOf(err))

	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "A", hookErr.State)
	assert.Equal(t, HookExit, hookErr.Hook)

	assert.False(t, entered)
	assert.Equal(t, "A", engine.CurrentState())
	assert.Equal(t, "keep", engine.Data())
	assert.Equal(t, int64(1), engine.Stats().FailedTransitions)
}

func TestTransition_FailingEnterHookStillSwaps(t *testing.T) {
	t.Parallel()

	boom := errors.New("enter failed")
	def := &Definition{
		States: map[string]StateTable{
			"A": {},
			"B": {OnEnter: Sync(func(context.Context) error { return boom })},
		},
	}

	engine := newTestEngine(t, def)
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "A", nil, nil))

	res := newResult()
	require.NoError(t, engine.Transition(ctx, "B", "new", res.done))

	err := res.wait(t)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "B", engine.CurrentState())
	assert.Equal(t, "new", engine.Data())
}

func TestTransition_ReentrantFromEnterHook(t *testing.T) {
	t.Parallel()

	var engine *Engine

	def := &Definition{
		States: map[string]StateTable{
			"loading": {OnEnter: Async(func(ctx context.Context, done Callback) {
				if err := engine.Transition(ctx, "ready", engine.Data(), nil); err != nil {
					done(err)

					return
				}

				done(nil)
			})},
			"ready": {},
		},
	}

	engine = newTestEngine(t, def)

	res := newResult()
	require.NoError(t, engine.Start(context.Background(), "loading", "payload", res.done))
	require.NoError(t, res.wait(t))

	assert.Equal(t, "ready", engine.CurrentState())
	assert.Equal(t, "payload", engine.Data())
}

func TestTransition_SameState(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	def := &Definition{
		States: map[string]StateTable{
			"loop": {OnEnter: rec.hook("enter"), OnExit: rec.hook("exit")},
		},
	}

	engine := newTestEngine(t, def)
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "loop", 1, nil))
	require.NoError(t, engine.Transition(ctx, "loop", 2, nil))

	assert.Equal(t, []string{"enter", "exit", "enter"}, rec.get())
	assert.Equal(t, 2, engine.Data())
}

func TestInvoke_OnlyCurrentState(t *testing.T) {
	t.Parallel()

	noop := SyncAction(func(context.Context, any) error { return nil })
	def := &Definition{
		States: map[string]StateTable{
			"A": {Actions: map[string]Action{"shared": noop, "onlyA": noop}},
			"B": {Actions: map[string]Action{"shared": noop, "onlyB": noop, "broken": {}}},
		},
	}

	engine := newTestEngine(t, def)
	ctx := context.Background()

	// Nothing is active yet.
	err := engine.Invoke(ctx, "shared", nil, nil)
	require.ErrorIs(t, err, ErrUnknownAction)

	require.NoError(t, engine.Start(ctx, "A", nil, nil))

	require.NoError(t, engine.Invoke(ctx, "shared", nil, nil))
	require.NoError(t, engine.Invoke(ctx, "onlyA", nil, nil))
	require.ErrorIs(t, engine.Invoke(ctx, "onlyB", nil, nil), ErrUnknownAction)

	require.NoError(t, engine.Transition(ctx, "B", nil, nil))
	require.ErrorIs(t, engine.Invoke(ctx, "onlyA", nil, nil), ErrUnknownAction)
	require.ErrorIs(t, engine.Invoke(ctx, "broken", nil, nil), ErrUnknownAction)

	assert.Equal(t, int64(2), engine.Stats().Actions)
}

func TestInvoke_PassesParamsAndForwardsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("rejected")

	var got any

	def := &Definition{
		States: map[string]StateTable{
			"idle": {Actions: map[string]Action{
				"echo": SyncAction(func(_ context.Context, params any) error {
					got = params

					return nil
				}),
				"fail": SyncAction(func(context.Context, any) error { return boom }),
			}},
		},
	}

	engine := newTestEngine(t, def)
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "idle", nil, nil))

	res := newResult()
	require.NoError(t, engine.Invoke(ctx, "echo", "hello", res.done))
	require.NoError(t, res.wait(t))
	assert.Equal(t, "hello", got)

	res = newResult()
	require.NoError(t, engine.Invoke(ctx, "fail", nil, res.done))
	require.ErrorIs(t, res.wait(t), boom)
}

func TestStart_WithInit(t *testing.T) {
	t.Parallel()

	rec := &recorder{}

	def := &Definition{
		Init: func(_ context.Context, state string, data any, done Callback) {
			rec.add("init " + state)
			assert.Equal(t, "seed", data)
			done(nil)
		},
		States: map[string]StateTable{
			"idle": {OnEnter: rec.hook("enter idle")},
		},
	}

	engine := newTestEngine(t, def)

	res := newResult()
	require.NoError(t, engine.Start(context.Background(), "idle", "seed", res.done))
	require.NoError(t, res.wait(t))

	assert.Equal(t, []string{"init idle", "enter idle"}, rec.get())
	assert.Equal(t, PhaseActive, engine.Phase())
}

func TestStart_InitErrorPreventsTransition(t *testing.T) {
	t.Parallel()

	boom := errors.New("init failed")
	entered := false

	def := &Definition{
		Init: func(_ context.Context, _ string, _ any, done Callback) {
			go done(boom)
		},
		States: map[string]StateTable{
			"idle": {OnEnter: Sync(func(context.Context) error {
				entered = true

				return nil
			})},
		},
	}

	engine := newTestEngine(t, def)

	res := newResult()
	require.NoError(t, engine.Start(context.Background(), "idle", nil, res.done))

	err := res.wait(t)
	require.ErrorIs(t, err, boom)

	var hookErr *HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, HookInit, hookErr.Hook)

	assert.False(t, entered)
	assert.Equal(t, Unset, engine.CurrentState())
	assert.Equal(t, PhaseDefined, engine.Phase())
}

func TestStart_Misuse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	bare := NewEngine(WithLogger(nil))
	require.ErrorIs(t, bare.Start(ctx, "off", nil, nil), ErrNoDefinition)
	require.ErrorIs(t, bare.Transition(ctx, "off", nil, nil), ErrNoDefinition)
	require.ErrorIs(t, bare.Invoke(ctx, "turnOn", nil, nil), ErrNoDefinition)
	require.ErrorIs(t, bare.Restore(ctx, Snapshot{State: "off"}, nil), ErrNoDefinition)
	assert.Equal(t, PhaseUninitialized, bare.Phase())

	var engine *Engine

	engine = newTestEngine(t, lightSwitch(&engine))
	require.ErrorIs(t, engine.Start(ctx, "dimmed", nil, nil), ErrUnknownState)
	require.ErrorIs(t, engine.Start(ctx, Unset, nil, nil), ErrUnknownState)

	require.NoError(t, engine.Start(ctx, "off", nil, nil))

	err := engine.Start(ctx, "on", nil, nil)
	require.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, "off", engine.CurrentState())
}

func TestAttach(t *testing.T) {
	t.Parallel()

	engine := NewEngine(WithLogger(nil))

	require.ErrorIs(t, engine.Attach(nil), ErrInvalidDefinition)
	require.ErrorIs(t, engine.Attach(&Definition{}), ErrInvalidDefinition)
	require.ErrorIs(t, engine.Attach(&Definition{States: map[string]StateTable{"": {}}}), ErrInvalidDefinition)

	def := &Definition{States: map[string]StateTable{"only": {}}}
	require.NoError(t, engine.Attach(def))
	assert.Equal(t, PhaseDefined, engine.Phase())

	err := engine.Attach(def)
	require.ErrorIs(t, err, ErrDefinitionAttached)
	assert.Equal(t, KindDefinitionAttached, KindOf(err))
}

func TestSaveRestore_RoundTrip(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	newDef := func() *Definition {
		return &Definition{
			Init: func(_ context.Context, _ string, _ any, done Callback) {
				rec.add("init")
				done(nil)
			},
			States: map[string]StateTable{
				"draft":     {OnEnter: rec.hook("enter draft")},
				"published": {OnEnter: rec.hook("enter published")},
			},
		}
	}

	ctx := context.Background()
	data := map[string]any{"title": "hello", "rev": 3}

	source := newTestEngine(t, newDef())
	require.NoError(t, source.Start(ctx, "draft", nil, nil))
	require.NoError(t, source.Transition(ctx, "published", data, nil))

	snap, err := source.Save()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{State: "published", Data: data}, snap)

	rec = &recorder{}
	target := newTestEngine(t, newDef())

	res := newResult()
	require.NoError(t, target.Restore(ctx, snap, res.done))
	require.NoError(t, res.wait(t))

	assert.Equal(t, "published", target.CurrentState())
	assert.Equal(t, data, target.Data())
	assert.Equal(t, []string{"enter published"}, rec.get())
}

func TestRestore_RunsEnterHookOnce(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	def := &Definition{
		Init: func(_ context.Context, _ string, _ any, done Callback) {
			rec.add("init")
			done(nil)
		},
		States: map[string]StateTable{
			"paused": {OnEnter: rec.hook("enter paused")},
		},
	}

	engine := newTestEngine(t, def)
	require.NoError(t, engine.Restore(context.Background(), Snapshot{State: "paused", Data: "x"}, nil))

	assert.Equal(t, []string{"enter paused"}, rec.get())
}

func TestRestore_Misuse(t *testing.T) {
	t.Parallel()

	def := &Definition{States: map[string]StateTable{"a": {}, "b": {}}}
	ctx := context.Background()

	engine := newTestEngine(t, def)
	require.ErrorIs(t, engine.Restore(ctx, Snapshot{}, nil), ErrInvalidSnapshot)
	require.ErrorIs(t, engine.Restore(ctx, Snapshot{State: "zzz"}, nil), ErrInvalidSnapshot)

	// Data is opaque, even when it happens not to be a state name.
	require.NoError(t, engine.Restore(ctx, Snapshot{State: "a", Data: "not-a-state"}, nil))

	err := engine.Restore(ctx, Snapshot{State: "b"}, nil)
	require.ErrorIs(t, err, ErrAlreadyStarted)
	assert.Equal(t, "a", engine.CurrentState())
}

func TestEngine_IgnoresDuplicateCompletion(t *testing.T) {
	t.Parallel()

	def := &Definition{
		States: map[string]StateTable{
			"A": {},
			"B": {OnEnter: Async(func(_ context.Context, done Callback) {
				done(nil)
				done(errors.New("second call"))
			})},
		},
	}

	engine := newTestEngine(t, def)
	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "A", nil, nil))

	calls := 0
	require.NoError(t, engine.Transition(ctx, "B", nil, func(err error) {
		calls++

		assert.NoError(t, err)
	}))

	assert.Equal(t, 1, calls)
}

func TestEngine_Independent(t *testing.T) {
	t.Parallel()

	def := &Definition{States: map[string]StateTable{"a": {}, "b": {}}}
	ctx := context.Background()

	first := newTestEngine(t, def)
	second := newTestEngine(t, def)

	require.NoError(t, first.Start(ctx, "a", 1, nil))
	require.NoError(t, second.Start(ctx, "b", 2, nil))

	assert.Equal(t, "a", first.CurrentState())
	assert.Equal(t, "b", second.CurrentState())
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestEngine_HistoryAndStats(t *testing.T) {
	t.Parallel()

	def := &Definition{States: map[string]StateTable{"a": {}, "b": {}}}
	ctx := context.Background()

	engine := newTestEngine(t, def, WithHistoryLimit(2))

	require.NoError(t, engine.Start(ctx, "a", nil, nil))
	require.NoError(t, engine.Transition(ctx, "b", nil, nil))
	require.NoError(t, engine.Transition(ctx, "a", nil, nil))

	history := engine.History()
	require.Len(t, history, 2)
	assert.Equal(t, "a", history[0].From)
	assert.Equal(t, "b", history[0].To)
	assert.Equal(t, "b", history[1].From)
	assert.Equal(t, "a", history[1].To)

	// History returns a copy.
	history[0].To = "mutated"
	assert.Equal(t, "b", engine.History()[0].To)

	stats := engine.Stats()
	assert.Equal(t, int64(3), stats.Transitions)
	assert.Equal(t, int64(0), stats.FailedTransitions)

	none := newTestEngine(t, def, WithHistoryLimit(0))
	require.NoError(t, none.Start(ctx, "a", nil, nil))
	assert.Empty(t, none.History())
}

func TestEngine_ObserverSequence(t *testing.T) {
	t.Parallel()

	def := &Definition{
		Init: func(_ context.Context, _ string, _ any, done Callback) { done(nil) },
		States: map[string]StateTable{
			"a": {
				OnExit:  Sync(func(context.Context) error { return nil }),
				Actions: map[string]Action{"go": SyncAction(func(context.Context, any) error { return nil })},
			},
			"b": {OnEnter: Sync(func(context.Context) error { return nil })},
		},
	}

	var kinds []string

	engine := newTestEngine(t, def, WithObserver(func(event Event) {
		label := string(event.Kind)
		if event.Hook != "" {
			label += ":" + string(event.Hook)
		}

		kinds = append(kinds, label)

		assert.False(t, event.At.IsZero())
	}))

	ctx := context.Background()

	require.NoError(t, engine.Start(ctx, "a", nil, nil))
	require.NoError(t, engine.Invoke(ctx, "go", nil, nil))
	require.NoError(t, engine.Transition(ctx, "b", nil, nil))

	assert.Equal(t, []string{
		"hook:init", "swap", "transition",
		"action",
		"hook:exit", "swap", "hook:enter", "transition",
	}, kinds)
}

func TestEngine_Defaults(t *testing.T) {
	t.Parallel()

	engine := NewEngine(WithName(""))
	assert.Equal(t, "default", engine.Name())
	assert.NotEmpty(t, engine.ID())
	assert.Equal(t, Unset, engine.CurrentState())
	assert.Nil(t, engine.Data())
	assert.Empty(t, engine.History())
	assert.Equal(t, "uninitialized", engine.Phase().String())
	assert.Equal(t, "unknown", Phase(99).String())
}

func TestErrors(t *testing.T) {
	t.Parallel()

	err := newError(KindUnknownAction, "on", "turnOn")
	assert.Equal(t, "fsm error: function not found for state: 'turnOn' for state 'on'", err.Error())
	assert.Equal(t, "fsm error: state not found: 'x'", newError(KindUnknownState, "x", "").Error())
	assert.Equal(t, "fsm error: no fsm definition found", newError(KindNoDefinition, "", "").Error())

	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("other")))
	assert.Equal(t, "unknown_action", KindUnknownAction.String())

	assert.NoError(t, WrapHookError("a", HookEnter, nil))

	base := errors.New("base")
	wrapped := WrapHookError("a", HookEnter, base)
	assert.Equal(t, "enter hook of state a: base", wrapped.Error())
	assert.Same(t, wrapped, WrapHookError("b", HookExit, wrapped))
}
