package statemachine

import (
	"context"
	"sync"
	"time"

	"github.com/amp-labs/amp-fsm/logger"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

const defaultHistoryLimit = 100

// Metric outcome constants.
const (
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeRejected = "rejected"
)

// Phase is the lifecycle phase of the engine itself, as opposed to the user
// defined state it is in.
type Phase int

const (
	// PhaseUninitialized means no definition is attached.
	PhaseUninitialized Phase = iota
	// PhaseDefined means a definition is attached but no state is active.
	PhaseDefined
	// PhaseActive means a state is active. An engine never leaves this phase.
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseDefined:
		return "defined"
	case PhaseActive:
		return "active"
	default:
		return "unknown"
	}
}

// Stats are counters of engine activity since construction.
type Stats struct {
	Transitions       int64
	FailedTransitions int64
	Actions           int64
}

// Engine runs a single finite state machine. Each Engine is independent;
// nothing is shared between instances except process wide metric collectors.
//
// The engine assumes a single in-flight transition. Issuing another
// Transition or Invoke before a pending asynchronous hook has completed is a
// caller error and is not defended against.
type Engine struct {
	id           string
	name         string
	logger       Logger
	historyLimit int

	// mu guards the fields below. It is never held while user code runs.
	mu         sync.RWMutex
	definition *Definition
	current    string
	data       any
	history    []StateTransition
	observers  []Observer

	transitions *atomic.Int64
	failed      *atomic.Int64
	actions     *atomic.Int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithName sets the machine name used in metric labels, spans and logs.
func WithName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.name = name
		}
	}
}

// WithLogger sets the logger used for engine execution. A nil logger
// disables logging.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l == nil {
			l = NopLogger{}
		}

		e.logger = l
	}
}

// WithHistoryLimit sets how many completed state swaps History keeps.
// A limit of 0 disables history.
func WithHistoryLimit(limit int) Option {
	return func(e *Engine) {
		if limit >= 0 {
			e.historyLimit = limit
		}
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// NewEngine creates an empty engine. Attach a definition before using it.
func NewEngine(opts ...Option) *Engine {
	engine := &Engine{
		id:           uuid.NewString(),
		name:         "default",
		logger:       NewDefaultLogger(),
		historyLimit: defaultHistoryLimit,
		transitions:  atomic.NewInt64(0),
		failed:       atomic.NewInt64(0),
		actions:      atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// ID returns the unique identifier of this engine instance.
func (e *Engine) ID() string {
	return e.id
}

// Name returns the machine name.
func (e *Engine) Name() string {
	return e.name
}

// Attach stores the definition. It must be called exactly once, before
// Start or Restore.
func (e *Engine) Attach(def *Definition) error {
	if def == nil || len(def.States) == 0 {
		return newError(KindInvalidDefinition, "", "")
	}

	if _, ok := def.States[Unset]; ok {
		return newError(KindInvalidDefinition, "", "")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.definition != nil {
		return newError(KindDefinitionAttached, "", "")
	}

	e.definition = def

	return nil
}

// Observe registers an observer for engine events.
func (e *Engine) Observe(o Observer) {
	if o == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.observers = append(e.observers, o)
}

// Phase returns the engine's lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()

	switch {
	case e.definition == nil:
		return PhaseUninitialized
	case e.current == Unset:
		return PhaseDefined
	default:
		return PhaseActive
	}
}

// CurrentState returns the active state, or Unset before startup.
func (e *Engine) CurrentState() string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.current
}

// Data returns the data stored by the last completed state swap.
func (e *Engine) Data() any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.data
}

// History returns the most recent state swaps, oldest first.
func (e *Engine) History() []StateTransition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]StateTransition, len(e.history))
	copy(out, e.history)

	return out
}

// Stats returns activity counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Transitions:       e.transitions.Load(),
		FailedTransitions: e.failed.Load(),
		Actions:           e.actions.Load(),
	}
}

// Start begins operation in state with data. If the definition has an Init
// hook it runs first, and the initial transition only happens once it
// completes without error. done is optional and receives the outcome of the
// initial transition, including its enter hook.
func (e *Engine) Start(ctx context.Context, state string, data any, done Callback) error {
	def, current := e.snapshotRefs()
	if def == nil {
		return newError(KindNoDefinition, state, "")
	}

	if current != Unset {
		return newError(KindAlreadyStarted, current, "")
	}

	if !def.HasState(state) {
		return newError(KindUnknownState, state, "")
	}

	if def.Init == nil {
		e.transition(ctx, def, state, data, done)

		return nil
	}

	invoke := func(ctx context.Context, cb Callback) {
		def.Init(ctx, state, data, cb)
	}

	e.runStep(ctx, state, HookInit, invoke, func(err error) {
		if err != nil {
			complete(done, err)

			return
		}

		e.transition(ctx, def, state, data, done)
	})

	return nil
}

// Transition moves the engine to target carrying data. The exit hook of the
// current state runs first; if it fails, nothing changes and the error is
// delivered to done. Otherwise state and data are replaced and the enter
// hook of target runs, its outcome going to done.
func (e *Engine) Transition(ctx context.Context, target string, data any, done Callback) error {
	def := e.getDefinition()
	if def == nil {
		return newError(KindNoDefinition, target, "")
	}

	if !def.HasState(target) {
		return newError(KindUnknownState, target, "")
	}

	e.transition(ctx, def, target, data, done)

	return nil
}

// Invoke calls action of the current state with params. The handler is
// responsible for requesting any transition and, when asynchronous, for
// calling done.
func (e *Engine) Invoke(ctx context.Context, action string, params any, done Callback) error {
	def, state := e.snapshotRefs()
	if def == nil {
		return newError(KindNoDefinition, state, action)
	}

	act, ok := def.action(state, action)
	if !ok {
		return newError(KindUnknownAction, state, action)
	}

	e.actions.Inc()

	actionCtx, span := startActionSpan(ctx, e, state, action)
	start := time.Now()

	act.run(actionCtx, params, e.once(ctx, "action "+action, func(err error) {
		elapsed := time.Since(start)

		endSpan(span, elapsed, err)
		actionsTotal.WithLabelValues(e.name, sanitizeState(state), action, outcomeOf(err)).Inc()
		e.logger.ActionInvoked(ctx, state, action, elapsed, err)
		e.notify(Event{Kind: EventAction, State: state, Action: action, Err: err})

		complete(done, err)
	}))

	return nil
}

// Save returns the current state and data for persistence.
func (e *Engine) Save() (Snapshot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.current == Unset {
		return Snapshot{}, newError(KindNoActiveState, "", "")
	}

	return Snapshot{
		State: e.current,
		Data:  e.data,
	}, nil
}

// Restore loads a snapshot into an engine that has a definition but has not
// been started. It runs a normal transition into the snapshot's state, so the
// state's enter hook runs and the Init hook does not. Data is opaque and is
// not validated.
func (e *Engine) Restore(ctx context.Context, snap Snapshot, done Callback) error {
	def, current := e.snapshotRefs()
	if def == nil {
		restoresTotal.WithLabelValues(e.name, outcomeRejected).Inc()

		return newError(KindNoDefinition, snap.State, "")
	}

	if current != Unset {
		restoresTotal.WithLabelValues(e.name, outcomeRejected).Inc()

		return newError(KindAlreadyStarted, current, "")
	}

	if !def.HasState(snap.State) {
		restoresTotal.WithLabelValues(e.name, outcomeRejected).Inc()

		return newError(KindInvalidSnapshot, snap.State, "")
	}

	e.transition(ctx, def, snap.State, snap.Data, func(err error) {
		restoresTotal.WithLabelValues(e.name, outcomeOf(err)).Inc()
		complete(done, err)
	})

	return nil
}

// transition runs exit -> swap -> enter for a target already known to exist.
func (e *Engine) transition(ctx context.Context, def *Definition, target string, data any, done Callback) {
	from := e.CurrentState()
	ctx, span := startTransitionSpan(ctx, e, from, target)
	start := time.Now()

	finish := func(err error) {
		elapsed := time.Since(start)

		endSpan(span, elapsed, err)
		transitionsTotal.WithLabelValues(e.name, sanitizeState(from), target, outcomeOf(err)).Inc()

		if err != nil {
			e.failed.Inc()
		}

		e.logger.TransitionExecuted(ctx, from, target, elapsed, err)
		e.notify(Event{Kind: EventTransition, From: from, To: target, Err: err})

		complete(done, err)
	}

	enter := func() {
		e.swap(from, target, data)
		e.logger.StateEntered(ctx, target)
		e.runHook(ctx, target, HookEnter, def.States[target].OnEnter, finish)
	}

	if from == Unset {
		enter()

		return
	}

	e.runHook(ctx, from, HookExit, def.States[from].OnExit, func(err error) {
		if err != nil {
			finish(err)

			return
		}

		e.logger.StateExited(ctx, from)
		enter()
	})
}

// runHook runs h, or completes immediately when the state defines no such hook.
func (e *Engine) runHook(ctx context.Context, state string, name HookName, h *Hook, done Callback) {
	if !h.valid() {
		done(nil)

		return
	}

	e.runStep(ctx, state, name, h.run, done)
}

// runStep invokes a lifecycle hook, instruments it and forwards its wrapped
// outcome to done.
func (e *Engine) runStep(
	ctx context.Context,
	state string,
	hook HookName,
	invoke func(ctx context.Context, cb Callback),
	done Callback,
) {
	hookCtx, span := startHookSpan(ctx, e, state, hook)
	start := time.Now()

	invoke(hookCtx, e.once(ctx, string(hook)+" hook of "+state, func(err error) {
		err = WrapHookError(state, hook, err)
		elapsed := time.Since(start)

		endSpan(span, elapsed, err)
		hookDuration.WithLabelValues(e.name, state, string(hook), outcomeOf(err)).Observe(elapsed.Seconds())
		e.logger.HookCompleted(ctx, state, hook, elapsed, err)
		e.notify(Event{Kind: EventHook, State: state, Hook: hook, Err: err})

		done(err)
	}))
}

// swap replaces the current state and data.
func (e *Engine) swap(from, to string, data any) {
	e.mu.Lock()

	e.current = to
	e.data = data

	if e.historyLimit > 0 {
		e.history = append(e.history, StateTransition{From: from, To: to, Timestamp: time.Now()})
		if excess := len(e.history) - e.historyLimit; excess > 0 {
			e.history = append(e.history[:0:0], e.history[excess:]...)
		}
	}

	e.mu.Unlock()

	e.transitions.Inc()
	e.notify(Event{Kind: EventSwap, From: from, To: to})
}

// once guards a completion callback handed to user code against being
// invoked more than once.
func (e *Engine) once(ctx context.Context, what string, cb Callback) Callback {
	fired := atomic.NewBool(false)

	return func(err error) {
		if !fired.CompareAndSwap(false, true) {
			logger.Get(ctx).WarnContext(ctx, "completion callback invoked more than once, ignoring",
				"machine", e.name,
				"engine_id", e.id,
				"step", what,
			)

			return
		}

		cb(err)
	}
}

func (e *Engine) notify(event Event) {
	e.mu.RLock()
	observers := e.observers
	e.mu.RUnlock()

	if len(observers) == 0 {
		return
	}

	event.At = time.Now()

	for _, o := range observers {
		o(event)
	}
}

func (e *Engine) getDefinition() *Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.definition
}

func (e *Engine) snapshotRefs() (*Definition, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.definition, e.current
}

func complete(done Callback, err error) {
	if done != nil {
		done(err)
	}
}

func outcomeOf(err error) string {
	if err != nil {
		return outcomeError
	}

	return outcomeSuccess
}
