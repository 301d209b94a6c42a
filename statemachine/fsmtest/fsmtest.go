// Package fsmtest provides testing utilities for state machine engines: an
// engine wrapper that records every step, blocking variants of the
// callback-based operations and trace matchers.
//
//nolint:varnamelen // Short names idiomatic in test helpers
package fsmtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/stretchr/testify/require"
)

// DefaultTimeout bounds how long blocking helpers wait for a completion.
const DefaultTimeout = 5 * time.Second

// TestEngine wraps Engine with a recorded event trace and blocking helpers.
type TestEngine struct {
	*statemachine.Engine

	t       testing.TB
	timeout time.Duration

	mu         sync.Mutex
	trace      []statemachine.Event
	assertions []Assertion
}

// Assertion records the result of a matcher or assertion.
type Assertion struct {
	Name   string
	Passed bool
	Error  error
}

// Option configures a TestEngine.
type Option func(*TestEngine)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(te *TestEngine) {
		if d > 0 {
			te.timeout = d
		}
	}
}

// NewTestEngine attaches def to a fresh engine and starts recording its
// events. Engine options such as WithName may be passed through opts.
func NewTestEngine(
	t testing.TB,
	def *statemachine.Definition,
	engineOpts []statemachine.Option,
	opts ...Option,
) *TestEngine {
	t.Helper()

	te := &TestEngine{
		t:       t,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(te)
	}

	engineOpts = append([]statemachine.Option{
		statemachine.WithName(t.Name()),
		statemachine.WithObserver(te.record),
	}, engineOpts...)

	te.Engine = statemachine.NewEngine(engineOpts...)
	require.NoError(t, te.Attach(def), "failed to attach definition")

	return te
}

func (te *TestEngine) record(event statemachine.Event) {
	te.mu.Lock()
	defer te.mu.Unlock()

	te.trace = append(te.trace, event)
}

// Trace returns a copy of the recorded events.
func (te *TestEngine) Trace() []statemachine.Event {
	te.mu.Lock()
	defer te.mu.Unlock()

	out := make([]statemachine.Event, len(te.trace))
	copy(out, te.trace)

	return out
}

// Reset clears the recorded trace and assertions.
func (te *TestEngine) Reset() {
	te.mu.Lock()
	defer te.mu.Unlock()

	te.trace = nil
	te.assertions = nil
}

// Assertions returns every assertion made so far.
func (te *TestEngine) Assertions() []Assertion {
	te.mu.Lock()
	defer te.mu.Unlock()

	out := make([]Assertion, len(te.assertions))
	copy(out, te.assertions)

	return out
}

// await runs op with a completion callback and blocks until it fires. A
// synchronous misuse error from op is returned directly.
func (te *TestEngine) await(op func(done statemachine.Callback) error) error {
	te.t.Helper()

	ch := make(chan error, 1)

	if err := op(func(err error) { ch <- err }); err != nil {
		return err
	}

	select {
	case err := <-ch:
		return err
	case <-time.After(te.timeout):
		te.t.Fatalf("completion not signalled within %s", te.timeout)

		return nil
	}
}

// Start starts the engine and waits for the initial transition to finish.
func (te *TestEngine) Start(ctx context.Context, state string, data any) error {
	te.t.Helper()

	return te.await(func(done statemachine.Callback) error {
		return te.Engine.Start(ctx, state, data, done)
	})
}

// Transition transitions and waits for the enter hook to finish.
func (te *TestEngine) Transition(ctx context.Context, target string, data any) error {
	te.t.Helper()

	return te.await(func(done statemachine.Callback) error {
		return te.Engine.Transition(ctx, target, data, done)
	})
}

// Invoke invokes action and waits for its completion.
func (te *TestEngine) Invoke(ctx context.Context, action string, params any) error {
	te.t.Helper()

	return te.await(func(done statemachine.Callback) error {
		return te.Engine.Invoke(ctx, action, params, done)
	})
}

// Restore restores snap and waits for the enter hook to finish.
func (te *TestEngine) Restore(ctx context.Context, snap statemachine.Snapshot) error {
	te.t.Helper()

	return te.await(func(done statemachine.Callback) error {
		return te.Engine.Restore(ctx, snap, done)
	})
}

// Expect evaluates matchers against the trace and fails the test on the
// first one that does not match.
func (te *TestEngine) Expect(matchers ...Matcher) {
	te.t.Helper()

	for _, m := range matchers {
		ok, err := m.Match(te)

		te.mu.Lock()
		te.assertions = append(te.assertions, Assertion{Name: m.Description(), Passed: ok, Error: err})
		te.mu.Unlock()

		require.True(te.t, ok, "%s: %v", m.Description(), err)
	}
}

// AssertState checks the current state.
func (te *TestEngine) AssertState(expected string) {
	te.t.Helper()

	actual := te.CurrentState()

	te.mu.Lock()
	te.assertions = append(te.assertions, Assertion{
		Name:   fmt.Sprintf("current state is '%s'", expected),
		Passed: actual == expected,
	})
	te.mu.Unlock()

	require.Equal(te.t, expected, actual, "current state should be '%s'", expected)
}
