// Package actions composes statemachine actions. Every combinator preserves
// the callback contract: the returned action calls done exactly once.
//
// Combinators run their children outside the engine, so a child that calls
// Transition must be the last step to run.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amp-labs/amp-fsm/statemachine"
)

var (
	// ErrBothActionsFailed is returned when both primary and fallback actions fail.
	ErrBothActionsFailed = errors.New("both primary and fallback actions failed")
	// ErrStepFailed is returned when a step in a sequence fails.
	ErrStepFailed = errors.New("step failed")
	// ErrNoBranchMatched is returned when no branch condition holds and there is no default.
	ErrNoBranchMatched = errors.New("no branch matched")
	// ErrActionFailedAfterRetries is returned when an action fails after all retry attempts.
	ErrActionFailedAfterRetries = errors.New("action failed after retries")
	// ErrSomeActionsFailed is returned when some parallel actions fail.
	ErrSomeActionsFailed = errors.New("some actions failed")
)

// Fallback runs primary and, if it fails, runs fallback with the same params.
func Fallback(primary, fallback statemachine.Action) statemachine.Action {
	return statemachine.AsyncAction(func(ctx context.Context, params any, done statemachine.Callback) {
		primary.Run(ctx, params, func(err error) {
			if err == nil {
				done(nil)

				return
			}

			fallback.Run(ctx, params, func(fallbackErr error) {
				if fallbackErr != nil {
					done(fmt.Errorf("%w: primary=%w, fallback=%w", ErrBothActionsFailed, err, fallbackErr))

					return
				}

				done(nil)
			})
		})
	})
}

// Sequence runs steps one after another and stops at the first failure.
func Sequence(steps ...statemachine.Action) statemachine.Action {
	return statemachine.AsyncAction(func(ctx context.Context, params any, done statemachine.Callback) {
		runStep(ctx, steps, 0, params, done)
	})
}

func runStep(ctx context.Context, steps []statemachine.Action, i int, params any, done statemachine.Callback) {
	if i == len(steps) {
		done(nil)

		return
	}

	steps[i].Run(ctx, params, func(err error) {
		if err != nil {
			done(fmt.Errorf("%w: step %d: %w", ErrStepFailed, i, err))

			return
		}

		runStep(ctx, steps, i+1, params, done)
	})
}

// Branch pairs a condition on the action params with the action to run.
type Branch struct {
	Condition func(ctx context.Context, params any) bool
	Action    statemachine.Action
}

// Conditional runs the first branch whose condition holds. It falls back to
// otherwise when no branch matches; a zero otherwise fails with
// ErrNoBranchMatched.
func Conditional(branches []Branch, otherwise statemachine.Action) statemachine.Action {
	return statemachine.AsyncAction(func(ctx context.Context, params any, done statemachine.Callback) {
		for _, branch := range branches {
			if branch.Condition(ctx, params) {
				branch.Action.Run(ctx, params, done)

				return
			}
		}

		if otherwise.IsZero() {
			done(ErrNoBranchMatched)

			return
		}

		otherwise.Run(ctx, params, done)
	})
}

// RetryOptions configures Retry. Zero fields take defaults.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// RetryIf limits retries to errors it accepts. Nil retries everything.
	RetryIf func(error) bool
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}

	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}

	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second //nolint:mnd // Reasonable default max delay for exponential backoff
	}

	if o.Multiplier <= 0 {
		o.Multiplier = 2.0
	}

	return o
}

// Retry reruns action with exponential backoff until it succeeds, the error
// is not retryable, or the attempts run out. Waiting does not block a
// goroutine, and a canceled context ends the retries with ctx.Err().
func Retry(action statemachine.Action, opts RetryOptions) statemachine.Action {
	opts = opts.withDefaults()

	return statemachine.AsyncAction(func(ctx context.Context, params any, done statemachine.Callback) {
		r := &retrier{action: action, opts: opts, params: params, done: done, delay: opts.InitialDelay}
		r.attempt(ctx)
	})
}

type retrier struct {
	action   statemachine.Action
	opts     RetryOptions
	params   any
	done     statemachine.Callback
	attempts int
	delay    time.Duration
}

func (r *retrier) attempt(ctx context.Context) {
	r.attempts++

	r.action.Run(ctx, r.params, func(err error) {
		switch {
		case err == nil:
			r.done(nil)
		case r.opts.RetryIf != nil && !r.opts.RetryIf(err):
			r.done(err)
		case r.attempts >= r.opts.MaxAttempts:
			r.done(fmt.Errorf("%w: %d attempts: %w", ErrActionFailedAfterRetries, r.attempts, err))
		default:
			r.wait(ctx)
		}
	})
}

func (r *retrier) wait(ctx context.Context) {
	delay := r.delay
	r.delay = min(time.Duration(float64(r.delay)*r.opts.Multiplier), r.opts.MaxDelay)

	var stop func() bool

	ready := make(chan struct{})
	timer := time.AfterFunc(delay, func() {
		<-ready
		stop()
		r.attempt(ctx)
	})

	// Exactly one of the timer and the cancellation wins timer.Stop.
	stop = context.AfterFunc(ctx, func() {
		if timer.Stop() {
			r.done(ctx.Err())
		}
	})

	close(ready)
}

// Parallel starts every action at once and completes when all have finished.
// Failures are joined under ErrSomeActionsFailed.
func Parallel(actions ...statemachine.Action) statemachine.Action {
	return statemachine.AsyncAction(func(ctx context.Context, params any, done statemachine.Callback) {
		if len(actions) == 0 {
			done(nil)

			return
		}

		var (
			mu      sync.Mutex
			pending = len(actions)
			errs    []error
		)

		for i, action := range actions {
			go action.Run(ctx, params, func(err error) {
				mu.Lock()

				if err != nil {
					errs = append(errs, fmt.Errorf("action %d: %w", i, err))
				}

				pending--
				last := pending == 0
				mu.Unlock()

				if !last {
					return
				}

				if len(errs) > 0 {
					done(fmt.Errorf("%w: %w", ErrSomeActionsFailed, errors.Join(errs...)))

					return
				}

				done(nil)
			})
		}
	})
}
