package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/alitto/pond/v2"
)

const defaultOffloadWorkers = 10

// ErrOffloadPanic indicates an offloaded handler panicked.
var ErrOffloadPanic = errors.New("offloaded handler panicked")

// NewOffloadPool creates a worker pool for offloaded handlers. A non-positive
// worker count falls back to the default.
func NewOffloadPool(workers int) pond.Pool { //nolint:ireturn
	if workers <= 0 {
		workers = defaultOffloadWorkers
	}

	return pond.NewPool(workers)
}

// Offload returns an asynchronous hook that runs fn on pool and completes
// from the worker goroutine once fn returns.
func Offload(pool pond.Pool, fn func(ctx context.Context) error) *Hook {
	return Async(func(ctx context.Context, done Callback) {
		submit(pool, done, func() error {
			return fn(ctx)
		})
	})
}

// OffloadAction returns an asynchronous action that runs fn on pool. The
// caller's completion fires from the worker goroutine once fn returns.
func OffloadAction(pool pond.Pool, fn func(ctx context.Context, params any) error) Action {
	return AsyncAction(func(ctx context.Context, params any, done Callback) {
		submit(pool, done, func() error {
			return fn(ctx, params)
		})
	})
}

func submit(pool pond.Pool, done Callback, fn func() error) {
	err := pool.Go(func() {
		done(runRecovered(fn))
	})
	if err != nil {
		done(fmt.Errorf("offload: %w", err))
	}
}

func runRecovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrOffloadPanic, r)
		}
	}()

	return fn()
}
