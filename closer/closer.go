// Package closer collects cleanup work for long-lived resources such as
// snapshot stores, telemetry providers and offload pools.
package closer

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

var ErrCloserPanic = errors.New("panic during close")

type customCloser struct {
	closeFn func() error
}

// CustomCloser adapts a cleanup function to io.Closer. A nil function
// closes successfully.
func CustomCloser(closeFn func() error) io.Closer {
	return &customCloser{closeFn: closeFn}
}

func (c *customCloser) Close() error {
	if c.closeFn == nil {
		return nil
	}

	return c.closeFn()
}

// Closer closes a set of resources in reverse order of registration, so a
// resource opened later (and possibly depending on an earlier one) goes first.
// It is safe for concurrent use.
type Closer struct {
	mu      sync.Mutex
	closers []io.Closer
}

// NewCloser creates a Closer holding the given resources.
func NewCloser(closers ...io.Closer) *Closer {
	return &Closer{closers: closers}
}

// Add registers a resource. Nil closers are skipped on Close.
func (c *Closer) Add(closer io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closers = append(c.closers, closer)
}

// AddFunc registers a cleanup function.
func (c *Closer) AddFunc(fn func() error) {
	c.Add(CustomCloser(fn))
}

// Close closes every registered resource, even after failures, and returns
// the joined errors. The set is emptied, so a second Close is a no-op.
func (c *Closer) Close() error {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	c.mu.Unlock()

	var errs []error

	for i := len(closers) - 1; i >= 0; i-- {
		if closers[i] == nil {
			continue
		}

		if err := HandlePanic(closers[i]).Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

type closeOnceImpl struct {
	mu     sync.Mutex
	closer io.Closer
	closed bool
}

// CloseOnce wraps a closer so only the first successful Close reaches it.
// A failed Close may be retried.
func CloseOnce(closer io.Closer) io.Closer {
	return &closeOnceImpl{closer: closer}
}

func (c *closeOnceImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.closer == nil {
		return nil
	}

	if err := c.closer.Close(); err != nil {
		return err
	}

	c.closed = true

	return nil
}

type panicHandlingImpl struct {
	closer io.Closer
}

// HandlePanic converts a panic inside Close into an ErrCloserPanic error.
func HandlePanic(closer io.Closer) io.Closer {
	return &panicHandlingImpl{closer: closer}
}

func (p *panicHandlingImpl) Close() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCloserPanic, r)
		}
	}()

	return p.closer.Close()
}
