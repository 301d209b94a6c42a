package shutdown

import (
	"context"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
)

var (
	mut   sync.Mutex //nolint:gochecknoglobals
	hooks []func()   //nolint:gochecknoglobals
	stop  func()     //nolint:gochecknoglobals
)

// BeforeShutdown registers a function to be called before the context
// returned by SetupHandler is canceled. Hooks run in reverse order of
// registration.
func BeforeShutdown(h func()) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// Shutdown triggers the shutdown process programmatically.
func Shutdown() {
	mut.Lock()
	s := stop
	mut.Unlock()

	if s != nil {
		s()
	}
}

// SetupHandler returns a context canceled on SIGINT or SIGTERM, or when
// Shutdown is called. Registered hooks run first, while the context is still
// alive.
func SetupHandler(parent context.Context) context.Context {
	sigCtx, stopSignals := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.WithoutCancel(sigCtx))

	var once sync.Once

	trigger := func(reason string) {
		once.Do(func() {
			slog.Warn("Shutting down", "reason", reason)
			stopSignals()
			cleanup()
			cancel()
		})
	}

	mut.Lock()
	stop = func() { trigger("requested") }
	mut.Unlock()

	go func() {
		<-sigCtx.Done()
		trigger("signal")
	}()

	return ctx
}

func cleanup() {
	mut.Lock()
	hs := hooks
	hooks = nil
	stop = nil
	mut.Unlock()

	for i := len(hs) - 1; i >= 0; i-- {
		hs[i]()
	}
}
