// Package server supervises the daemon's process lifecycle: signal handling,
// ordered shutdown of the resources the event loop owns (IPC listener, HTTP
// debug endpoints, audio-server session), and configuration reload.
package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/anjeleno/rdx-rivendell/pkg/logging"
)

// ShutdownFunc releases one resource owned by the daemon. It receives a
// context carrying the overall shutdown deadline.
type ShutdownFunc func(ctx context.Context) error

// ReloadFunc re-reads configuration in response to SIGHUP.
type ReloadFunc func() error

// Lifecycle coordinates orderly startup/shutdown of the daemon's resources.
// There is exactly one Lifecycle per process; every timer and listener the
// daemon acquires registers its teardown here so shutdown is guaranteed
// regardless of which signal triggered it.
type Lifecycle struct {
	log        logging.Logger
	shutdownCh chan struct{}
	once       sync.Once

	mu        sync.Mutex
	resources []namedShutdown
	reloadFn  ReloadFunc
}

type namedShutdown struct {
	name string
	fn   ShutdownFunc
}

// New creates a Lifecycle. Pass the logger the daemon already uses so
// shutdown/reload events land in the same structured log stream.
func New(log logging.Logger) *Lifecycle {
	return &Lifecycle{
		log:        log,
		shutdownCh: make(chan struct{}),
	}
}

// Register adds a resource to be torn down, in reverse registration order,
// when shutdown runs. name appears in shutdown logs.
func (lc *Lifecycle) Register(name string, fn ShutdownFunc) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.resources = append(lc.resources, namedShutdown{name: name, fn: fn})
}

// SetReloadFunc installs the function invoked on SIGHUP.
func (lc *Lifecycle) SetReloadFunc(fn ReloadFunc) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	lc.reloadFn = fn
}

// Done returns a channel that closes once shutdown has been initiated. The
// daemon's event loop selects on this alongside its timers.
func (lc *Lifecycle) Done() <-chan struct{} {
	return lc.shutdownCh
}

// Run installs signal handlers and blocks until SIGINT/SIGTERM triggers a
// graceful shutdown, which this method then performs before returning.
func (lc *Lifecycle) Run(timeout time.Duration) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		switch sig {
		case syscall.SIGHUP:
			lc.reload()
		default:
			lc.log.Info("received shutdown signal", logging.String("signal", sig.String()))
			lc.Shutdown(timeout)
			return
		}
	}
}

// Shutdown tears down every registered resource, most-recently-registered
// first, each bounded by the overall timeout. Idempotent.
func (lc *Lifecycle) Shutdown(timeout time.Duration) {
	lc.once.Do(func() {
		close(lc.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		lc.mu.Lock()
		resources := lc.resources
		lc.mu.Unlock()

		for i := len(resources) - 1; i >= 0; i-- {
			r := resources[i]
			if err := r.fn(ctx); err != nil {
				lc.log.Warn("resource shutdown failed", logging.String("resource", r.name), logging.Error(err))
				continue
			}
			lc.log.Info("resource shut down", logging.String("resource", r.name))
		}
	})
}

func (lc *Lifecycle) reload() {
	lc.mu.Lock()
	fn := lc.reloadFn
	lc.mu.Unlock()

	if fn == nil {
		lc.log.Warn("SIGHUP received but no reload function is configured")
		return
	}

	lc.log.Info("reloading configuration")
	if err := fn(); err != nil {
		lc.log.Error("configuration reload failed", logging.Error(err))
		return
	}
	lc.log.Info("configuration reload complete")
}
