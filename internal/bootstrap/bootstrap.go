// Package bootstrap runs a command whose cleanup must also happen on Ctrl-C.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const DefaultShutdownTimeout = 5 * time.Second

// App runs a command and releases its resources when it ends or is interrupted.
type App struct {
	// ShutdownTimeout bounds the context passed to the shutdown hooks.
	ShutdownTimeout time.Duration
	Logger          *slog.Logger

	mu    sync.Mutex
	hooks []func(ctx context.Context) error
}

func New() *App {
	return &App{
		ShutdownTimeout: DefaultShutdownTimeout,
		Logger:          slog.Default(),
	}
}

// AddShutdownHook registers a function to call during shutdown.
// Hooks run in reverse order of registration. Safe to call from the run function.
func (a *App) AddShutdownHook(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Run executes run until it returns, ctx is done or the process is interrupted, then shuts down.
// On interrupt Run does not wait for run to return.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- run(runCtx)
	}()

	var runErr error
	select {
	case runErr = <-done:
	case <-runCtx.Done():
		a.Logger.Debug("shutting down", "cause", context.Cause(runCtx))
	}
	return errors.Join(runErr, a.Shutdown())
}

// Shutdown calls the registered hooks once. Hooks registered later run on the next Shutdown.
func (a *App) Shutdown() error {
	a.mu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.mu.Unlock()
	if len(hooks) == 0 {
		return nil
	}

	timeout := a.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown hook %d > %w", i, err))
		}
	}
	return errors.Join(errs...)
}
