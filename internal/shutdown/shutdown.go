// Package shutdown coordinates graceful teardown for long-running commands:
// the demo backend's HTTP listener and the board's background monitor both
// register stop hooks that run, newest first, when the process is asked to
// exit.
package shutdown

import (
	"context"
	"sync"

	"eisen/internal/utils"
)

// Hook is a stop function run during shutdown. The context carries the
// teardown deadline.
type Hook func(ctx context.Context) error

type entry struct {
	name string
	fn   Hook
}

// Coordinator collects stop hooks and runs them once on shutdown.
type Coordinator struct {
	mu      sync.Mutex
	hooks   []entry
	stopped bool

	log    *utils.Logger
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewCoordinator creates a coordinator whose Context is cancelled as soon
// as shutdown begins.
func NewCoordinator() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		log:    utils.GetLogger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a stop hook. Hooks run in reverse registration order, so a
// component registered after its dependency stops before it.
func (c *Coordinator) Register(name string, fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, entry{name: name, fn: fn})
}

// Context is cancelled when shutdown begins. Long-running operations derive
// from it to become interruptible.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Stopped reports whether shutdown has been initiated.
func (c *Coordinator) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Shutdown cancels the coordinator context and runs every hook, newest
// first, under the given teardown context. Hook errors are logged, not
// propagated; a failing hook must not keep the rest from running. Safe to
// call more than once; only the first call runs the hooks.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.stopped = true
		hooks := make([]entry, len(c.hooks))
		copy(hooks, c.hooks)
		c.mu.Unlock()

		c.cancel()

		done := make(chan struct{})
		go func() {
			for i := len(hooks) - 1; i >= 0; i-- {
				if hookErr := hooks[i].fn(ctx); hookErr != nil {
					c.log.Error("shutdown hook %s failed: %v", hooks[i].name, hookErr)
				}
			}
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}
