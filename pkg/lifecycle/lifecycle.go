// Package lifecycle coordinates startup and teardown for short-lived batch
// processes. Subsystems register hooks on a shared Coordinator; teardown
// hooks run in reverse registration order so a subsystem is released only
// after everything layered on top of it.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Coordinator tracks startup and teardown hooks for a single process.
// The zero value is not usable; construct with New.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	startup sync.WaitGroup

	mu       sync.Mutex
	teardown []func()

	once sync.Once
	err  error
}

// New returns a Coordinator whose Context is cancelled once shutdown begins.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{ctx: ctx, cancel: cancel}
}

// Context returns the process context. RequestShutdown and Shutdown cancel
// it; long-running work should watch for that cancellation.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn on its own goroutine. WaitForStartup blocks until every
// registered startup function has returned.
func (c *Coordinator) OnStartup(fn func()) {
	c.startup.Go(fn)
}

// OnTeardown records fn to run during Shutdown. Hooks run sequentially in
// reverse registration order.
func (c *Coordinator) OnTeardown(fn func()) {
	c.mu.Lock()
	c.teardown = append(c.teardown, fn)
	c.mu.Unlock()
}

// WaitForStartup blocks until all startup functions have completed.
func (c *Coordinator) WaitForStartup() {
	c.startup.Wait()
}

// RequestShutdown cancels the process context without running teardown
// hooks. The process owner observes the cancellation and calls Shutdown.
// Safe to call any number of times, from any goroutine.
func (c *Coordinator) RequestShutdown() {
	c.cancel()
}

// Shutdown cancels the process context and runs teardown hooks in reverse
// registration order. It returns an error if the hooks do not finish within
// timeout. Later calls return the first result without rerunning hooks.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.once.Do(func() {
		c.cancel()

		c.mu.Lock()
		hooks := c.teardown
		c.teardown = nil
		c.mu.Unlock()

		done := make(chan struct{})
		go func() {
			for i := len(hooks) - 1; i >= 0; i-- {
				hooks[i]()
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			c.err = fmt.Errorf("teardown incomplete after %v", timeout)
		}
	})
	return c.err
}
