package train

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Control.Wait after Stop.
var ErrStopped = errors.New("training stopped")

// Control lets another goroutine pause, resume or stop a running Trainer.
// The trainer only checks it between whole forward/backward cycles, so a
// graph is never observed half-built.
//
// The zero value is ready to use.
type Control struct {
	mu      sync.Mutex
	paused  bool
	stopped bool
	resume  chan struct{} // closed on Resume or Stop while paused
}

// Pause asks the trainer to block before its next cycle.
func (c *Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || c.stopped {
		return
	}
	c.paused = true
	c.resume = make(chan struct{})
}

// Resume releases a paused trainer.
func (c *Control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.release()
}

// Stop ends training before the next cycle. It also releases a paused trainer.
func (c *Control) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.release()
}

// Paused reports whether a pause is in effect.
func (c *Control) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Stopped reports whether Stop was called.
func (c *Control) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// release must be called with mu held.
func (c *Control) release() {
	if c.paused {
		c.paused = false
		close(c.resume)
	}
}

// Wait blocks while paused. It returns ErrStopped after Stop and the
// context's error if ctx ends first.
func (c *Control) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.stopped {
			c.mu.Unlock()
			return ErrStopped
		}
		if !c.paused {
			c.mu.Unlock()
			return ctx.Err()
		}
		ch := c.resume
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
