// Package runcontrol provides the shared pause and cancel gate that an
// execution run's producer and workers consult between items.
package runcontrol

import "sync"

// Control coordinates pause, resume, and cancellation across the goroutines
// of one execution run. The zero value is not usable; call New.
type Control struct {
	mu        sync.Mutex
	resumed   chan struct{}
	paused    bool
	cancelled bool
}

// New returns a control in the running state.
func New() *Control {
	c := &Control{resumed: make(chan struct{})}
	close(c.resumed)
	return c
}

// Pause closes the gate. Workers block in WaitIfPaused until Resume or Cancel.
func (c *Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused || c.cancelled {
		return
	}
	c.paused = true
	c.resumed = make(chan struct{})
}

// Resume reopens the gate.
func (c *Control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	close(c.resumed)
}

// Cancel marks the run cancelled and reopens the gate so paused workers can
// observe the cancellation instead of blocking forever.
func (c *Control) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = true
	if c.paused {
		c.paused = false
		close(c.resumed)
	}
}

// Reset returns the control to the running state for a fresh run.
func (c *Control) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = false
	if c.paused {
		c.paused = false
		close(c.resumed)
	}
}

// IsCancelled reports whether Cancel has been called since the last Reset.
func (c *Control) IsCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// IsPaused reports whether the gate is currently closed.
func (c *Control) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// WaitIfPaused blocks while the gate is closed. It returns true if the run
// has been cancelled, so callers can stop without processing further work.
func (c *Control) WaitIfPaused() bool {
	c.mu.Lock()
	gate := c.resumed
	c.mu.Unlock()
	<-gate
	return c.IsCancelled()
}
