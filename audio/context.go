package audio

import (
	"errors"
	"sync"
)

// ContextState describes the lifecycle of the audio backend.
type ContextState int

const (
	StateSuspended ContextState = iota
	StateRunning
	StateClosed
)

// String returns a readable state name.
func (s ContextState) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Context is the audio backend lifecycle contract the engine consumes.
// Implementations must tolerate repeated Start/Resume calls.
type Context interface {
	State() ContextState
	Start() error
	Resume() error
	Close() error
}

// ErrContextClosed is returned by operations on a closed context.
var ErrContextClosed = errors.New("audio context closed")

// ErrResumeFailed is returned when the backend cannot leave suspension.
var ErrResumeFailed = errors.New("audio context resume failed")

// OfflineContext is an in-process Context with injectable failures. It backs
// tests and offline rendering; a realtime backend satisfies the same
// interface.
type OfflineContext struct {
	mu         sync.Mutex
	state      ContextState
	failStart  bool
	failResume bool
}

// NewOfflineContext creates a suspended offline context.
func NewOfflineContext() *OfflineContext {
	return &OfflineContext{state: StateSuspended}
}

// State returns the current lifecycle state.
func (c *OfflineContext) State() ContextState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Start transitions to running.
func (c *OfflineContext) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return ErrContextClosed
	}

	if c.failStart {
		return ErrResumeFailed
	}

	c.state = StateRunning

	return nil
}

// Resume transitions from suspended back to running.
func (c *OfflineContext) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return ErrContextClosed
	}

	if c.failResume {
		return ErrResumeFailed
	}

	c.state = StateRunning

	return nil
}

// Close shuts the context down permanently.
func (c *OfflineContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateClosed

	return nil
}

// ForceSuspend pushes the context into suspension, simulating a backend
// losing its device.
func (c *OfflineContext) ForceSuspend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateClosed {
		c.state = StateSuspended
	}
}

// FailResume controls whether subsequent Resume/Start calls fail.
func (c *OfflineContext) FailResume(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failResume = fail
	c.failStart = fail
}
