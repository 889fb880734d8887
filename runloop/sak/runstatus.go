// Package sak ("stream application kit") collects the small, dependency-free
// helpers shared across the run loop and its supporting packages.
package sak

import "context"

// RunStatus is a forkable cancellation token. A child created by Fork is
// halted whenever its parent is, but can also be halted independently,
// without affecting siblings or the parent.
type RunStatus struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunStatus creates a root RunStatus derived from ctx.
func NewRunStatus(ctx context.Context) RunStatus {
	if ctx == nil {
		ctx = context.Background()
	}
	c, cancel := context.WithCancel(ctx)
	return RunStatus{ctx: c, cancel: cancel}
}

// Fork derives a child RunStatus. Halting the child never halts r; halting r
// halts every descendant.
func (r RunStatus) Fork() RunStatus {
	return NewRunStatus(r.ctx)
}

// Ctx returns the underlying context, suitable for passing to blocking calls
// that should unblock when the RunStatus is halted.
func (r RunStatus) Ctx() context.Context {
	return r.ctx
}

// Done returns a channel closed when the RunStatus is halted.
func (r RunStatus) Done() <-chan struct{} {
	return r.ctx.Done()
}

// Halt cancels the RunStatus and all of its descendants.
func (r RunStatus) Halt() {
	r.cancel()
}

// Running reports whether Halt has not yet been called (on r or an ancestor).
func (r RunStatus) Running() bool {
	select {
	case <-r.ctx.Done():
		return false
	default:
		return true
	}
}
