package runloop

import (
	"sync/atomic"
	"time"
)

// CallbackState is the lifecycle of a single CallbackHandle. Transitions out
// of Pending are single-shot: only the first caller of transition wins.
type CallbackState int32

const (
	CallbackPending CallbackState = iota
	CallbackCompleted
	CallbackFailed
	CallbackTimedOut
)

// CallbackHandle is the per-dispatch handle a TaskWorker hands to a user task
// via its callback factory. It carries the dispatch sequence number used by
// the CallbackReorderBuffer to retire completions in order, independent of
// the order completions actually arrive.
type CallbackHandle struct {
	sequence    int64
	envelope    Envelope
	coordinator *Coordinator
	timeCreated time.Time
	state       atomic.Int32
}

func newCallbackHandle(seq int64, envelope Envelope, coordinator *Coordinator) *CallbackHandle {
	return &CallbackHandle{
		sequence:    seq,
		envelope:    envelope,
		coordinator: coordinator,
		timeCreated: time.Now(),
	}
}

// transition attempts the single-shot move from Pending to target. It
// reports whether this call performed the move; a false return means some
// other caller (a duplicate completion, or a race between completion and
// timeout) already settled this handle, and the caller should do nothing
// further.
func (h *CallbackHandle) transition(target CallbackState) bool {
	return h.state.CompareAndSwap(int32(CallbackPending), int32(target))
}

// State returns the handle's current lifecycle state.
func (h *CallbackHandle) State() CallbackState {
	return CallbackState(h.state.Load())
}
