package runloop

import (
	"sync"
	"sync/atomic"
)

// Op is the single operation TaskState.nextOp selects for a TaskWorker to
// perform on its current turn.
type Op int

const (
	OpNone Op = iota
	OpProcess
	OpWindow
	OpCommit
)

// TaskState holds the per-task scheduling flags and pending queue. needWindow,
// needCommit and windowOrCommitInFlight are written from the periodic-timer
// thread, the loop thread and (when a
// WorkerPool is configured) a pool thread, and read from the loop thread, so
// they're guarded by mu rather than left as bare bools. messagesInFlight is
// read and written far more often under light contention, so it stays a
// lock-free atomic.
type TaskState struct {
	name           TaskName
	maxConcurrency int
	requests       *CoordinatorRequestSink

	mu                     sync.Mutex
	needWindow             bool
	needCommit             bool
	windowOrCommitInFlight bool
	pendingQueue           []*PendingEnvelope

	messagesInFlight atomic.Int64
}

func newTaskState(name TaskName, maxConcurrency int, requests *CoordinatorRequestSink) *TaskState {
	return &TaskState{
		name:           name,
		maxConcurrency: maxConcurrency,
		requests:       requests,
	}
}

func (ts *TaskState) setNeedWindow() {
	ts.mu.Lock()
	ts.needWindow = true
	ts.mu.Unlock()
}

func (ts *TaskState) setNeedCommit() {
	ts.mu.Lock()
	ts.needCommit = true
	ts.mu.Unlock()
}

func (ts *TaskState) incInFlight() { ts.messagesInFlight.Add(1) }
func (ts *TaskState) decInFlight() { ts.messagesInFlight.Add(-1) }

func (ts *TaskState) pushPending(pe *PendingEnvelope) {
	ts.mu.Lock()
	ts.pendingQueue = append(ts.pendingQueue, pe)
	ts.mu.Unlock()
}

func (ts *TaskState) popPending() *PendingEnvelope {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if len(ts.pendingQueue) == 0 {
		return nil
	}
	pe := ts.pendingQueue[0]
	ts.pendingQueue = ts.pendingQueue[1:]
	return pe
}

// isReady folds in any coordinator-requested commit (consume-on-read), then
// applies the window/commit-vs-process readiness rule: window and commit
// only run with nothing in flight, process dispatch only runs under the
// concurrency cap, and neither runs while the other is already in flight.
func (ts *TaskState) isReady() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.requests.consumeCommitRequest(ts.name) {
		ts.needCommit = true
	}
	if ts.needWindow || ts.needCommit {
		return ts.messagesInFlight.Load() == 0 && !ts.windowOrCommitInFlight
	}
	return ts.messagesInFlight.Load() < int64(ts.maxConcurrency) && !ts.windowOrCommitInFlight
}

// hasPendingOps reports whether there is anything at all queued for this
// task: a message, or an armed window/commit tick.
func (ts *TaskState) hasPendingOps() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.pendingQueue) > 0 || ts.needWindow || ts.needCommit
}

// nextOp applies a fixed priority order — commit, then window, then process,
// then no-op — but only once isReady confirms the task may act at all this
// turn.
func (ts *TaskState) nextOp() Op {
	if !ts.isReady() {
		return OpNone
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	switch {
	case ts.needCommit:
		return OpCommit
	case ts.needWindow:
		return OpWindow
	case len(ts.pendingQueue) > 0:
		return OpProcess
	default:
		return OpNone
	}
}

// startWindowOrCommit clears the need flag for the op being started (not on
// completion, so concurrent ticks during the op coalesce into at most one
// pending follow-up) and marks the task busy.
func (ts *TaskState) startWindowOrCommit(isCommit bool) {
	ts.mu.Lock()
	if isCommit {
		ts.needCommit = false
	} else {
		ts.needWindow = false
	}
	ts.windowOrCommitInFlight = true
	ts.mu.Unlock()
}

func (ts *TaskState) finishWindowOrCommit() {
	ts.mu.Lock()
	ts.windowOrCommitInFlight = false
	ts.mu.Unlock()
}

func (ts *TaskState) pendingLen() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.pendingQueue)
}
