package runloop

import (
	"context"
	"time"
)

// Consumer is the multiplexed consumer the RunLoop drives. It is a black
// box: the loop only ever peeks it non-blockingly and advances a partition's
// cursor explicitly once a task has actually fetched an envelope for it.
type Consumer interface {
	// Choose returns the next available envelope without blocking and
	// without advancing any partition's cursor, or (nil, nil) if nothing is
	// currently available.
	Choose() (Envelope, error)
	// TryUpdate advances partition's cursor. It is idempotent within a
	// cycle: calling it again before the next Choose for that partition has
	// no additional effect.
	TryUpdate(partition Partition) error
	// PollInterval bounds how long blockIfBusy waits when the most recent
	// Choose returned nothing, so the loop doesn't idle forever when the
	// consumer later has more to offer.
	PollInterval() time.Duration
}

// CompletionFunc is invoked exactly once by a user task to report the
// outcome of a single dispatched Envelope. A nil error means success.
type CompletionFunc func(err error)

// CallbackFactory is handed to UserTask.Process for a single dispatch. Each
// invocation arms one in-flight slot and one CallbackHandle; the contract is
// that it's called exactly once per dispatch.
type CallbackFactory func() CompletionFunc

// UserTask is the user-supplied processor bound to one or more partitions.
type UserTask interface {
	// Process handles one Envelope asynchronously. It must invoke the
	// factory's CompletionFunc exactly once, from any goroutine, at any
	// point after returning.
	Process(ctx context.Context, envelope Envelope, coordinator *Coordinator, newCallback CallbackFactory)
	// Window performs a periodic aggregation step. It runs only when no
	// message is in flight for this task, and blocks new process dispatch
	// until it returns.
	Window(coordinator *Coordinator) error
	// Commit checkpoints progress and any user state. Like Window, it is
	// mutually exclusive with in-flight process dispatch.
	Commit() error
	// IsWindowable reports whether this task implements windowing; when
	// false, the periodic window tick is never armed even if WindowMs > 0.
	IsWindowable() bool
	Partitions() []Partition
	TaskName() TaskName
}

// OffsetManager tracks committed progress per task and partition. Update
// must be idempotent for equal offsets and is expected to receive strictly
// increasing offsets for a given (task, partition) pair — the
// CallbackReorderBuffer is what actually enforces that ordering.
type OffsetManager interface {
	Update(task TaskName, partition Partition, offset int64) error
}

// Metrics is the sink for the run loop's counters, latency histograms and
// utilization gauge.
type Metrics interface {
	IncEnvelopes()
	IncNullEnvelopes()
	IncProcesses()
	IncWindows()
	IncCommits()

	ObserveChoose(d time.Duration)
	ObserveBlock(d time.Duration)
	ObserveProcess(d time.Duration)
	ObserveWindow(d time.Duration)
	ObserveCommit(d time.Duration)
	ObservePendingMessages(task TaskName, n int)

	SetUtilization(v float64)
}

// WorkerPool runs window and commit bodies off the loop thread. When a
// TaskWorker has none configured, it runs them inline instead.
type WorkerPool interface {
	Submit(fn func())
}

// Scheduler drives the periodic-timer thread (window/commit ticks) and the
// callback-timeout watchdog. Both ScheduleRepeating and AfterFunc return a
// cancel function; calling it more than once is safe.
type Scheduler interface {
	ScheduleRepeating(interval time.Duration, fn func()) (cancel func())
	AfterFunc(d time.Duration, fn func()) (cancel func())
}
