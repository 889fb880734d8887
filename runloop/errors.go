package runloop

import "errors"

// Sentinel errors surfaced by the run loop. Wrap with fmt.Errorf("...: %w",
// Err...) so callers can errors.Is/errors.As through the added context.
var (
	// ErrCallbackTimeout is the error onFailure receives when the
	// callback-timeout watchdog expires a handle.
	ErrCallbackTimeout = errors.New("runloop: callback timed out")
	// ErrMissingPartitionAssignment is fatal: runTasks received an envelope
	// for a partition with no tasks assigned to it.
	ErrMissingPartitionAssignment = errors.New("runloop: no task assigned to partition")
	// ErrLoopInterrupted wraps a cancellation of the context passed to
	// RunLoop.Run, whenever during the run it happens.
	ErrLoopInterrupted = errors.New("runloop: interrupted while waiting")
)
