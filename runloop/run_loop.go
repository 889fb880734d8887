package runloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ssorren/go-async-runloop/logging"
	"github.com/ssorren/go-async-runloop/runloop/sak"
)

// RunLoop is the single-threaded driver: it chooses an envelope, fans it out
// to every interested TaskWorker, runs each worker once, and parks until
// there's reason to re-evaluate.
type RunLoop struct {
	consumer   Consumer
	assignment *Assignment
	sink       *CoordinatorRequestSink
	metrics    Metrics
	scheduler  Scheduler
	logger     *logging.Logger

	mu                sync.Mutex
	cond              *sync.Cond
	shutdownRequested bool
	fatalErr          sak.ErrorBox
}

// NewRunLoop builds a RunLoop over tasks, wiring one TaskWorker per task.
// pool may be nil, in which case window and commit bodies run inline on the
// loop thread.
func NewRunLoop(
	tasks []UserTask,
	cfg Config,
	consumer Consumer,
	offsets OffsetManager,
	metrics Metrics,
	pool WorkerPool,
	scheduler Scheduler,
	logger *logging.Logger,
) *RunLoop {
	cfg.validate()
	if logger == nil {
		logger = logging.NewNop()
	}

	rl := &RunLoop{
		consumer:  consumer,
		metrics:   metrics,
		scheduler: scheduler,
		logger:    logger,
		sink:      newCoordinatorRequestSink(),
	}
	rl.cond = sync.NewCond(&rl.mu)

	workers := make([]*TaskWorker, 0, len(tasks))
	for _, t := range tasks {
		workers = append(workers, newTaskWorker(t, cfg, consumer, offsets, metrics, pool, scheduler, logger, rl, rl.sink))
	}
	rl.assignment = newAssignment(workers)
	return rl
}

// resume wakes the loop thread. Before broadcasting, it checks under the
// wake mutex: if the coordinator sink wants a shutdown, has no pending commit
// requests left, and no task still has a commit owed or a window/commit in
// flight, shutdownRequested is set now, so the loop exits on its next tick.
func (rl *RunLoop) resume() {
	rl.mu.Lock()
	if rl.sink.shutdownRequested() && !rl.sink.hasPendingCommits() {
		owed := false
		for _, w := range rl.assignment.taskOfName {
			w.state.mu.Lock()
			owed = owed || w.state.needCommit || w.state.windowOrCommitInFlight
			w.state.mu.Unlock()
		}
		if !owed {
			rl.shutdownRequested = true
		}
	}
	rl.cond.Broadcast()
	rl.mu.Unlock()
}

// abort records a sticky fatal error. Only the first caller's error is kept;
// the RunLoop observes it on its next tick.
func (rl *RunLoop) abort(err error) {
	if err == nil {
		return
	}
	if rl.fatalErr.Store(err) {
		rl.logger.Errorf("run loop aborting: %v", err)
	}
	rl.resume()
}

// Shutdown requests the loop exit after its current tick's operations
// complete. It does not wait for exit; callers should wait on Run returning.
func (rl *RunLoop) Shutdown() {
	rl.mu.Lock()
	rl.shutdownRequested = true
	rl.cond.Broadcast()
	rl.mu.Unlock()
}

// Run executes the loop until shutdown, a fatal error, or ctx is canceled.
// It returns the sticky fatal error if one was recorded, the error of a
// failed Choose or of an envelope for an unassigned partition, else nil.
func (rl *RunLoop) Run(ctx context.Context) error {
	for _, w := range rl.assignment.orderedNames {
		rl.assignment.taskOfName[w].init()
	}
	defer func() {
		for _, w := range rl.assignment.orderedNames {
			rl.assignment.taskOfName[w].shutdown()
		}
	}()

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go rl.watchContext(ctx, watchCtx)

	for {
		rl.mu.Lock()
		done := rl.shutdownRequested
		rl.mu.Unlock()
		if done {
			return rl.fatalErr.Load()
		}
		if err := rl.fatalErr.Load(); err != nil {
			return err
		}

		tickStart := time.Now()

		envelope, err := rl.consumer.Choose()
		rl.metrics.ObserveChoose(time.Since(tickStart))
		if err != nil {
			return fmt.Errorf("runloop: consumer choose failed: %w", err)
		}

		if err := rl.runTasks(envelope); err != nil {
			return err
		}
		workDur := time.Since(tickStart)

		blockDur := rl.blockIfBusy(envelope)
		if total := workDur + blockDur; total > 0 {
			rl.metrics.SetUtilization(float64(workDur) / float64(total))
		}
	}
}

// runTasks fans an envelope out to every task subscribed to its partition,
// then gives every task one turn, in stable name order.
func (rl *RunLoop) runTasks(envelope Envelope) error {
	if envelope != nil {
		rl.metrics.IncEnvelopes()
		workers, ok := rl.assignment.tasksOfPartition[envelope.Partition()]
		if !ok {
			return fmt.Errorf("%w: %v", ErrMissingPartitionAssignment, envelope.Partition())
		}
		pe := newPendingEnvelope(envelope)
		for _, w := range workers {
			w.enqueue(pe)
		}
	} else {
		rl.metrics.IncNullEnvelopes()
	}

	for _, name := range rl.assignment.orderedNames {
		rl.assignment.taskOfName[name].run()
	}
	return nil
}

// blockIfBusy returns immediately if any task is both ready and has work to
// do; otherwise it parks on the wake condition, timed if envelope was nil
// (bounding idle latency to the consumer's poll interval) or indefinitely if
// it was non-nil (some task has it queued, so progress will only come from
// an external wake). It returns how long it spent parked, for utilization
// accounting.
func (rl *RunLoop) blockIfBusy(envelope Envelope) time.Duration {
	start := time.Now()
	defer func() { rl.metrics.ObserveBlock(time.Since(start)) }()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.anyReadyLocked(envelope) {
		return time.Since(start)
	}
	if rl.shutdownRequested || rl.fatalErr.Load() != nil {
		return time.Since(start)
	}

	if envelope == nil {
		cancel := rl.scheduler.AfterFunc(rl.consumer.PollInterval(), func() {
			rl.mu.Lock()
			rl.cond.Broadcast()
			rl.mu.Unlock()
		})
		rl.cond.Wait()
		cancel()
		return time.Since(start)
	}

	rl.cond.Wait()
	return time.Since(start)
}

func (rl *RunLoop) anyReadyLocked(envelope Envelope) bool {
	for _, name := range rl.assignment.orderedNames {
		w := rl.assignment.taskOfName[name]
		if w.isReady() && (envelope != nil || w.hasPendingOps()) {
			return true
		}
	}
	return false
}

// watchContext treats ctx cancellation as the Go analogue of a wait
// interruption on the loop thread: fatal, same as any other abort.
func (rl *RunLoop) watchContext(ctx context.Context, stop context.Context) {
	select {
	case <-ctx.Done():
		rl.abort(fmt.Errorf("%w: %v", ErrLoopInterrupted, ctx.Err()))
	case <-stop.Done():
	}
}
