package runloop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ssorren/go-async-runloop/logging"
)

// contractViolationGrace is how long a callback may sit Pending, with no
// CallbackTimeoutMs configured, before TaskWorker logs a diagnostic warning.
// A missing completion is otherwise left as a hang: this never invents a
// default completion, it only surfaces the contract violation in logs.
const contractViolationGrace = 5 * time.Minute

// runLoopSignal is the callback interface a TaskWorker uses to reach back
// into its owning RunLoop: a narrow interface instead of a back-pointer to
// the concrete RunLoop, so a worker can only resume or abort the loop, never
// reach into its internals.
type runLoopSignal interface {
	resume()
	abort(err error)
}

// TaskWorker wraps a UserTask: it owns the task's TaskState and
// CallbackReorderBuffer, and implements process/window/commit dispatch plus
// the completion and failure listeners.
type TaskWorker struct {
	name    TaskName
	task    UserTask
	state   *TaskState
	reorder *CallbackReorderBuffer

	consumer Consumer
	offsets  OffsetManager
	metrics  Metrics
	pool     WorkerPool
	scheduler Scheduler
	logger   *logging.Logger
	signal   runLoopSignal
	sink     *CoordinatorRequestSink

	windowMs        time.Duration
	commitMs        time.Duration
	callbackTimeout time.Duration

	seq       atomic.Int64
	cancelFns []func()
}

func newTaskWorker(
	task UserTask,
	cfg Config,
	consumer Consumer,
	offsets OffsetManager,
	metrics Metrics,
	pool WorkerPool,
	scheduler Scheduler,
	logger *logging.Logger,
	signal runLoopSignal,
	sink *CoordinatorRequestSink,
) *TaskWorker {
	name := task.TaskName()
	return &TaskWorker{
		name:            name,
		task:            task,
		state:           newTaskState(name, cfg.MaxConcurrency, sink),
		reorder:         newCallbackReorderBuffer(),
		consumer:        consumer,
		offsets:         offsets,
		metrics:         metrics,
		pool:            pool,
		scheduler:       scheduler,
		logger:          logger,
		signal:          signal,
		sink:            sink,
		windowMs:        time.Duration(cfg.WindowMs) * time.Millisecond,
		commitMs:        time.Duration(cfg.CommitMs) * time.Millisecond,
		callbackTimeout: time.Duration(cfg.CallbackTimeoutMs) * time.Millisecond,
	}
}

// Name returns the task's stable identifier.
func (w *TaskWorker) Name() TaskName { return w.name }

// init schedules the worker's periodic window and commit ticks, if
// configured. Called once, by RunLoop, before the first tick.
func (w *TaskWorker) init() {
	if w.windowMs > 0 && w.task.IsWindowable() {
		cancel := w.scheduler.ScheduleRepeating(w.windowMs, func() {
			w.state.setNeedWindow()
			w.signal.resume()
		})
		w.cancelFns = append(w.cancelFns, cancel)
	}
	if w.commitMs > 0 {
		cancel := w.scheduler.ScheduleRepeating(w.commitMs, func() {
			w.state.setNeedCommit()
			w.signal.resume()
		})
		w.cancelFns = append(w.cancelFns, cancel)
	}
}

// shutdown cancels this worker's periodic ticks. Called once, by RunLoop, in
// its teardown.
func (w *TaskWorker) shutdown() {
	for _, cancel := range w.cancelFns {
		cancel()
	}
}

func (w *TaskWorker) isReady() bool       { return w.state.isReady() }
func (w *TaskWorker) hasPendingOps() bool { return w.state.hasPendingOps() }

// enqueue appends a PendingEnvelope to this worker's queue. Only ever called
// from the loop thread, during RunLoop.runTasks.
func (w *TaskWorker) enqueue(pe *PendingEnvelope) {
	w.state.pushPending(pe)
	w.metrics.ObservePendingMessages(w.name, w.state.pendingLen())
}

// run consults TaskState.nextOp and dispatches exactly one operation, or
// does nothing if none is ready. Only ever called from the loop thread.
func (w *TaskWorker) run() {
	switch w.state.nextOp() {
	case OpCommit:
		w.runCommit()
	case OpWindow:
		w.runWindow()
	case OpProcess:
		w.runProcess()
	}
}

// fetchEnvelope pops the head PendingEnvelope and, if this worker is the
// first of a broadcast partition's subscribers to fetch it, advances the
// consumer's cursor for that partition exactly once. Only ever called from
// the loop thread.
func (w *TaskWorker) fetchEnvelope() *PendingEnvelope {
	pe := w.state.popPending()
	if pe == nil {
		return nil
	}
	w.metrics.ObservePendingMessages(w.name, w.state.pendingLen())
	if pe.markProcessed() {
		if err := w.consumer.TryUpdate(pe.Envelope().Partition()); err != nil {
			w.signal.abort(fmt.Errorf("runloop: consumer tryUpdate failed: %w", err))
		}
	}
	return pe
}

func (w *TaskWorker) runProcess() {
	pe := w.fetchEnvelope()
	if pe == nil {
		return
	}
	envelope := pe.Envelope()
	coordinator := newCoordinator(w.name)
	w.metrics.IncProcesses()
	w.task.Process(context.Background(), envelope, coordinator, w.newCallbackFactory(envelope, coordinator))
}

// newCallbackFactory builds the CallbackFactory handed to UserTask.Process
// for one dispatch. Each invocation of the returned factory increments
// messagesInFlight, mints a CallbackHandle with the next sequence number,
// and arms the timeout watchdog (or, absent a configured timeout, a
// diagnostic-only grace period timer).
func (w *TaskWorker) newCallbackFactory(envelope Envelope, coordinator *Coordinator) CallbackFactory {
	return func() CompletionFunc {
		w.state.incInFlight()
		seq := w.seq.Add(1) - 1
		handle := newCallbackHandle(seq, envelope, coordinator)

		var cancelWatchdog func()
		if w.callbackTimeout > 0 {
			cancelWatchdog = w.scheduler.AfterFunc(w.callbackTimeout, func() {
				w.onFailure(handle, fmt.Errorf("%w: task %s seq %d", ErrCallbackTimeout, w.name, seq))
			})
		} else {
			cancelWatchdog = w.scheduler.AfterFunc(contractViolationGrace, func() {
				if handle.State() == CallbackPending {
					w.logger.Warnf(
						"task %s: callback for partition %v offset %d still pending after %s; "+
							"possible contract violation (factory invoked, never completed)",
						w.name, envelope.Partition(), envelope.Offset(), contractViolationGrace,
					)
				}
			})
		}

		return func(err error) {
			if cancelWatchdog != nil {
				cancelWatchdog()
			}
			if err != nil {
				w.onFailure(handle, err)
				return
			}
			w.onComplete(handle)
		}
	}
}

// onComplete is the success listener: it decrements in-flight, retires the
// handle's sequence number, and — if that retirement advanced the
// contiguous prefix — commits the last retired handle's offset and merges
// its coordinator into the CoordinatorRequestSink.
func (w *TaskWorker) onComplete(handle *CallbackHandle) {
	if !handle.transition(CallbackCompleted) {
		// Duplicate completion on an already-settled handle: ignored
		// silently.
		return
	}
	w.state.decInFlight()
	w.metrics.ObserveProcess(time.Since(handle.timeCreated))

	last, advanced := w.reorder.retire(handle)
	if !advanced {
		w.signal.resume()
		return
	}
	if err := w.offsets.Update(w.name, last.envelope.Partition(), last.envelope.Offset()); err != nil {
		w.signal.abort(fmt.Errorf("runloop: offset update failed: %w", err))
		return
	}
	w.sink.update(last.coordinator)
	w.signal.resume()
}

// onFailure is the failure listener. It never advances offsets: the failure
// point remains the replay position.
func (w *TaskWorker) onFailure(handle *CallbackHandle, err error) {
	target := CallbackFailed
	if errors.Is(err, ErrCallbackTimeout) {
		target = CallbackTimedOut
	}
	if !handle.transition(target) {
		return
	}
	w.state.decInFlight()
	w.signal.abort(err)
	w.signal.resume()
}

func (w *TaskWorker) runWindow() {
	w.state.startWindowOrCommit(false)
	coordinator := newCoordinator(w.name)
	start := time.Now()
	run := func() {
		defer func() {
			w.state.finishWindowOrCommit()
			w.signal.resume()
		}()
		if err := w.task.Window(coordinator); err != nil {
			w.signal.abort(fmt.Errorf("runloop: task %s window failed: %w", w.name, err))
			return
		}
		w.metrics.IncWindows()
		w.metrics.ObserveWindow(time.Since(start))
		w.sink.update(coordinator)
	}
	w.submit(run)
}

func (w *TaskWorker) runCommit() {
	w.state.startWindowOrCommit(true)
	start := time.Now()
	run := func() {
		defer func() {
			w.state.finishWindowOrCommit()
			w.signal.resume()
		}()
		if err := w.task.Commit(); err != nil {
			w.signal.abort(fmt.Errorf("runloop: task %s commit failed: %w", w.name, err))
			return
		}
		w.metrics.IncCommits()
		w.metrics.ObserveCommit(time.Since(start))
	}
	w.submit(run)
}

func (w *TaskWorker) submit(run func()) {
	if w.pool != nil {
		w.pool.Submit(run)
		return
	}
	run()
}
