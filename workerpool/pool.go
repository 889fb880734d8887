// Package workerpool provides a bounded-concurrency Submit(func()) pool for
// running window and commit bodies off the run loop's thread.
package workerpool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool runs submitted work on its own goroutine, gated so that at most
// maxConcurrent jobs run at once across the whole pool.
type Pool struct {
	sem *semaphore.Weighted
}

// New builds a Pool that allows at most maxConcurrent jobs to run
// simultaneously.
func New(maxConcurrent int64) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pool{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Submit queues fn to run on its own goroutine once a slot is free. Submit
// never blocks the caller: the wait for a free slot happens on the spawned
// goroutine, not before it's spawned, so callers on the run loop's thread
// are never parked here.
func (p *Pool) Submit(fn func()) {
	go func() {
		if err := p.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		fn()
	}()
}
