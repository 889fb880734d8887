// Package schedule provides the periodic-timer thread and callback-timeout
// watchdog the run loop needs, built on a swappable clock so tests can
// advance virtual time deterministically instead of sleeping on wall time.
package schedule

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler drives repeating ticks (window/commit) and one-shot deadlines
// (callback timeouts) off a single clock.Clock.
type Scheduler struct {
	clock clock.Clock
}

// New builds a Scheduler over c. Passing nil uses the real wall clock.
func New(c clock.Clock) *Scheduler {
	if c == nil {
		c = clock.New()
	}
	return &Scheduler{clock: c}
}

// ScheduleRepeating calls fn every interval until the returned cancel func is
// called. An interval <= 0 schedules nothing and returns a no-op cancel.
func (s *Scheduler) ScheduleRepeating(interval time.Duration, fn func()) func() {
	if interval <= 0 {
		return func() {}
	}
	ticker := s.clock.Ticker(interval)
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

// AfterFunc calls fn once, after d. Calling the returned cancel func before
// fn fires prevents it from firing at all.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) func() {
	if d < 0 {
		d = 0
	}
	t := s.clock.AfterFunc(d, fn)
	var once sync.Once
	return func() { once.Do(func() { t.Stop() }) }
}
