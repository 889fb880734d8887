package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsSubmittedWork(t *testing.T) {
	p := New(4)
	var wg sync.WaitGroup
	var ran atomic.Int64

	for i := 0; i < 10; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		})
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool never ran all submitted work")
	}
	assert.EqualValues(t, 10, ran.Load())
}

func TestPool_NeverExceedsConcurrencyLimit(t *testing.T) {
	const limit = 3
	p := New(limit)

	var active atomic.Int64
	var maxActive atomic.Int64
	var wg sync.WaitGroup
	release := make(chan struct{})

	for i := 0; i < 12; i++ {
		wg.Add(1)
		p.Submit(func() {
			defer wg.Done()
			cur := active.Add(1)
			for {
				prev := maxActive.Load()
				if cur <= prev || maxActive.CompareAndSwap(prev, cur) {
					break
				}
			}
			<-release
			active.Add(-1)
		})
	}

	require.Eventually(t, func() bool { return active.Load() == limit }, time.Second, time.Millisecond)
	close(release)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool never drained")
	}
	assert.LessOrEqual(t, maxActive.Load(), int64(limit))
}

func TestPool_SubmitDoesNotBlockWhenSaturated(t *testing.T) {
	p := New(1)
	block := make(chan struct{})
	p.Submit(func() { <-block })
	defer close(block)

	done := make(chan struct{})
	go func() {
		p.Submit(func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Submit blocked the calling goroutine while the pool was saturated")
	}
}
