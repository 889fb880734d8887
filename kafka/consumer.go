// Package kafka provides the franz-go-backed implementations of
// runloop.Consumer and runloop.OffsetManager: the multiplexed consumer the
// run loop treats as a black box.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ssorren/go-async-runloop/runloop"
)

// Record adapts a *kgo.Record to runloop.Envelope.
type Record struct {
	rec *kgo.Record
}

// Partition returns the record's topic-partition as a runloop.Partition.
func (r Record) Partition() runloop.Partition {
	return runloop.Partition{Topic: r.rec.Topic, Num: r.rec.Partition}
}

// Offset returns the record's offset within its partition.
func (r Record) Offset() int64 { return r.rec.Offset }

// Raw returns the underlying franz-go record, for user tasks that need the
// key/value/headers.
func (r Record) Raw() *kgo.Record { return r.rec }

// Consumer is a runloop.Consumer backed by a *kgo.Client. It maintains a
// small per-partition buffer of fetched-but-not-yet-chosen records and
// pauses fetching for a partition once a record from it is buffered —
// exactly the same pause/resume idiom the teacher's partitionWorker uses
// around state-store bootstrap, here repurposed as flow control: fetching
// for a partition stays paused until TryUpdate finds its buffer empty.
// Records already buffered for a partition are handed out by Choose without
// waiting for a TryUpdate between them.
type Consumer struct {
	client       *kgo.Client
	pollInterval time.Duration

	mu       sync.Mutex
	buffered map[runloop.Partition][]*kgo.Record
	paused   map[runloop.Partition]bool
	order    []runloop.Partition
	rrCursor int
}

// NewConsumer wraps client. pollInterval bounds how long the RunLoop's
// blockIfBusy waits after a Choose returns nothing.
func NewConsumer(client *kgo.Client, pollInterval time.Duration) *Consumer {
	return &Consumer{
		client:       client,
		pollInterval: pollInterval,
		buffered:     make(map[runloop.Partition][]*kgo.Record),
		paused:       make(map[runloop.Partition]bool),
	}
}

// Choose returns the next buffered envelope without blocking, or nil if none
// is available, and removes it from the buffer. Fetching for its partition
// stays paused until the caller (the RunLoop) calls TryUpdate once a task
// actually fetches it.
func (c *Consumer) Choose() (runloop.Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if env := c.nextBufferedLocked(); env != nil {
		return env, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	fetches := c.client.PollFetches(ctx)
	for _, fe := range fetches.Errors() {
		// The zero timeout has already expired; with nothing fetched, the
		// poll reports that as an error, which only means nothing is
		// available right now.
		if errors.Is(fe.Err, context.DeadlineExceeded) {
			continue
		}
		return nil, fmt.Errorf("kafka: poll fetches: %w", fe.Err)
	}

	fetches.EachRecord(func(rec *kgo.Record) {
		p := runloop.Partition{Topic: rec.Topic, Num: rec.Partition}
		c.buffered[p] = append(c.buffered[p], rec)
		if !c.paused[p] {
			c.paused[p] = true
			c.order = append(c.order, p)
			c.client.PauseFetchPartitions(map[string][]int32{p.Topic: {p.Num}})
		}
	})

	return c.nextBufferedLocked(), nil
}

// nextBufferedLocked pops one record from the next partition in round-robin
// order that still has buffered records, so a bursty partition can't starve
// its neighbors. Caller must hold c.mu.
func (c *Consumer) nextBufferedLocked() runloop.Envelope {
	for i := 0; i < len(c.order); i++ {
		idx := (c.rrCursor + i) % len(c.order)
		p := c.order[idx]
		recs := c.buffered[p]
		if len(recs) == 0 {
			continue
		}
		rec := recs[0]
		c.buffered[p] = recs[1:]
		c.rrCursor = (idx + 1) % len(c.order)
		return Record{rec: rec}
	}
	return nil
}

// TryUpdate resumes fetching for partition once Choose has handed out every
// record buffered for it; while any remain buffered it does nothing. Choose
// does not wait for TryUpdate between buffered records, so several
// envelopes of one partition can be outstanding at once.
func (c *Consumer) TryUpdate(partition runloop.Partition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.buffered[partition]) > 0 {
		return nil
	}
	if !c.paused[partition] {
		return nil
	}
	delete(c.paused, partition)
	for i, p := range c.order {
		if p == partition {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.client.ResumeFetchPartitions(map[string][]int32{partition.Topic: {partition.Num}})
	return nil
}

// PollInterval returns the idle-wait bound configured at construction.
func (c *Consumer) PollInterval() time.Duration { return c.pollInterval }
