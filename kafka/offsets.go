package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ssorren/go-async-runloop/runloop"
)

// OffsetManager commits progress offsets through a *kgo.Client. It tracks a
// high-water mark per (task, partition) so a caller accidentally passing a
// non-increasing offset is rejected rather than silently regressing
// committed progress.
type OffsetManager struct {
	client *kgo.Client

	mu        sync.Mutex
	highWater map[offsetKey]int64
}

type offsetKey struct {
	task      runloop.TaskName
	partition runloop.Partition
}

// NewOffsetManager wraps client.
func NewOffsetManager(client *kgo.Client) *OffsetManager {
	return &OffsetManager{client: client, highWater: make(map[offsetKey]int64)}
}

// Update commits offset+1 (the next offset to read) for task's consumption
// of partition. It's idempotent for a repeated equal offset and rejects any
// offset lower than one already committed for this (task, partition).
func (m *OffsetManager) Update(task runloop.TaskName, partition runloop.Partition, offset int64) error {
	key := offsetKey{task: task, partition: partition}

	m.mu.Lock()
	prev, seen := m.highWater[key]
	if seen && offset < prev {
		m.mu.Unlock()
		return fmt.Errorf("kafka: offset regression for task %s partition %v: %d < %d", task, partition, offset, prev)
	}
	if seen && offset == prev {
		m.mu.Unlock()
		return nil
	}
	m.highWater[key] = offset
	m.mu.Unlock()

	rec := &kgo.Record{Topic: partition.Topic, Partition: partition.Num, Offset: offset + 1}
	return m.client.CommitRecords(context.Background(), rec)
}
