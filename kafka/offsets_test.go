package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssorren/go-async-runloop/runloop"
)

func TestOffsetManager_IdempotentForRepeatedEqualOffset(t *testing.T) {
	m := NewOffsetManager(nil)
	key := offsetKey{task: "t1", partition: runloop.Partition{Topic: "t", Num: 0}}
	m.highWater[key] = 5

	err := m.Update("t1", runloop.Partition{Topic: "t", Num: 0}, 5)
	require.NoError(t, err, "a repeated equal offset must be a no-op, never touching the client")
}

func TestOffsetManager_RejectsRegression(t *testing.T) {
	m := NewOffsetManager(nil)
	key := offsetKey{task: "t1", partition: runloop.Partition{Topic: "t", Num: 0}}
	m.highWater[key] = 10

	err := m.Update("t1", runloop.Partition{Topic: "t", Num: 0}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset regression")
}

func TestOffsetManager_TracksHighWaterPerTaskAndPartition(t *testing.T) {
	m := NewOffsetManager(nil)
	p := runloop.Partition{Topic: "t", Num: 0}
	m.highWater[offsetKey{task: "a", partition: p}] = 5

	// "a"'s high water mark is keyed by task as well as partition, so a
	// different task on the same partition has no mark of its own yet and is
	// not checked against "a"'s.
	_, seen := m.highWater[offsetKey{task: "b", partition: p}]
	assert.False(t, seen)
}
