package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ssorren/go-async-runloop/runloop"
)

func TestRecord_AdaptsToEnvelope(t *testing.T) {
	r := Record{rec: &kgo.Record{Topic: "t", Partition: 2, Offset: 42}}
	assert.Equal(t, runloop.Partition{Topic: "t", Num: 2}, r.Partition())
	assert.EqualValues(t, 42, r.Offset())
	assert.Same(t, r.rec, r.Raw())
}

func TestConsumer_NextBufferedLocked_RoundRobinsAcrossPartitions(t *testing.T) {
	p0 := runloop.Partition{Topic: "t", Num: 0}
	p1 := runloop.Partition{Topic: "t", Num: 1}

	c := &Consumer{
		buffered: map[runloop.Partition][]*kgo.Record{
			p0: {{Topic: "t", Partition: 0, Offset: 1}, {Topic: "t", Partition: 0, Offset: 2}},
			p1: {{Topic: "t", Partition: 1, Offset: 10}},
		},
		paused: map[runloop.Partition]bool{p0: true, p1: true},
		order:  []runloop.Partition{p0, p1},
	}

	first := c.nextBufferedLocked().(Record)
	assert.Equal(t, p0, first.Partition())
	assert.EqualValues(t, 1, first.Offset())

	second := c.nextBufferedLocked().(Record)
	assert.Equal(t, p1, second.Partition())
	assert.EqualValues(t, 10, second.Offset())

	third := c.nextBufferedLocked().(Record)
	assert.Equal(t, p0, third.Partition())
	assert.EqualValues(t, 2, third.Offset())

	assert.Nil(t, c.nextBufferedLocked(), "buffers are drained")
}

func TestConsumer_TryUpdate_NoopWhileRecordsRemainBuffered(t *testing.T) {
	p := runloop.Partition{Topic: "t", Num: 0}
	c := &Consumer{
		buffered: map[runloop.Partition][]*kgo.Record{p: {{Topic: "t", Partition: 0, Offset: 1}}},
		paused:   map[runloop.Partition]bool{p: true},
		order:    []runloop.Partition{p},
	}

	require.NoError(t, c.TryUpdate(p))
	assert.True(t, c.paused[p], "must stay paused while a buffered record is still outstanding")
}

func TestConsumer_TryUpdate_NoopWhenPartitionNotPaused(t *testing.T) {
	p := runloop.Partition{Topic: "t", Num: 0}
	c := &Consumer{
		buffered: map[runloop.Partition][]*kgo.Record{},
		paused:   map[runloop.Partition]bool{},
	}

	require.NoError(t, c.TryUpdate(p))
}
