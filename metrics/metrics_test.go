package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ssorren/go-async-runloop/runloop"
)

func TestPrometheusSink_CountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg, "test")

	sink.IncEnvelopes()
	sink.IncEnvelopes()
	sink.IncNullEnvelopes()
	sink.IncProcesses()
	sink.IncWindows()
	sink.IncCommits()

	assert.Equal(t, float64(2), testutil.ToFloat64(sink.envelopes))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.nullEnvelopes))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.processes))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.windows))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.commits))
}

func TestPrometheusSink_HistogramsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg, "test")

	sink.ObserveChoose(100 * time.Microsecond)
	sink.ObserveBlock(time.Millisecond)
	sink.ObserveProcess(time.Millisecond)
	sink.ObserveWindow(time.Millisecond)
	sink.ObserveCommit(time.Millisecond)

	assert.EqualValues(t, 1, testutil.CollectAndCount(reg, "test_choose_nanoseconds"))
	assert.EqualValues(t, 1, testutil.CollectAndCount(reg, "test_block_nanoseconds"))
}

func TestPrometheusSink_PendingMessagesAndUtilizationGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg, "test")

	sink.ObservePendingMessages(runloop.TaskName("t1"), 5)
	assert.Equal(t, float64(5), testutil.ToFloat64(sink.pendingMessages.WithLabelValues("t1")))

	sink.SetUtilization(0.75)
	assert.Equal(t, 0.75, testutil.ToFloat64(sink.utilization))
}

func TestPrometheusSink_RegistersAllCollectorsWithoutPanicking(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() { NewPrometheusSink(reg, "another") })
}
