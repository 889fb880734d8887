// Package metrics provides a prometheus-backed implementation of
// runloop.Metrics: the counters, latency histograms and utilization gauge
// the run loop reports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	runloop "github.com/ssorren/go-async-runloop/runloop"
)

// PrometheusSink implements runloop.Metrics on top of a prometheus.Registerer.
type PrometheusSink struct {
	envelopes     prometheus.Counter
	nullEnvelopes prometheus.Counter
	processes     prometheus.Counter
	windows       prometheus.Counter
	commits       prometheus.Counter

	chooseNs        prometheus.Histogram
	blockNs         prometheus.Histogram
	processNs       prometheus.Histogram
	windowNs        prometheus.Histogram
	commitNs        prometheus.Histogram
	pendingMessages *prometheus.GaugeVec

	utilization prometheus.Gauge
}

// NewPrometheusSink builds a PrometheusSink and registers all of its
// collectors on reg under namespace.
func NewPrometheusSink(reg prometheus.Registerer, namespace string) *PrometheusSink {
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
		reg.MustRegister(c)
		return c
	}
	histogram := func(name, help string) prometheus.Histogram {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   prometheus.ExponentialBuckets(1e5, 2, 16), // 100us .. ~3.3s, in nanoseconds
		})
		reg.MustRegister(h)
		return h
	}

	pendingMessages := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_messages",
		Help:      "Number of envelopes queued but not yet dispatched, per task.",
	}, []string{"task"})
	reg.MustRegister(pendingMessages)

	utilization := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "utilization",
		Help:      "Fraction of the last tick spent doing work rather than blocked.",
	})
	reg.MustRegister(utilization)

	return &PrometheusSink{
		envelopes:       counter("envelopes_total", "Envelopes returned by the consumer."),
		nullEnvelopes:   counter("null_envelopes_total", "Ticks where the consumer had nothing available."),
		processes:       counter("processes_total", "Process dispatches."),
		windows:         counter("windows_total", "Completed window operations."),
		commits:         counter("commits_total", "Completed commit operations."),
		chooseNs:        histogram("choose_nanoseconds", "Latency of Consumer.Choose."),
		blockNs:         histogram("block_nanoseconds", "Time spent parked in blockIfBusy."),
		processNs:       histogram("process_nanoseconds", "Latency from process dispatch to completion."),
		windowNs:        histogram("window_nanoseconds", "Latency of a window operation."),
		commitNs:        histogram("commit_nanoseconds", "Latency of a commit operation."),
		pendingMessages: pendingMessages,
		utilization:     utilization,
	}
}

func (s *PrometheusSink) IncEnvelopes()     { s.envelopes.Inc() }
func (s *PrometheusSink) IncNullEnvelopes() { s.nullEnvelopes.Inc() }
func (s *PrometheusSink) IncProcesses()     { s.processes.Inc() }
func (s *PrometheusSink) IncWindows()       { s.windows.Inc() }
func (s *PrometheusSink) IncCommits()       { s.commits.Inc() }

func (s *PrometheusSink) ObserveChoose(d time.Duration)  { s.chooseNs.Observe(float64(d.Nanoseconds())) }
func (s *PrometheusSink) ObserveBlock(d time.Duration)   { s.blockNs.Observe(float64(d.Nanoseconds())) }
func (s *PrometheusSink) ObserveProcess(d time.Duration) { s.processNs.Observe(float64(d.Nanoseconds())) }
func (s *PrometheusSink) ObserveWindow(d time.Duration)  { s.windowNs.Observe(float64(d.Nanoseconds())) }
func (s *PrometheusSink) ObserveCommit(d time.Duration)  { s.commitNs.Observe(float64(d.Nanoseconds())) }

func (s *PrometheusSink) ObservePendingMessages(task runloop.TaskName, n int) {
	s.pendingMessages.WithLabelValues(string(task)).Set(float64(n))
}

func (s *PrometheusSink) SetUtilization(v float64) { s.utilization.Set(v) }
