// Copyright 2026 shopfloor-dev
// SPDX-License-Identifier: Apache-2.0

// Package telemetry implements the metrics and batch-telemetry
// publisher: Prometheus histograms/counters for pipeline step
// duration, chunk-scan duration, and batch duration, plus an MQTT
// publisher for the batch summary.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Monitor holds every metric the scheduler core emits. It takes an
// explicit *prometheus.Registry instead of registering on the
// process-wide default so batch-driven tests can build an isolated
// Monitor per test run without colliding on global registration.
type Monitor struct {
	stepRunTimer       *prometheus.HistogramVec
	chunkScanTimer     prometheus.Histogram
	batchRunTimer      prometheus.Histogram
	jobsScheduledTotal *prometheus.CounterVec
	shiftLoadGauge     *prometheus.GaugeVec
}

// NewMonitor builds a Monitor and registers its collectors on reg.
func NewMonitor(reg *prometheus.Registry) *Monitor {
	m := &Monitor{
		stepRunTimer: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobscheduler_pipeline_step_run_duration_seconds",
			Help:    "Duration of one scheduling pipeline step (per routing operation).",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		chunkScanTimer: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobscheduler_chunk_scan_duration_seconds",
			Help:    "Duration of findNextAvailableChunk's forward scan.",
			Buckets: prometheus.DefBuckets,
		}),
		batchRunTimer: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobscheduler_batch_run_duration_seconds",
			Help:    "Duration of one schedule-all batch run.",
			Buckets: prometheus.DefBuckets,
		}),
		jobsScheduledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobscheduler_jobs_scheduled_total",
			Help: "Number of jobs placed by the batch driver, by outcome.",
		}, []string{"outcome"}),
		shiftLoadGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobscheduler_shift_load",
			Help: "Current scheduled-hours load per shift, as tracked by the shift capacity manager.",
		}, []string{"shift"}),
	}
	reg.MustRegister(m.stepRunTimer, m.chunkScanTimer, m.batchRunTimer, m.jobsScheduledTotal, m.shiftLoadGauge)
	return m
}

// ObserveStep records how long placing one routing operation took.
func (m *Monitor) ObserveStep(step string, d time.Duration) {
	m.stepRunTimer.WithLabelValues(step).Observe(d.Seconds())
}

// ObserveChunkScan records one findNextAvailableChunk invocation's wall time.
func (m *Monitor) ObserveChunkScan(d time.Duration) {
	m.chunkScanTimer.Observe(d.Seconds())
}

// ObserveBatch records a full schedule-all batch's duration.
func (m *Monitor) ObserveBatch(d time.Duration) {
	m.batchRunTimer.Observe(d.Seconds())
}

// CountJobScheduled increments the scheduled/failed counter.
func (m *Monitor) CountJobScheduled(outcome string) {
	m.jobsScheduledTotal.WithLabelValues(outcome).Inc()
}

// SetShiftLoad records the shift capacity manager's current load
// snapshot for shift (1 or 2).
func (m *Monitor) SetShiftLoad(shift int, hours float64) {
	m.shiftLoadGauge.WithLabelValues(shiftLabel(shift)).Set(hours)
}

func shiftLabel(shift int) string {
	switch shift {
	case 1:
		return "1"
	case 2:
		return "2"
	default:
		return "unknown"
	}
}
