// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability exposes Prometheus metrics for the validation
// pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/events"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/score"
)

// Metrics doubles as the score cache's traffic recorder, so a ScoreCache
// built with Recorder: metrics feeds the cache counters directly.
var _ score.CacheStatsRecorder = (*Metrics)(nil)

// =============================================================================
// Prometheus Metrics for the Validation Pipeline
// =============================================================================

// Metrics holds the pipeline's Prometheus instruments, registered against a
// caller-supplied Registerer so tests can use isolated registries.
type Metrics struct {
	// validationsTotal counts finished validation runs.
	// Labels: level (quick, standard, comprehensive), status (passed,
	// failed, timeout)
	validationsTotal *prometheus.CounterVec

	// validationDuration measures validation run wall time.
	// Labels: level
	validationDuration *prometheus.HistogramVec

	// Score-cache traffic counters.
	scoreCacheHits      prometheus.Counter
	scoreCacheMisses    prometheus.Counter
	scoreCacheEvictions prometheus.Counter

	// computeTasks counts pool lifecycle events.
	// Labels: event (task_queued, task_started, task_complete, task_failed,
	// cache_hit)
	computeTasks *prometheus.CounterVec

	// scoreAdjustment tracks the distribution of bounded score deltas.
	scoreAdjustment prometheus.Histogram

	// activeValidations gauges in-flight validation runs.
	activeValidations prometheus.Gauge
}

// NewMetrics registers the pipeline instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		validationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "discovery",
			Subsystem: "validation",
			Name:      "validations_total",
			Help:      "Finished validation runs by level and status",
		}, []string{"level", "status"}),

		validationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "discovery",
			Subsystem: "validation",
			Name:      "duration_seconds",
			Help:      "Validation run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 180},
		}, []string{"level"}),

		scoreCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "discovery",
			Subsystem: "score_cache",
			Name:      "hits_total",
			Help:      "Score cache lookups served from cache",
		}),

		scoreCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "discovery",
			Subsystem: "score_cache",
			Name:      "misses_total",
			Help:      "Score cache lookups that missed or hit an expired entry",
		}),

		scoreCacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "discovery",
			Subsystem: "score_cache",
			Name:      "evictions_total",
			Help:      "Score cache entries evicted by capacity pressure",
		}),

		computeTasks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "discovery",
			Subsystem: "compute",
			Name:      "tasks_total",
			Help:      "Compute pool lifecycle events",
		}, []string{"event"}),

		scoreAdjustment: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "discovery",
			Subsystem: "validation",
			Name:      "score_adjustment",
			Help:      "Distribution of bounded score adjustments",
			Buckets:   []float64{-0.5, -0.3, -0.1, 0, 0.1, 0.2, 0.3, 0.4, 0.5},
		}),

		activeValidations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "discovery",
			Subsystem: "validation",
			Name:      "active",
			Help:      "Validation runs currently in flight",
		}),
	}
}

// =============================================================================
// Recording Functions
// =============================================================================

// RecordValidation records one finished validation run.
//
// # Inputs
//
//   - level: "quick", "standard", or "comprehensive".
//   - status: "passed", "failed", or "timeout".
//   - durationSec: Run duration in seconds.
func (m *Metrics) RecordValidation(level, status string, durationSec float64) {
	m.validationsTotal.WithLabelValues(level, status).Inc()
	m.validationDuration.WithLabelValues(level).Observe(durationSec)
}

// ValidationStarted marks a run entering flight.
func (m *Metrics) ValidationStarted() {
	m.activeValidations.Inc()
}

// ValidationFinished marks a run leaving flight.
func (m *Metrics) ValidationFinished() {
	m.activeValidations.Dec()
}

// RecordCacheHit counts a score-cache hit.
func (m *Metrics) RecordCacheHit() { m.scoreCacheHits.Inc() }

// RecordCacheMiss counts a score-cache miss.
func (m *Metrics) RecordCacheMiss() { m.scoreCacheMisses.Inc() }

// RecordCacheEvictions counts n evicted score-cache entries.
func (m *Metrics) RecordCacheEvictions(n int) {
	m.scoreCacheEvictions.Add(float64(n))
}

// RecordComputeTask counts one pool lifecycle event by wire name.
func (m *Metrics) RecordComputeTask(event string) {
	m.computeTasks.WithLabelValues(event).Inc()
}

// RecordScoreAdjustment observes a bounded score delta.
func (m *Metrics) RecordScoreAdjustment(delta float64) {
	m.scoreAdjustment.Observe(delta)
}

// =============================================================================
// Bus Integration
// =============================================================================

// busAgentID identifies the metrics subscriber on the event bus.
const busAgentID = "observability"

// ObserveBus subscribes the instruments to pipeline bus messages so the
// whole pipeline is instrumented without call-site coupling. The returned
// function removes the subscription.
func (m *Metrics) ObserveBus(bus *events.Bus) (remove func()) {
	subID := bus.Subscribe(busAgentID, []events.Type{
		events.TypeValidationStarted,
		events.TypeValidationComplete,
		events.TypeValidationTimeout,
		events.TypeTaskQueued,
		events.TypeTaskStarted,
		events.TypeTaskComplete,
		events.TypeTaskFailed,
		events.TypeCacheHit,
		events.TypeScoreAdjustment,
	}, m.onMessage)

	return func() {
		_ = bus.Unsubscribe(subID)
	}
}

func (m *Metrics) onMessage(msg events.Message) {
	switch msg.Type {
	case events.TypeValidationStarted:
		m.ValidationStarted()

	case events.TypeValidationComplete:
		m.ValidationFinished()
		if payload, ok := msg.Payload.(events.ValidationLifecyclePayload); ok {
			status := "failed"
			if payload.Passed {
				status = "passed"
			}
			m.RecordValidation(payload.Level, status, payload.DurationMs/1000)
		}

	case events.TypeValidationTimeout:
		m.ValidationFinished()
		if payload, ok := msg.Payload.(events.ValidationLifecyclePayload); ok {
			m.RecordValidation(payload.Level, "timeout", payload.DurationMs/1000)
		}

	case events.TypeTaskQueued, events.TypeTaskStarted, events.TypeTaskComplete,
		events.TypeTaskFailed, events.TypeCacheHit:
		m.RecordComputeTask(msg.Type.String())

	case events.TypeScoreAdjustment:
		if payload, ok := msg.Payload.(events.ScoreAdjustmentPayload); ok {
			m.RecordScoreAdjustment(payload.Delta)
		}
	}
}
