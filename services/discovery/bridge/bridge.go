// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package bridge adapts the compute-task pool to the event bus.
//
// # Description
//
// The Bridge is the only component that talks to the compute pool directly.
// It translates pool lifecycle callbacks into bus messages, auto-enqueues
// tasks when upstream evaluation scores cross a threshold, derives bounded
// score adjustments from task results, and periodically broadcasts pool
// utilization while work is in flight.
//
// # Thread Safety
//
// Bridge is safe for concurrent use. Start and Stop are idempotent.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/compute"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/events"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
)

// AgentID is the bridge's identity on the event bus.
const AgentID = "compute_bridge"

// Bridge construction errors.
var (
	ErrNilPool = errors.New("bridge requires a compute pool")
	ErrNilBus  = errors.New("bridge requires an event bus")
)

// Score bands mapping the 0-10 hypothesis score to task priority.
const (
	priorityCriticalMin = 9.0
	priorityHighMin     = 8.0
	priorityNormalMin   = 7.0
)

// Config tunes bridge behavior. The zero value is usable after
// ApplyDefaults.
type Config struct {
	// AutoQueueThreshold is the minimum evaluation score that triggers an
	// automatic compute submission. Default: 6.0.
	AutoQueueThreshold float64

	// AutoQueueStartIteration is the first generation-stage iteration at
	// which auto-queueing becomes eligible. Default: 2.
	AutoQueueStartIteration int

	// PublishPoolStatusInterval is the cadence of pool status broadcasts.
	// Default: 5s. Status is published only while work is in flight.
	PublishPoolStatusInterval time.Duration

	// DisableAutoScoreAdjustment suppresses score-adjustment messages after
	// queued validations. Default behavior publishes them.
	DisableAutoScoreAdjustment bool

	// SimulationType labels submitted tasks. Default: "energy_system".
	SimulationType string
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.AutoQueueThreshold == 0 {
		c.AutoQueueThreshold = 6.0
	}
	if c.AutoQueueStartIteration <= 0 {
		c.AutoQueueStartIteration = 2
	}
	if c.PublishPoolStatusInterval <= 0 {
		c.PublishPoolStatusInterval = 5 * time.Second
	}
	if c.SimulationType == "" {
		c.SimulationType = "energy_system"
	}
}

// QueueOptions carries the optional fields of QueueValidation.
type QueueOptions struct {
	// Tier overrides the score-based tier selection when non-nil.
	Tier *compute.Tier

	// SimulationType overrides the configured default when non-empty.
	SimulationType string

	// Parameters are merged over the hypothesis-derived task parameters.
	Parameters map[string]float64
}

// Bridge connects the compute pool to the event bus.
type Bridge struct {
	pool   compute.Pool
	bus    *events.Bus
	config Config
	logger *slog.Logger

	mu           sync.Mutex
	started      bool
	done         chan struct{}
	removeEvents func()
	autoQueueSub string
}

// New creates a stopped bridge. Call Start to wire event forwarding,
// auto-queueing, and the status broadcast.
//
// # Inputs
//
//   - pool: The compute pool. Must not be nil.
//   - bus: The event bus. Must not be nil.
//   - config: Bridge tuning. Zero values use defaults.
//   - logger: Optional; nil uses slog.Default().
func New(pool compute.Pool, bus *events.Bus, config Config, logger *slog.Logger) (*Bridge, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	if bus == nil {
		return nil, ErrNilBus
	}
	config.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		pool:   pool,
		bus:    bus,
		config: config,
		logger: logger.With(slog.String("component", "compute_bridge")),
	}, nil
}

// Start wires the pool event forwarder, the auto-queue subscription, and the
// status broadcast loop. Safe to call multiple times; only the first call
// has effect.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return
	}
	b.started = true
	b.done = make(chan struct{})
	b.removeEvents = b.pool.OnEvent(b.forwardEvent)
	b.autoQueueSub = b.bus.Subscribe(AgentID,
		[]events.Type{events.TypeEvaluationComplete}, b.onEvaluationComplete)
	go b.statusLoop(b.done)

	b.logger.Info("bridge started",
		slog.Duration("status_interval", b.config.PublishPoolStatusInterval))
}

// Stop cancels the status loop and removes the subscriptions. Safe to call
// multiple times and before Start.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return
	}
	b.started = false
	close(b.done)
	b.removeEvents()
	if err := b.bus.Unsubscribe(b.autoQueueSub); err != nil {
		b.logger.Warn("unsubscribe failed", slog.String("error", err.Error()))
	}

	b.logger.Info("bridge stopped")
}

// QueueValidation submits one compute task for a hypothesis.
//
// # Description
//
// The task tier defaults to the pool's score-based selector unless
// overridden; priority follows the score band (>=9 critical, >=8 high,
// >=7 normal, else low). When auto score adjustment is enabled, the result
// is converted into a bounded score-adjustment message before returning.
//
// # Inputs
//
//   - ctx: Cancels the submission.
//   - h: The hypothesis to validate. Must carry an ID.
//   - opts: Optional overrides. Zero value is valid.
//
// # Outputs
//
//   - *compute.Result: The simulation result. Nil on error.
//   - error: Pool or contract errors.
func (b *Bridge) QueueValidation(ctx context.Context, h *hypothesis.Hypothesis, opts QueueOptions) (*compute.Result, error) {
	if h == nil || h.ID == "" {
		return nil, fmt.Errorf("queue validation: %w", hypothesis.ErrInvalidHypothesis)
	}

	result, err := b.pool.SubmitTask(ctx, b.buildTask(h, opts))
	if err != nil {
		return nil, fmt.Errorf("queue validation for %s: %w", h.ID, err)
	}

	if !b.config.DisableAutoScoreAdjustment {
		b.publishAdjustment(result)
	}
	return result, nil
}

// QueueBatchValidation submits all hypotheses through the pool's batch API
// in a single call. The returned slice is positionally aligned with the
// input; failed entries are nil. One score-adjustment message is published
// per delivered result when auto score adjustment is enabled.
func (b *Bridge) QueueBatchValidation(ctx context.Context, hs []*hypothesis.Hypothesis) ([]*compute.Result, error) {
	tasks := make([]compute.Task, len(hs))
	for i, h := range hs {
		if h == nil || h.ID == "" {
			return nil, fmt.Errorf("queue batch validation at index %d: %w", i, hypothesis.ErrInvalidHypothesis)
		}
		tasks[i] = b.buildTask(h, QueueOptions{})
	}

	results, err := b.pool.BatchSubmit(ctx, tasks)
	if err != nil {
		return nil, fmt.Errorf("queue batch validation: %w", err)
	}

	if !b.config.DisableAutoScoreAdjustment {
		for _, result := range results {
			if result != nil {
				b.publishAdjustment(result)
			}
		}
	}
	return results, nil
}

// CalculateScoreAdjustment derives a bounded score delta from a compute
// result.
//
// # Description
//
// Physics validity contributes +0.3 (plus +0.1 above 0.9 confidence and a
// further +0.1 above 0.95); invalidity contributes -0.3 (a further -0.2
// below 0.5 confidence). Economic viability contributes +0.2 (plus +0.1
// when the mean LCOE is under $0.05/kWh); non-viability contributes -0.1.
// The sum is clamped to [-0.5, 0.5] so a single result cannot swing a
// hypothesis score disproportionately.
func (b *Bridge) CalculateScoreAdjustment(result *compute.Result) float64 {
	delta := 0.0

	if result.Physics.Valid {
		delta += 0.3
		if result.Physics.Confidence > 0.9 {
			delta += 0.1
		}
		if result.Physics.Confidence > 0.95 {
			delta += 0.1
		}
	} else {
		delta -= 0.3
		if result.Physics.Confidence < 0.5 {
			delta -= 0.2
		}
	}

	if result.Economics.Viable {
		delta += 0.2
		if result.Economics.LCOEMean < 0.05 {
			delta += 0.1
		}
	} else {
		delta -= 0.1
	}

	if delta > 0.5 {
		delta = 0.5
	}
	if delta < -0.5 {
		delta = -0.5
	}
	return delta
}

// WarmUp pre-provisions pool capacity at a tier, bracketed by
// warmup_started and warmup_complete messages. A failed warm-up publishes a
// recoverable error notice instead of the completion message.
func (b *Bridge) WarmUp(ctx context.Context, tier compute.Tier, count int) error {
	payload := events.WarmupPayload{Tier: tier.String(), Count: count}
	b.bus.Publish(events.TypeWarmupStarted, AgentID, events.Broadcast, payload,
		events.PublishOptions{Priority: events.PriorityNormal})

	if err := b.pool.WarmUp(ctx, tier, count); err != nil {
		b.bus.PublishError(AgentID, fmt.Sprintf("warm-up at tier %s failed: %v", tier, err), true)
		return fmt.Errorf("warm up tier %s: %w", tier, err)
	}

	b.bus.Publish(events.TypeWarmupComplete, AgentID, events.Broadcast, payload,
		events.PublishOptions{Priority: events.PriorityNormal})
	return nil
}

// Utilization passes through the pool's load snapshot.
func (b *Bridge) Utilization() compute.Utilization {
	return b.pool.GetUtilization()
}

// Metrics passes through the pool's cumulative counters.
func (b *Bridge) Metrics() compute.Metrics {
	return b.pool.GetMetrics()
}

// buildTask maps a hypothesis onto a task descriptor, applying overrides.
func (b *Bridge) buildTask(h *hypothesis.Hypothesis, opts QueueOptions) compute.Task {
	tier := b.pool.SelectTierByScore(h.OverallScore)
	if opts.Tier != nil {
		tier = *opts.Tier
	}

	simType := b.config.SimulationType
	if opts.SimulationType != "" {
		simType = opts.SimulationType
	}

	params := map[string]float64{
		compute.ParamOverallScore: h.OverallScore,
		compute.ParamNovelty:      h.NoveltyScore,
		compute.ParamFeasibility:  h.FeasibilityScore,
	}
	for k, v := range opts.Parameters {
		params[k] = v
	}

	return compute.Task{
		HypothesisID:   h.ID,
		Tier:           tier,
		Priority:       priorityForScore(h.OverallScore),
		SimulationType: simType,
		Parameters:     params,
	}
}

func (b *Bridge) publishAdjustment(result *compute.Result) {
	delta := b.CalculateScoreAdjustment(result)
	reason := fmt.Sprintf("physics valid=%t conf=%.2f; economics viable=%t lcoe=%.3f",
		result.Physics.Valid, result.Physics.Confidence,
		result.Economics.Viable, result.Economics.LCOEMean)

	b.bus.Publish(events.TypeScoreAdjustment, AgentID, events.Broadcast,
		events.ScoreAdjustmentPayload{
			HypothesisID: result.HypothesisID,
			Delta:        delta,
			Reason:       reason,
		},
		events.PublishOptions{Priority: events.PriorityHigh})
}

// forwardEvent republishes a pool lifecycle event as a bus message.
// Failures broadcast as recoverable error notices rather than task_failed
// mirrors, so every consumer sees them.
func (b *Bridge) forwardEvent(ev compute.Event) {
	payload := events.TaskLifecyclePayload{
		TaskID:       ev.TaskID,
		HypothesisID: ev.Task.HypothesisID,
		Tier:         ev.Task.Tier.String(),
		DurationMs:   float64(ev.Duration) / float64(time.Millisecond),
	}

	switch ev.Kind {
	case compute.EventTaskQueued:
		b.bus.Publish(events.TypeTaskQueued, AgentID, events.Broadcast, payload,
			events.PublishOptions{Priority: events.PriorityNormal})
	case compute.EventTaskStarted:
		b.bus.Publish(events.TypeTaskStarted, AgentID, events.Broadcast, payload,
			events.PublishOptions{Priority: events.PriorityHigh})
	case compute.EventTaskComplete:
		b.bus.Publish(events.TypeTaskComplete, AgentID, events.Broadcast, payload,
			events.PublishOptions{Priority: events.PriorityCritical})
	case compute.EventCacheHit:
		b.bus.Publish(events.TypeCacheHit, AgentID, events.Broadcast, payload,
			events.PublishOptions{Priority: events.PriorityNormal})
	case compute.EventTaskFailed:
		b.bus.PublishError(AgentID,
			fmt.Sprintf("task %s for hypothesis %s failed: %v", ev.TaskID, ev.Task.HypothesisID, ev.Err),
			true)
	}
}

// onEvaluationComplete auto-queues a compute task when the upstream score
// clears the threshold at an eligible iteration. Submission is detached and
// fire-and-forget; the handler never waits on the simulation, and the
// outcome arrives through the normal event forwarding path.
func (b *Bridge) onEvaluationComplete(msg events.Message) {
	payload, ok := msg.Payload.(events.EvaluationCompletePayload)
	if !ok {
		return
	}
	if payload.Score < b.config.AutoQueueThreshold || msg.Iteration < b.config.AutoQueueStartIteration {
		return
	}

	task := compute.Task{
		HypothesisID:   payload.HypothesisID,
		Tier:           b.pool.SelectTierByScore(payload.Score),
		Priority:       priorityForScore(payload.Score),
		SimulationType: b.config.SimulationType,
		Parameters:     map[string]float64{compute.ParamOverallScore: payload.Score},
	}

	go func() {
		if _, err := b.pool.SubmitTask(context.Background(), task); err != nil {
			b.logger.Warn("auto-queued task failed",
				slog.String("hypothesis_id", payload.HypothesisID),
				slog.String("error", err.Error()))
		}
	}()
}

// statusLoop broadcasts pool utilization on the configured interval while
// any work is active or queued. Idle ticks publish nothing.
func (b *Bridge) statusLoop(done <-chan struct{}) {
	ticker := time.NewTicker(b.config.PublishPoolStatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			u := b.pool.GetUtilization()
			if u.TotalActive == 0 && u.TotalQueued == 0 {
				continue
			}
			m := b.pool.GetMetrics()

			byTier := make(map[string]int, len(u.ActiveByTier))
			for tier, n := range u.ActiveByTier {
				byTier[tier.String()] = n
			}

			b.bus.Publish(events.TypePoolStatus, AgentID, events.Broadcast,
				events.PoolStatusPayload{
					TotalActive:    u.TotalActive,
					TotalQueued:    u.TotalQueued,
					ByTier:         byTier,
					TasksCompleted: m.TasksCompleted,
					TasksFailed:    m.TasksFailed,
					CacheHits:      m.CacheHits,
				},
				events.PublishOptions{Priority: events.PriorityLow})
		}
	}
}

func priorityForScore(score float64) compute.Priority {
	switch {
	case score >= priorityCriticalMin:
		return compute.PriorityCritical
	case score >= priorityHighMin:
		return compute.PriorityHigh
	case score >= priorityNormalMin:
		return compute.PriorityNormal
	default:
		return compute.PriorityLow
	}
}
