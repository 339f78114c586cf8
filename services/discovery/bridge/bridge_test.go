// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/compute"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/events"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
)

// stubPool is a controllable compute.Pool for bridge tests.
type stubPool struct {
	mu        sync.Mutex
	submitted []compute.Task
	batches   [][]compute.Task
	warmups   []compute.Tier
	util      compute.Utilization
	metrics   compute.Metrics
	submitErr error
	handlers  []compute.EventHandler

	// submitGate, when set, holds SubmitTask open until closed.
	submitGate chan struct{}
}

func (s *stubPool) SubmitTask(ctx context.Context, task compute.Task) (*compute.Result, error) {
	s.mu.Lock()
	s.submitted = append(s.submitted, task)
	err := s.submitErr
	gate := s.submitGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &compute.Result{
		TaskID:       "task-1",
		HypothesisID: task.HypothesisID,
		Tier:         task.Tier,
		Physics:      compute.PhysicsOutcome{Valid: true, Confidence: 0.8},
		Economics:    compute.EconomicsOutcome{Viable: true, Confidence: 0.7, LCOEMean: 0.08},
	}, nil
}

func (s *stubPool) BatchSubmit(ctx context.Context, tasks []compute.Task) ([]*compute.Result, error) {
	s.mu.Lock()
	s.batches = append(s.batches, tasks)
	s.mu.Unlock()

	results := make([]*compute.Result, len(tasks))
	for i, task := range tasks {
		results[i] = &compute.Result{
			TaskID:       "batch-task",
			HypothesisID: task.HypothesisID,
			Tier:         task.Tier,
			Physics:      compute.PhysicsOutcome{Valid: true, Confidence: 0.8},
		}
	}
	return results, nil
}

func (s *stubPool) SelectTierByScore(score float64) compute.Tier {
	switch {
	case score >= 8.5:
		return compute.TierHigh
	case score >= 7.0:
		return compute.TierMedium
	default:
		return compute.TierLow
	}
}

func (s *stubPool) GetUtilization() compute.Utilization {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.util
}

func (s *stubPool) GetMetrics() compute.Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

func (s *stubPool) WarmUp(ctx context.Context, tier compute.Tier, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warmups = append(s.warmups, tier)
	return nil
}

func (s *stubPool) OnEvent(handler compute.EventHandler) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
	return func() {}
}

func (s *stubPool) emit(ev compute.Event) {
	s.mu.Lock()
	handlers := append([]compute.EventHandler(nil), s.handlers...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

func (s *stubPool) submittedTasks() []compute.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]compute.Task(nil), s.submitted...)
}

func newTestBridge(t *testing.T, pool compute.Pool, config Config) (*Bridge, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	b, err := New(pool, bus, config, nil)
	require.NoError(t, err)
	return b, bus
}

// waitForMessage polls the bus's recent ring for a message of the given
// type.
func waitForMessage(t *testing.T, bus *events.Bus, msgType events.Type) (events.Message, bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, msg := range bus.Recent(0) {
			if msg.Type == msgType {
				return msg, true
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	return events.Message{}, false
}

func TestNew_RequiresPoolAndBus(t *testing.T) {
	bus := events.NewBus()
	_, err := New(nil, bus, Config{}, nil)
	assert.ErrorIs(t, err, ErrNilPool)

	pool := &stubPool{}
	_, err = New(pool, nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestQueueValidation_TierAndPriorityFromScore(t *testing.T) {
	tests := []struct {
		score        float64
		wantTier     compute.Tier
		wantPriority compute.Priority
	}{
		{9.5, compute.TierHigh, compute.PriorityCritical},
		{9.0, compute.TierHigh, compute.PriorityCritical},
		{8.2, compute.TierLow, compute.PriorityHigh}, // below 8.5 tier line, above 8.0 band
		{8.7, compute.TierHigh, compute.PriorityHigh},
		{7.3, compute.TierMedium, compute.PriorityNormal},
		{5.0, compute.TierLow, compute.PriorityLow},
	}

	for _, tt := range tests {
		pool := &stubPool{}
		b, _ := newTestBridge(t, pool, Config{})

		h := &hypothesis.Hypothesis{ID: "hyp-1", OverallScore: tt.score}
		_, err := b.QueueValidation(context.Background(), h, QueueOptions{})
		require.NoError(t, err)

		tasks := pool.submittedTasks()
		require.Len(t, tasks, 1)
		assert.Equal(t, tt.wantTier, tasks[0].Tier, "score %.1f", tt.score)
		assert.Equal(t, tt.wantPriority, tasks[0].Priority, "score %.1f", tt.score)
	}
}

func TestQueueValidation_TierOverride(t *testing.T) {
	pool := &stubPool{}
	b, _ := newTestBridge(t, pool, Config{})

	tier := compute.TierHigh
	h := &hypothesis.Hypothesis{ID: "hyp-1", OverallScore: 3.0}
	_, err := b.QueueValidation(context.Background(), h, QueueOptions{Tier: &tier})
	require.NoError(t, err)

	tasks := pool.submittedTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, compute.TierHigh, tasks[0].Tier)
}

func TestQueueValidation_RejectsMissingID(t *testing.T) {
	b, _ := newTestBridge(t, &stubPool{}, Config{})

	_, err := b.QueueValidation(context.Background(), &hypothesis.Hypothesis{}, QueueOptions{})
	assert.ErrorIs(t, err, hypothesis.ErrInvalidHypothesis)

	_, err = b.QueueValidation(context.Background(), nil, QueueOptions{})
	assert.ErrorIs(t, err, hypothesis.ErrInvalidHypothesis)
}

func TestQueueValidation_PublishesAdjustment(t *testing.T) {
	pool := &stubPool{}
	b, bus := newTestBridge(t, pool, Config{})

	h := &hypothesis.Hypothesis{ID: "hyp-adj", OverallScore: 7.0}
	result, err := b.QueueValidation(context.Background(), h, QueueOptions{})
	require.NoError(t, err)

	msg, ok := waitForMessage(t, bus, events.TypeScoreAdjustment)
	require.True(t, ok, "expected a score_adjustment message")

	payload, ok := msg.Payload.(events.ScoreAdjustmentPayload)
	require.True(t, ok)
	assert.Equal(t, "hyp-adj", payload.HypothesisID)
	assert.Equal(t, b.CalculateScoreAdjustment(result), payload.Delta)
}

func TestQueueValidation_AdjustmentDisabled(t *testing.T) {
	pool := &stubPool{}
	b, bus := newTestBridge(t, pool, Config{DisableAutoScoreAdjustment: true})

	h := &hypothesis.Hypothesis{ID: "hyp-1", OverallScore: 7.0}
	_, err := b.QueueValidation(context.Background(), h, QueueOptions{})
	require.NoError(t, err)

	for _, msg := range bus.Recent(0) {
		assert.NotEqual(t, events.TypeScoreAdjustment, msg.Type)
	}
}

func TestQueueBatchValidation_SingleBatchCall(t *testing.T) {
	pool := &stubPool{}
	b, bus := newTestBridge(t, pool, Config{})

	hs := []*hypothesis.Hypothesis{
		{ID: "hyp-a", OverallScore: 6.0},
		{ID: "hyp-b", OverallScore: 7.5},
		{ID: "hyp-c", OverallScore: 9.2},
	}
	results, err := b.QueueBatchValidation(context.Background(), hs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	pool.mu.Lock()
	batches := pool.batches
	individual := len(pool.submitted)
	pool.mu.Unlock()
	require.Len(t, batches, 1, "expected exactly one batch call")
	assert.Len(t, batches[0], 3)
	assert.Zero(t, individual, "batch must not fan out to SubmitTask")

	// One adjustment per result.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		count := 0
		for _, msg := range bus.Recent(0) {
			if msg.Type == events.TypeScoreAdjustment {
				count++
			}
		}
		if count == 3 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected three score_adjustment messages")
}

func TestQueueBatchValidation_RejectsMissingID(t *testing.T) {
	b, _ := newTestBridge(t, &stubPool{}, Config{})

	_, err := b.QueueBatchValidation(context.Background(), []*hypothesis.Hypothesis{
		{ID: "hyp-a"},
		{},
	})
	assert.ErrorIs(t, err, hypothesis.ErrInvalidHypothesis)
}

func TestCalculateScoreAdjustment(t *testing.T) {
	b, _ := newTestBridge(t, &stubPool{}, Config{})

	tests := []struct {
		name   string
		result compute.Result
		want   float64
	}{
		{
			"valid and viable clamps at upper bound",
			compute.Result{
				Physics:   compute.PhysicsOutcome{Valid: true, Confidence: 0.99},
				Economics: compute.EconomicsOutcome{Viable: true, LCOEMean: 0.03},
			},
			0.5, // raw 0.3+0.1+0.1+0.2+0.1 = 0.8
		},
		{
			"valid with moderate confidence",
			compute.Result{
				Physics:   compute.PhysicsOutcome{Valid: true, Confidence: 0.8},
				Economics: compute.EconomicsOutcome{Viable: false},
			},
			0.2, // 0.3 - 0.1
		},
		{
			"valid high confidence without super bonus",
			compute.Result{
				Physics:   compute.PhysicsOutcome{Valid: true, Confidence: 0.92},
				Economics: compute.EconomicsOutcome{Viable: false},
			},
			0.3, // 0.3 + 0.1 - 0.1
		},
		{
			"invalid low confidence clamps at lower bound",
			compute.Result{
				Physics:   compute.PhysicsOutcome{Valid: false, Confidence: 0.3},
				Economics: compute.EconomicsOutcome{Viable: false},
			},
			-0.5, // raw -0.3-0.2-0.1 = -0.6
		},
		{
			"invalid but confident",
			compute.Result{
				Physics:   compute.PhysicsOutcome{Valid: false, Confidence: 0.8},
				Economics: compute.EconomicsOutcome{Viable: true, LCOEMean: 0.08},
			},
			-0.1, // -0.3 + 0.2
		},
		{
			"cheap energy bonus",
			compute.Result{
				Physics:   compute.PhysicsOutcome{Valid: true, Confidence: 0.5},
				Economics: compute.EconomicsOutcome{Viable: true, LCOEMean: 0.04},
			},
			0.5, // raw 0.3+0.2+0.1 = 0.6
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, b.CalculateScoreAdjustment(&tt.result), 0.0001)
		})
	}
}

func TestWarmUp_BracketedByEvents(t *testing.T) {
	pool := &stubPool{}
	b, bus := newTestBridge(t, pool, Config{})

	require.NoError(t, b.WarmUp(context.Background(), compute.TierMedium, 3))

	started, ok := waitForMessage(t, bus, events.TypeWarmupStarted)
	require.True(t, ok)
	payload, ok := started.Payload.(events.WarmupPayload)
	require.True(t, ok)
	assert.Equal(t, "medium", payload.Tier)
	assert.Equal(t, 3, payload.Count)

	_, ok = waitForMessage(t, bus, events.TypeWarmupComplete)
	assert.True(t, ok)
}

func TestForwardEvent_Priorities(t *testing.T) {
	pool := &stubPool{}
	b, bus := newTestBridge(t, pool, Config{})
	b.Start()
	defer b.Stop()

	task := compute.Task{HypothesisID: "hyp-fw", Tier: compute.TierMedium}
	pool.emit(compute.Event{Kind: compute.EventTaskQueued, TaskID: "t1", Task: task})
	pool.emit(compute.Event{Kind: compute.EventTaskStarted, TaskID: "t1", Task: task})
	pool.emit(compute.Event{Kind: compute.EventTaskComplete, TaskID: "t1", Task: task})

	queued, ok := waitForMessage(t, bus, events.TypeTaskQueued)
	require.True(t, ok)
	assert.Equal(t, events.PriorityNormal, queued.Priority)

	started, ok := waitForMessage(t, bus, events.TypeTaskStarted)
	require.True(t, ok)
	assert.Equal(t, events.PriorityHigh, started.Priority)

	complete, ok := waitForMessage(t, bus, events.TypeTaskComplete)
	require.True(t, ok)
	assert.Equal(t, events.PriorityCritical, complete.Priority)

	payload, ok := complete.Payload.(events.TaskLifecyclePayload)
	require.True(t, ok)
	assert.Equal(t, "hyp-fw", payload.HypothesisID)
	assert.Equal(t, "medium", payload.Tier)
}

func TestForwardEvent_FailureBroadcastsError(t *testing.T) {
	pool := &stubPool{}
	b, bus := newTestBridge(t, pool, Config{})
	b.Start()
	defer b.Stop()

	pool.emit(compute.Event{
		Kind:   compute.EventTaskFailed,
		TaskID: "t-fail",
		Task:   compute.Task{HypothesisID: "hyp-fail"},
		Err:    errors.New("runner exploded"),
	})

	msg, ok := waitForMessage(t, bus, events.TypeError)
	require.True(t, ok)
	assert.Equal(t, events.PriorityCritical, msg.Priority)

	payload, ok := msg.Payload.(events.ErrorPayload)
	require.True(t, ok)
	assert.Contains(t, payload.Message, "hyp-fail")
	assert.True(t, payload.Recoverable)
}

func TestAutoQueue_EligibleEvaluation(t *testing.T) {
	pool := &stubPool{}
	b, bus := newTestBridge(t, pool, Config{})
	b.Start()
	defer b.Stop()

	bus.Publish(events.TypeEvaluationComplete, "score_evaluator", events.Broadcast,
		events.EvaluationCompletePayload{HypothesisID: "hyp-auto", Score: 7.2},
		events.PublishOptions{Iteration: 3})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tasks := pool.submittedTasks()
		if len(tasks) == 1 {
			assert.Equal(t, "hyp-auto", tasks[0].HypothesisID)
			assert.Equal(t, compute.TierMedium, tasks[0].Tier)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected an auto-queued task")
}

func TestAutoQueue_SubmissionDoesNotHoldShutdown(t *testing.T) {
	gate := make(chan struct{})
	pool := &stubPool{submitGate: gate}
	defer close(gate)

	b, bus := newTestBridge(t, pool, Config{})
	b.Start()

	bus.Publish(events.TypeEvaluationComplete, "score_evaluator", events.Broadcast,
		events.EvaluationCompletePayload{HypothesisID: "hyp-held", Score: 7.2},
		events.PublishOptions{Iteration: 3})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(pool.submittedTasks()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Len(t, pool.submittedTasks(), 1)

	// The submission is still held open by the gate; stopping the bridge
	// must not wait for it.
	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Stop blocked behind an in-flight auto-queued submission")
	}
}

func TestAutoQueue_IneligibleEvaluations(t *testing.T) {
	pool := &stubPool{}
	b, bus := newTestBridge(t, pool, Config{})
	b.Start()
	defer b.Stop()

	// Below the score threshold.
	bus.Publish(events.TypeEvaluationComplete, "score_evaluator", events.Broadcast,
		events.EvaluationCompletePayload{HypothesisID: "hyp-low", Score: 5.9},
		events.PublishOptions{Iteration: 3})

	// Too early an iteration.
	bus.Publish(events.TypeEvaluationComplete, "score_evaluator", events.Broadcast,
		events.EvaluationCompletePayload{HypothesisID: "hyp-early", Score: 8.0},
		events.PublishOptions{Iteration: 1})

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, pool.submittedTasks())
}

func TestStatusLoop_PublishesOnlyUnderLoad(t *testing.T) {
	pool := &stubPool{}
	b, bus := newTestBridge(t, pool, Config{PublishPoolStatusInterval: 10 * time.Millisecond})
	b.Start()
	defer b.Stop()

	// Idle pool: no status messages.
	time.Sleep(60 * time.Millisecond)
	for _, msg := range bus.Recent(0) {
		assert.NotEqual(t, events.TypePoolStatus, msg.Type)
	}

	pool.mu.Lock()
	pool.util = compute.Utilization{
		TotalActive:  2,
		ActiveByTier: map[compute.Tier]int{compute.TierHigh: 2},
	}
	pool.metrics = compute.Metrics{TasksCompleted: 5}
	pool.mu.Unlock()

	msg, ok := waitForMessage(t, bus, events.TypePoolStatus)
	require.True(t, ok, "expected a pool_status message under load")

	payload, ok := msg.Payload.(events.PoolStatusPayload)
	require.True(t, ok)
	assert.Equal(t, 2, payload.TotalActive)
	assert.Equal(t, int64(5), payload.TasksCompleted)
	assert.Equal(t, 2, payload.ByTier["high"])
}

func TestStartStop_Idempotent(t *testing.T) {
	pool := &stubPool{}
	b, bus := newTestBridge(t, pool, Config{PublishPoolStatusInterval: 10 * time.Millisecond})

	b.Stop() // before Start: no-op

	b.Start()
	b.Start()
	assert.Equal(t, 1, bus.SubscriberCount())

	b.Stop()
	b.Stop()
	assert.Equal(t, 0, bus.SubscriberCount())
}

func TestUtilizationAndMetricsPassThrough(t *testing.T) {
	pool := &stubPool{}
	pool.util = compute.Utilization{TotalQueued: 7}
	pool.metrics = compute.Metrics{TasksSubmitted: 11}

	b, _ := newTestBridge(t, pool, Config{})
	assert.Equal(t, 7, b.Utilization().TotalQueued)
	assert.Equal(t, int64(11), b.Metrics().TasksSubmitted)
}
