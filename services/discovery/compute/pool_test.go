// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compute

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTask(id string) Task {
	return Task{
		HypothesisID:   id,
		Tier:           TierMedium,
		Priority:       PriorityNormal,
		SimulationType: "solar_pv",
		Parameters: map[string]float64{
			ParamOverallScore: 7.5,
			ParamIterations:   1000,
		},
	}
}

// eventRecorder captures pool events in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func TestNewLocalPool_RequiresRunner(t *testing.T) {
	_, err := NewLocalPool(nil, LocalPoolConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoRunner)
}

func TestLocalPool_SubmitTaskLifecycle(t *testing.T) {
	pool, err := NewLocalPool(HeuristicRunner, LocalPoolConfig{}, nil)
	require.NoError(t, err)

	var rec eventRecorder
	remove := pool.OnEvent(rec.handle)
	defer remove()

	result, err := pool.SubmitTask(context.Background(), testTask("h1"))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "h1", result.HypothesisID)
	assert.NotEmpty(t, result.TaskID)
	assert.True(t, result.Physics.Valid)
	assert.True(t, result.Economics.Viable)
	assert.False(t, result.FromCache)

	assert.Equal(t, []EventKind{EventTaskQueued, EventTaskStarted, EventTaskComplete}, rec.kinds())

	metrics := pool.GetMetrics()
	assert.EqualValues(t, 1, metrics.TasksSubmitted)
	assert.EqualValues(t, 1, metrics.TasksCompleted)
	assert.EqualValues(t, 0, metrics.TasksFailed)
}

func TestLocalPool_ResultCacheEmitsCacheHit(t *testing.T) {
	runs := 0
	runner := func(ctx context.Context, task Task) (*Result, error) {
		runs++
		return HeuristicRunner(ctx, task)
	}
	pool, err := NewLocalPool(runner, LocalPoolConfig{}, nil)
	require.NoError(t, err)

	var rec eventRecorder
	pool.OnEvent(rec.handle)

	first, err := pool.SubmitTask(context.Background(), testTask("h1"))
	require.NoError(t, err)
	second, err := pool.SubmitTask(context.Background(), testTask("h1"))
	require.NoError(t, err)

	assert.Equal(t, 1, runs)
	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.NotEqual(t, first.TaskID, second.TaskID)
	assert.Contains(t, rec.kinds(), EventCacheHit)
	assert.EqualValues(t, 1, pool.GetMetrics().CacheHits)
}

func TestLocalPool_RunnerFailure(t *testing.T) {
	boom := errors.New("solver diverged")
	runner := func(ctx context.Context, task Task) (*Result, error) {
		return nil, boom
	}
	pool, err := NewLocalPool(runner, LocalPoolConfig{}, nil)
	require.NoError(t, err)

	var rec eventRecorder
	pool.OnEvent(rec.handle)

	_, err = pool.SubmitTask(context.Background(), testTask("h1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, rec.kinds(), EventTaskFailed)
	assert.EqualValues(t, 1, pool.GetMetrics().TasksFailed)

	// Failure must not leak active slots.
	u := pool.GetUtilization()
	assert.Equal(t, 0, u.TotalActive)
	assert.Equal(t, 0, u.TotalQueued)
}

func TestLocalPool_BatchSubmitAligned(t *testing.T) {
	fail := errors.New("mesh error")
	runner := func(ctx context.Context, task Task) (*Result, error) {
		if task.HypothesisID == "bad" {
			return nil, fail
		}
		return HeuristicRunner(ctx, task)
	}
	pool, err := NewLocalPool(runner, LocalPoolConfig{MaxConcurrent: 2, DisableResultCache: true}, nil)
	require.NoError(t, err)

	tasks := []Task{testTask("h1"), testTask("bad"), testTask("h3")}
	results, err := pool.BatchSubmit(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "h1", results[0].HypothesisID)
	assert.Nil(t, results[1])
	assert.Equal(t, "h3", results[2].HypothesisID)
}

func TestLocalPool_SelectTierByScore(t *testing.T) {
	pool, err := NewLocalPool(HeuristicRunner, LocalPoolConfig{}, nil)
	require.NoError(t, err)

	assert.Equal(t, TierHigh, pool.SelectTierByScore(9.2))
	assert.Equal(t, TierHigh, pool.SelectTierByScore(8.5))
	assert.Equal(t, TierMedium, pool.SelectTierByScore(7.0))
	assert.Equal(t, TierLow, pool.SelectTierByScore(6.9))
	assert.Equal(t, TierLow, pool.SelectTierByScore(0))
}

func TestLocalPool_WarmUpTracked(t *testing.T) {
	pool, err := NewLocalPool(HeuristicRunner, LocalPoolConfig{}, nil)
	require.NoError(t, err)

	require.NoError(t, pool.WarmUp(context.Background(), TierHigh, 3))
	assert.Equal(t, 3, pool.GetUtilization().WarmByTier[TierHigh])
}

func TestLocalPool_ClosedRejectsWork(t *testing.T) {
	pool, err := NewLocalPool(HeuristicRunner, LocalPoolConfig{}, nil)
	require.NoError(t, err)

	pool.Close()
	pool.Close() // idempotent

	_, err = pool.SubmitTask(context.Background(), testTask("h1"))
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.ErrorIs(t, pool.WarmUp(context.Background(), TierLow, 1), ErrPoolClosed)
}

func TestTaskKey_ParameterOrderInsensitive(t *testing.T) {
	a := testTask("h1")
	a.Parameters = map[string]float64{"alpha": 1, "beta": 2, "gamma": 3}
	b := testTask("h1")
	b.Parameters = map[string]float64{"gamma": 3, "beta": 2, "alpha": 1}

	assert.Equal(t, taskKey(a), taskKey(b))

	b.Parameters["alpha"] = 9
	assert.NotEqual(t, taskKey(a), taskKey(b))
}
