// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compute

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Tier selection thresholds over the 0-10 generation-stage score.
const (
	tierHighThreshold   = 8.5
	tierMediumThreshold = 7.0
)

// LocalPoolConfig configures a LocalPool.
type LocalPoolConfig struct {
	// MaxConcurrent bounds simultaneously running tasks. Default: 4.
	MaxConcurrent int

	// EnableResultCache caches results by task content. Default behavior
	// is enabled; set DisableResultCache to turn it off.
	DisableResultCache bool
}

// ApplyDefaults fills zero-valued fields.
func (c *LocalPoolConfig) ApplyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
}

// LocalPool is an in-memory Pool implementation.
//
// # Description
//
// LocalPool tracks queue/active depth per tier, caches results keyed by
// task content, emits the closed set of lifecycle events, and delegates the
// simulation math to its Runner. It backs the CLI and tests; production
// deployments substitute a remote pool behind the same interface.
//
// # Thread Safety
//
// Safe for concurrent use. Counters and the result cache are guarded by an
// internal mutex; the semaphore bounds concurrency.
type LocalPool struct {
	config LocalPoolConfig
	runner Runner
	logger *slog.Logger

	sem chan struct{}

	mu           sync.Mutex
	closed       bool
	queued       int
	activeByTier map[Tier]int
	warmByTier   map[Tier]int
	resultCache  map[string]*Result
	metrics      Metrics

	handlersMu sync.RWMutex
	handlers   map[string]EventHandler
}

// NewLocalPool creates a pool around the given runner.
//
// # Inputs
//
//   - runner: The black-box simulation function. Must not be nil.
//   - config: Pool tuning. Zero values use defaults.
//   - logger: Optional; nil uses slog.Default().
//
// # Outputs
//
//   - *LocalPool: The pool. Never nil on success.
//   - error: ErrNoRunner if runner is nil.
func NewLocalPool(runner Runner, config LocalPoolConfig, logger *slog.Logger) (*LocalPool, error) {
	if runner == nil {
		return nil, ErrNoRunner
	}
	config.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &LocalPool{
		config:       config,
		runner:       runner,
		logger:       logger.With(slog.String("component", "local_pool")),
		sem:          make(chan struct{}, config.MaxConcurrent),
		activeByTier: make(map[Tier]int),
		warmByTier:   make(map[Tier]int),
		resultCache:  make(map[string]*Result),
		handlers:     make(map[string]EventHandler),
	}, nil
}

// SubmitTask runs one task through the queued -> started -> terminal
// lifecycle, serving from the result cache when possible.
func (p *LocalPool) SubmitTask(ctx context.Context, task Task) (*Result, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.queued++
	p.metrics.TasksSubmitted++
	p.mu.Unlock()

	taskID := uuid.NewString()
	p.emit(Event{Kind: EventTaskQueued, TaskID: taskID, Task: task})

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		p.finishTask(task.Tier, false)
		p.recordFailure()
		p.emit(Event{Kind: EventTaskFailed, TaskID: taskID, Task: task, Err: ctx.Err()})
		return nil, ctx.Err()
	}
	defer func() { <-p.sem }()

	p.mu.Lock()
	p.queued--
	p.activeByTier[task.Tier]++
	p.mu.Unlock()

	start := time.Now()
	p.emit(Event{Kind: EventTaskStarted, TaskID: taskID, Task: task})

	key := taskKey(task)
	if !p.config.DisableResultCache {
		p.mu.Lock()
		cached, ok := p.resultCache[key]
		if ok {
			p.metrics.CacheHits++
		}
		p.mu.Unlock()
		if ok {
			hit := *cached
			hit.TaskID = taskID
			hit.FromCache = true
			p.finishTask(task.Tier, true)
			p.emit(Event{Kind: EventCacheHit, TaskID: taskID, Task: task, Result: &hit})
			p.emit(Event{Kind: EventTaskComplete, TaskID: taskID, Task: task, Result: &hit})
			return &hit, nil
		}
	}

	result, err := p.runner(ctx, task)
	elapsed := time.Since(start)
	p.finishTask(task.Tier, true)

	if err != nil {
		p.recordFailure()
		p.emit(Event{Kind: EventTaskFailed, TaskID: taskID, Task: task, Err: err, Duration: elapsed})
		return nil, fmt.Errorf("simulation runner: %w", err)
	}

	result.TaskID = taskID
	result.HypothesisID = task.HypothesisID
	result.Tier = task.Tier
	result.Duration = elapsed

	p.mu.Lock()
	p.metrics.TasksCompleted++
	p.metrics.TotalDuration += elapsed
	if !p.config.DisableResultCache {
		stored := *result
		p.resultCache[key] = &stored
	}
	p.mu.Unlock()

	p.emit(Event{Kind: EventTaskComplete, TaskID: taskID, Task: task, Result: result, Duration: elapsed})
	return result, nil
}

// BatchSubmit runs all tasks with bounded concurrency and returns results
// positionally aligned with the input. Individual failures leave a nil slot
// rather than failing the batch; only context cancellation aborts the whole
// call.
func (p *LocalPool) BatchSubmit(ctx context.Context, tasks []Task) ([]*Result, error) {
	results := make([]*Result, len(tasks))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxConcurrent)

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			res, err := p.SubmitTask(gCtx, task)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				p.logger.Warn("batch task failed",
					slog.String("hypothesis_id", task.HypothesisID),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SelectTierByScore maps a generation-stage score to a fidelity tier:
// >=8.5 high, >=7.0 medium, otherwise low.
func (p *LocalPool) SelectTierByScore(score float64) Tier {
	switch {
	case score >= tierHighThreshold:
		return TierHigh
	case score >= tierMediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// GetUtilization returns a snapshot of current load.
func (p *LocalPool) GetUtilization() Utilization {
	p.mu.Lock()
	defer p.mu.Unlock()

	u := Utilization{
		TotalQueued:  p.queued,
		ActiveByTier: make(map[Tier]int, len(p.activeByTier)),
		WarmByTier:   make(map[Tier]int, len(p.warmByTier)),
	}
	for tier, n := range p.activeByTier {
		u.ActiveByTier[tier] = n
		u.TotalActive += n
	}
	for tier, n := range p.warmByTier {
		u.WarmByTier[tier] = n
	}
	return u
}

// GetMetrics returns cumulative counters.
func (p *LocalPool) GetMetrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// WarmUp pre-provisions count slots at the given tier.
func (p *LocalPool) WarmUp(ctx context.Context, tier Tier, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.warmByTier[tier] += count
	return nil
}

// OnEvent registers a lifecycle observer. The returned func removes it.
func (p *LocalPool) OnEvent(handler EventHandler) (remove func()) {
	id := uuid.NewString()
	p.handlersMu.Lock()
	p.handlers[id] = handler
	p.handlersMu.Unlock()

	return func() {
		p.handlersMu.Lock()
		delete(p.handlers, id)
		p.handlersMu.Unlock()
	}
}

// Close rejects further submissions. Safe to call multiple times.
func (p *LocalPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *LocalPool) emit(event Event) {
	p.handlersMu.RLock()
	defer p.handlersMu.RUnlock()
	for _, h := range p.handlers {
		h(event)
	}
}

// finishTask decrements the queue or active counter for a task leaving the
// pool. started is false when the task never left the queue.
func (p *LocalPool) finishTask(tier Tier, started bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if started {
		if p.activeByTier[tier] > 0 {
			p.activeByTier[tier]--
		}
	} else if p.queued > 0 {
		p.queued--
	}
}

func (p *LocalPool) recordFailure() {
	p.mu.Lock()
	p.metrics.TasksFailed++
	p.mu.Unlock()
}

// taskKey derives the result-cache key from task content, with parameters
// in sorted order so map iteration cannot perturb the key.
func taskKey(task Task) string {
	keys := make([]string, 0, len(task.Parameters))
	for k := range task.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s", task.HypothesisID, task.SimulationType, task.Tier)
	for _, k := range keys {
		fmt.Fprintf(&sb, "|%s=%.6f", k, task.Parameters[k])
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
