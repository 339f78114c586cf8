// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package compute defines the contract to the physics/economics compute-task
// pool and ships a local in-memory pool implementation.
//
// # Description
//
// The simulation engine itself is a black box behind the Runner function
// type: the pool manages queueing, tier fidelity, result caching, and
// lifecycle events, and delegates the actual physics/economics math to
// whatever Runner it was constructed with.
package compute

import (
	"context"
	"errors"
	"time"
)

// Pool errors.
var (
	// ErrPoolClosed is returned for submissions after Close.
	ErrPoolClosed = errors.New("compute pool is closed")

	// ErrNoRunner is returned when a pool is built without a Runner.
	ErrNoRunner = errors.New("compute pool requires a runner")
)

// Tier is the fidelity/cost level requested from the pool. Higher tiers run
// more sampling iterations and cost more compute.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

// String returns the wire name of the tier.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Priority orders tasks within the pool queue.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String returns the wire name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Task describes one simulation request.
//
// Lifecycle: queued -> started -> complete | failed. The lifecycle is
// observable only through pool events; the task value itself is never
// mutated after submission.
type Task struct {
	HypothesisID   string             `json:"hypothesisId"`
	Tier           Tier               `json:"tier"`
	Priority       Priority           `json:"priority"`
	SimulationType string             `json:"simulationType"`
	Parameters     map[string]float64 `json:"parameters"`
}

// PhysicsOutcome is the physics half of a simulation result.
type PhysicsOutcome struct {
	// Valid reports whether the simulated system respects physical limits.
	Valid bool `json:"valid"`

	// Confidence is the engine's confidence in the verdict, in [0,1].
	Confidence float64 `json:"confidence"`

	// Violations names any detected limit violations.
	Violations []string `json:"violations,omitempty"`
}

// EconomicsOutcome is the economics half of a simulation result.
type EconomicsOutcome struct {
	// Viable reports whether the system clears economic thresholds.
	Viable bool `json:"viable"`

	// Confidence is the engine's confidence in the verdict, in [0,1].
	Confidence float64 `json:"confidence"`

	// LCOEMean is the mean levelized cost of energy, in $/kWh.
	LCOEMean float64 `json:"lcoeMean"`
}

// Result is the pool's response to one task.
type Result struct {
	TaskID       string           `json:"taskId"`
	HypothesisID string           `json:"hypothesisId"`
	Tier         Tier             `json:"tier"`
	Physics      PhysicsOutcome   `json:"physics"`
	Economics    EconomicsOutcome `json:"economics"`
	FromCache    bool             `json:"fromCache"`
	Duration     time.Duration    `json:"-"`
}

// Utilization is a point-in-time snapshot of pool load.
type Utilization struct {
	TotalActive  int          `json:"totalActive"`
	TotalQueued  int          `json:"totalQueued"`
	ActiveByTier map[Tier]int `json:"activeByTier"`
	WarmByTier   map[Tier]int `json:"warmByTier"`
}

// Metrics are cumulative pool counters.
type Metrics struct {
	TasksSubmitted int64         `json:"tasksSubmitted"`
	TasksCompleted int64         `json:"tasksCompleted"`
	TasksFailed    int64         `json:"tasksFailed"`
	CacheHits      int64         `json:"cacheHits"`
	TotalDuration  time.Duration `json:"-"`
}

// EventKind names a pool lifecycle event. The set is closed.
type EventKind int

const (
	EventTaskQueued EventKind = iota
	EventTaskStarted
	EventTaskComplete
	EventTaskFailed
	EventCacheHit
)

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventTaskQueued:
		return "task_queued"
	case EventTaskStarted:
		return "task_started"
	case EventTaskComplete:
		return "task_complete"
	case EventTaskFailed:
		return "task_failed"
	case EventCacheHit:
		return "cache_hit"
	default:
		return "unknown"
	}
}

// Event is one pool lifecycle notification.
type Event struct {
	Kind     EventKind
	TaskID   string
	Task     Task
	Result   *Result
	Err      error
	Duration time.Duration
}

// EventHandler observes pool lifecycle events. Handlers must return quickly;
// they are invoked synchronously on the task goroutine.
type EventHandler func(Event)

// Runner executes the actual simulation for a task. Implementations are
// black boxes to the pool; they must honor ctx cancellation.
type Runner func(ctx context.Context, task Task) (*Result, error)

// Pool is the compute-task pool contract consumed by the bridge.
type Pool interface {
	// SubmitTask runs one task and returns its result.
	SubmitTask(ctx context.Context, task Task) (*Result, error)

	// BatchSubmit runs several tasks in one call. The returned slice is
	// positionally aligned with the input; failed entries are nil.
	BatchSubmit(ctx context.Context, tasks []Task) ([]*Result, error)

	// SelectTierByScore maps a 0-10 hypothesis score to a fidelity tier.
	SelectTierByScore(score float64) Tier

	// GetUtilization returns a snapshot of current load.
	GetUtilization() Utilization

	// GetMetrics returns cumulative counters.
	GetMetrics() Metrics

	// WarmUp pre-provisions count slots at the given tier.
	WarmUp(ctx context.Context, tier Tier, count int) error

	// OnEvent registers a lifecycle observer and returns a remover.
	OnEvent(handler EventHandler) (remove func())
}
