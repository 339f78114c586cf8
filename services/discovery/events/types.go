// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package events provides the typed publish/subscribe bus that connects the
// validation pipeline's components.
//
// # Description
//
// The bus routes immutable Messages between agents. The message-type set is
// closed: every kind the pipeline can emit is a declared Type constant, and
// payloads are concrete structs rather than ad hoc metadata maps, so a new
// message kind is a compile-time change rather than a runtime discovery.
//
// # Thread Safety
//
// Bus is safe for concurrent use. Handlers run on their own goroutines and
// must not assume any delivery order across types.
package events

import "time"

// Broadcast is the target that reaches every subscriber.
const Broadcast = "broadcast"

// Type identifies a message kind. The set is closed; exhaustive switches
// over Type are expected to cover every constant below.
type Type int

const (
	// TypeTaskQueued mirrors a compute pool task entering the queue.
	TypeTaskQueued Type = iota

	// TypeTaskStarted mirrors a compute pool task beginning execution.
	TypeTaskStarted

	// TypeTaskComplete mirrors a compute pool task finishing successfully.
	TypeTaskComplete

	// TypeTaskFailed mirrors a compute pool task failing.
	TypeTaskFailed

	// TypeCacheHit mirrors a compute pool result served from its cache.
	TypeCacheHit

	// TypeEvaluationComplete is published by the upstream scoring stage when
	// a hypothesis finishes an evaluation round.
	TypeEvaluationComplete

	// TypeScoreAdjustment carries a bounded score delta derived from a
	// compute result.
	TypeScoreAdjustment

	// TypeValidationStarted brackets the start of a validation run.
	TypeValidationStarted

	// TypeValidationComplete carries a terminal validation result.
	TypeValidationComplete

	// TypeValidationTimeout reports a validation run that hit its budget.
	TypeValidationTimeout

	// TypeValidationFailed reports an unexpected validation error.
	TypeValidationFailed

	// TypePoolStatus carries periodic compute pool utilization.
	TypePoolStatus

	// TypeWarmupStarted brackets the start of a pool warm-up.
	TypeWarmupStarted

	// TypeWarmupComplete brackets the end of a pool warm-up.
	TypeWarmupComplete

	// TypeError carries a component error notice.
	TypeError
)

// String returns the wire name of the type.
func (t Type) String() string {
	switch t {
	case TypeTaskQueued:
		return "task_queued"
	case TypeTaskStarted:
		return "task_started"
	case TypeTaskComplete:
		return "task_complete"
	case TypeTaskFailed:
		return "task_failed"
	case TypeCacheHit:
		return "cache_hit"
	case TypeEvaluationComplete:
		return "evaluation_complete"
	case TypeScoreAdjustment:
		return "score_adjustment"
	case TypeValidationStarted:
		return "validation_started"
	case TypeValidationComplete:
		return "validation_complete"
	case TypeValidationTimeout:
		return "validation_timeout"
	case TypeValidationFailed:
		return "validation_failed"
	case TypePoolStatus:
		return "pool_status"
	case TypeWarmupStarted:
		return "warmup_started"
	case TypeWarmupComplete:
		return "warmup_complete"
	case TypeError:
		return "error"
	default:
		return "unknown"
	}
}

// Priority orders message importance for downstream consumers. The bus
// itself delivers all priorities identically; priority is routing metadata.
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

// Message is one routed bus message. Messages are immutable once published;
// handlers must not modify them.
type Message struct {
	// ID uniquely identifies the message.
	ID string `json:"id"`

	// Type is the closed message kind.
	Type Type `json:"type"`

	// SourceAgent identifies the publisher.
	SourceAgent string `json:"sourceAgent"`

	// Target is a subscriber agent ID, or Broadcast.
	Target string `json:"target"`

	// Payload is one of the typed payload structs declared in this package.
	Payload any `json:"payload"`

	// Priority is routing metadata for consumers.
	Priority Priority `json:"priority"`

	// Iteration tags the generation-stage round that produced the message.
	Iteration int `json:"iteration"`

	// Metadata carries optional string annotations.
	Metadata map[string]string `json:"metadata,omitempty"`

	// PublishedAt is when the bus accepted the message.
	PublishedAt time.Time `json:"publishedAt"`
}

// -----------------------------------------------------------------------------
// Payload variants
// -----------------------------------------------------------------------------

// TaskLifecyclePayload accompanies the task_* and cache_hit message types.
type TaskLifecyclePayload struct {
	TaskID       string  `json:"taskId"`
	HypothesisID string  `json:"hypothesisId"`
	Tier         string  `json:"tier"`
	DurationMs   float64 `json:"durationMs,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// EvaluationCompletePayload is published by the upstream scoring stage.
type EvaluationCompletePayload struct {
	HypothesisID string  `json:"hypothesisId"`
	Score        float64 `json:"score"`
}

// ScoreAdjustmentPayload carries a bounded delta for a hypothesis score.
type ScoreAdjustmentPayload struct {
	HypothesisID string  `json:"hypothesisId"`
	Delta        float64 `json:"delta"`
	Reason       string  `json:"reason"`
}

// ValidationLifecyclePayload accompanies the validation_* message types.
type ValidationLifecyclePayload struct {
	HypothesisID string  `json:"hypothesisId"`
	Level        string  `json:"level"`
	OverallScore float64 `json:"overallScore,omitempty"`
	Passed       bool    `json:"passed,omitempty"`
	DurationMs   float64 `json:"durationMs,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// PoolStatusPayload carries periodic pool utilization and metrics.
type PoolStatusPayload struct {
	TotalActive    int            `json:"totalActive"`
	TotalQueued    int            `json:"totalQueued"`
	ByTier         map[string]int `json:"byTier,omitempty"`
	TasksCompleted int64          `json:"tasksCompleted"`
	TasksFailed    int64          `json:"tasksFailed"`
	CacheHits      int64          `json:"cacheHits"`
}

// WarmupPayload brackets pool warm-up runs.
type WarmupPayload struct {
	Tier  string `json:"tier"`
	Count int    `json:"count"`
}

// ErrorPayload accompanies TypeError messages.
type ErrorPayload struct {
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}
