// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package score

import (
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/singleflight"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/events"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
)

// AgentID is the evaluator's identity on the event bus.
const AgentID = "score_evaluator"

// Breakthrough gate thresholds (conjunctive; see MeetsBreakthrough).
const (
	gateOverallMin   = 9.0
	gateHighBDNeeded = 5
)

// Evaluator computes hybrid breakthrough scores with result caching.
//
// # Description
//
// Evaluation is pure and deterministic per hypothesis content; the cache is
// keyed by the content hash so semantically-identical hypotheses share one
// entry. Concurrent evaluations of the same key are deduplicated with
// singleflight; batch evaluation additionally processes items strictly
// sequentially so same-key writes cannot race.
//
// # Thread Safety
//
// Safe for concurrent use.
type Evaluator struct {
	cache       *ScoreCache
	elimination EliminationPolicy
	bus         *events.Bus
	logger      *slog.Logger
	flight      singleflight.Group
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithCache injects the score cache. A nil cache disables caching.
func WithCache(c *ScoreCache) EvaluatorOption {
	return func(e *Evaluator) { e.cache = c }
}

// WithEliminationPolicy overrides the batch elimination policy.
func WithEliminationPolicy(p EliminationPolicy) EvaluatorOption {
	return func(e *Evaluator) {
		if p != nil {
			e.elimination = p
		}
	}
}

// WithEvaluatorBus wires score publishing. Every evaluation, cached or
// fresh, is announced as an evaluation_complete message so downstream
// subscribers see the full score stream.
func WithEvaluatorBus(bus *events.Bus) EvaluatorOption {
	return func(e *Evaluator) { e.bus = bus }
}

// WithEvaluatorLogger sets the logger.
func WithEvaluatorLogger(logger *slog.Logger) EvaluatorOption {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEvaluator creates an evaluator. By default it carries a ScoreCache with
// default tuning and a never-eliminate policy.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		cache:       NewScoreCache(CacheConfig{}),
		elimination: NeverEliminate,
		logger:      slog.Default().With(slog.String("component", "score_evaluator")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate scores one hypothesis, serving from cache when possible.
//
// # Inputs
//
//   - h: The hypothesis. Must satisfy the input contract.
//
// # Outputs
//
//   - *HybridBreakthroughScore: The full rubric outcome. Never nil on success.
//   - error: Non-nil only for contract violations (unhashable input).
func (e *Evaluator) Evaluate(h *hypothesis.Hypothesis) (*HybridBreakthroughScore, error) {
	return e.evaluate(h, 0)
}

// evaluate is the shared scoring path; iteration tags the published message.
func (e *Evaluator) evaluate(h *hypothesis.Hypothesis, iteration int) (*HybridBreakthroughScore, error) {
	if err := hypothesis.Validate(h); err != nil {
		return nil, err
	}

	key := hypothesis.ContentHash(h)

	if e.cache != nil {
		if cached := e.cache.Get(key); cached != nil {
			e.publishScore(cached, iteration)
			return cached, nil
		}
	}

	v, err, _ := e.flight.Do(key, func() (any, error) {
		s := e.evaluateUncached(h)
		if e.cache != nil {
			e.cache.Put(key, s)
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	s := v.(*HybridBreakthroughScore)
	e.publishScore(s, iteration)
	return s, nil
}

// publishScore announces a finished evaluation. Cache hits publish too, so
// subscribers like the bridge's auto-queue see every scored hypothesis.
func (e *Evaluator) publishScore(s *HybridBreakthroughScore, iteration int) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(events.TypeEvaluationComplete, AgentID, events.Broadcast,
		events.EvaluationCompletePayload{HypothesisID: s.HypothesisID, Score: s.OverallScore},
		events.PublishOptions{Priority: events.PriorityNormal, Iteration: iteration})
}

// CacheStats exposes the cache counters (zero value when caching is off).
func (e *Evaluator) CacheStats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

// evaluateUncached runs the full rubric. Pure: no I/O, no randomness.
func (e *Evaluator) evaluateUncached(h *hypothesis.Hypothesis) *HybridBreakthroughScore {
	result := &HybridBreakthroughScore{
		HypothesisID: h.ID,
		Dimensions:   make([]DimensionScore, 0, len(allDimensions)),
	}

	for _, d := range allDimensions {
		ds := evaluateDimension(d, h)
		result.Dimensions = append(result.Dimensions, ds)
		if d.IsFoundation() {
			result.FoundationScore += ds.Score
		} else {
			result.BreakthroughScore += ds.Score
		}
	}

	result.FoundationScore = round2(result.FoundationScore)
	result.BreakthroughScore = round2(result.BreakthroughScore)
	result.OverallScore = round2(result.FoundationScore + result.BreakthroughScore)
	result.Tier = ClassifyTier(result.OverallScore)
	result.FSAllPassing = fsAllPassing(result)
	result.MeetsBreakthrough = meetsBreakthrough(result)
	result.Feedback = buildFeedback(result)

	return result
}

// evaluateDimension computes one dimension score from its signal and
// criteria table.
func evaluateDimension(d Dimension, h *hypothesis.Hypothesis) DimensionScore {
	signal := dimensionSignal(d)(h)
	awarded, _ := selectCriterion(d, signal)

	// Scores stay unrounded so Percentage == Score/MaxScore*100 holds
	// exactly; only the subtotals are rounded for presentation.
	weight := d.Weight()
	score := awarded.Fraction * weight
	percentage := awarded.Fraction * 100

	return DimensionScore{
		Dimension:       d,
		Score:           score,
		MaxScore:        weight,
		Percentage:      percentage,
		Passed:          percentage >= passingPercentage,
		Reasoning:       fmt.Sprintf("%s: signal %.1f matched %q", d.Name(), signal, awarded.Label),
		CriteriaMatched: awarded.Label,
	}
}

func dimensionSignal(d Dimension) signalFunc {
	if d.IsFoundation() {
		return foundationSignals[d]
	}
	return breakthroughSignals[d]
}

// fsAllPassing reports whether every foundation dimension passed.
func fsAllPassing(s *HybridBreakthroughScore) bool {
	for _, ds := range s.Dimensions {
		if ds.Dimension.IsFoundation() && !ds.Passed {
			return false
		}
	}
	return true
}

// meetsBreakthrough applies the five conjunctive gates: every foundation
// dimension passing, BD1 and BD6 at or above 80%, at least five of the seven
// breakthrough dimensions passing, and an overall score of at least 9.0.
// A high sum never substitutes for a missed gate.
func meetsBreakthrough(s *HybridBreakthroughScore) bool {
	if !s.FSAllPassing {
		return false
	}
	if bd1 := s.dimension(BD1); bd1 == nil || bd1.Percentage < gatePercentage {
		return false
	}
	if bd6 := s.dimension(BD6); bd6 == nil || bd6.Percentage < gatePercentage {
		return false
	}
	if highBreakthroughCount(s) < gateHighBDNeeded {
		return false
	}
	return s.OverallScore >= gateOverallMin
}

// highBreakthroughCount counts breakthrough dimensions at or above the
// passing line.
func highBreakthroughCount(s *HybridBreakthroughScore) int {
	n := 0
	for _, ds := range s.Dimensions {
		if !ds.Dimension.IsFoundation() && ds.Percentage >= passingPercentage {
			n++
		}
	}
	return n
}

// EvaluateBatch scores hypotheses strictly sequentially and summarizes the
// outcomes.
//
// # Description
//
// Sequential processing is deliberate: hypotheses whose content hashes
// collide must not race their cache writes. The configured elimination
// policy is consulted per hypothesis with the batch size as population.
//
// # Inputs
//
//   - hs: Hypotheses to score.
//   - iteration: The generation-stage round, passed to the elimination policy.
//
// # Outputs
//
//   - []*HybridBreakthroughScore: Positionally aligned scores.
//   - BatchStats: Tier counts, eliminations, min/max/average.
//   - error: Non-nil if any hypothesis violates the input contract.
func (e *Evaluator) EvaluateBatch(hs []*hypothesis.Hypothesis, iteration int) ([]*HybridBreakthroughScore, BatchStats, error) {
	stats := BatchStats{PerTier: make(map[Tier]int)}
	scores := make([]*HybridBreakthroughScore, 0, len(hs))

	sum := 0.0
	for i, h := range hs {
		s, err := e.evaluate(h, iteration)
		if err != nil {
			return nil, BatchStats{}, fmt.Errorf("hypothesis %d: %w", i, err)
		}
		scores = append(scores, s)

		stats.Evaluated++
		stats.PerTier[s.Tier]++
		sum += s.OverallScore
		if stats.Evaluated == 1 || s.OverallScore < stats.MinScore {
			stats.MinScore = s.OverallScore
		}
		if s.OverallScore > stats.MaxScore {
			stats.MaxScore = s.OverallScore
		}
		if e.elimination(s.OverallScore, iteration, len(hs)) {
			stats.Eliminated++
		}
	}

	if stats.Evaluated > 0 {
		stats.AvgScore = round2(sum / float64(stats.Evaluated))
	}

	e.logger.Debug("batch evaluated",
		slog.Int("count", stats.Evaluated),
		slog.Int("eliminated", stats.Eliminated),
		slog.Float64("avg", stats.AvgScore))

	return scores, stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
