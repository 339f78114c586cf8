// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/bridge"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/compute"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/events"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
)

// AgentID is the engine's identity on the event bus.
const AgentID = "validation_engine"

// Auto-level selection thresholds over the self-reported overall score.
const (
	autoComprehensiveMin = 8.5
	autoStandardMin      = 7.0
)

// ComputeBridge is the slice of the bridge the engine consumes. A nil
// bridge degrades physics/economics to the fallback policy.
type ComputeBridge interface {
	QueueValidation(ctx context.Context, h *hypothesis.Hypothesis, opts bridge.QueueOptions) (*compute.Result, error)
	QueueBatchValidation(ctx context.Context, hs []*hypothesis.Hypothesis) ([]*compute.Result, error)
}

// Engine runs the validation pipeline.
//
// # Thread Safety
//
// Safe for concurrent use; the engine holds no per-run mutable state.
type Engine struct {
	config     Config
	bridge     ComputeBridge
	literature LiteratureValidator
	fallback   FallbackPolicy
	bus        *events.Bus
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithBridge wires the compute bridge. Without it every run uses the
// fallback policy.
func WithBridge(b ComputeBridge) Option {
	return func(e *Engine) { e.bridge = b }
}

// WithBus wires lifecycle event publishing.
func WithBus(bus *events.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithLiteratureValidator replaces the built-in evidence-derived validator.
func WithLiteratureValidator(v LiteratureValidator) Option {
	return func(e *Engine) { e.literature = v }
}

// WithFallbackPolicy replaces the score-heuristic fallback.
func WithFallbackPolicy(p FallbackPolicy) Option {
	return func(e *Engine) { e.fallback = p }
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a validation engine.
func NewEngine(config Config, opts ...Option) (*Engine, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validation config: %w", err)
	}

	e := &Engine{
		config:     config,
		literature: NewEvidenceLiteratureValidator(),
		fallback:   NewScoreHeuristicFallback(),
		logger:     slog.Default().With(slog.String("component", "validation_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ValidateHypothesis runs the four sub-checks for one hypothesis at the
// given level.
//
// # Description
//
// Physics, economics, literature (when level-enabled), and quality run
// concurrently and race the level's wall-clock budget. On expiry the engine
// abandons the in-flight checks and returns a terminal failed result with a
// timeout warning; it never blocks past the budget and never returns an
// error for timeouts or sub-check failures. Only malformed input (missing
// ID) is an error.
func (e *Engine) ValidateHypothesis(ctx context.Context, h *hypothesis.Hypothesis, level Level) (*ValidationResult, error) {
	if h == nil || h.ID == "" {
		if e.bus != nil {
			e.bus.Publish(events.TypeValidationFailed, AgentID, events.Broadcast,
				events.ValidationLifecyclePayload{Level: level.String(), Error: "missing hypothesis id"},
				events.PublishOptions{Priority: events.PriorityHigh})
		}
		return nil, fmt.Errorf("validate hypothesis: %w", hypothesis.ErrInvalidHypothesis)
	}

	cfg := e.config.levelConfigFor(level)
	start := time.Now()

	if e.bus != nil {
		e.bus.Publish(events.TypeValidationStarted, AgentID, events.Broadcast,
			events.ValidationLifecyclePayload{HypothesisID: h.ID, Level: level.String()},
			events.PublishOptions{Priority: events.PriorityNormal})
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	resCh := make(chan *ValidationResult, 1)
	go func() {
		resCh <- e.runChecks(runCtx, h, level, cfg, start)
	}()

	select {
	case result := <-resCh:
		if e.bus != nil {
			e.bus.Publish(events.TypeValidationComplete, AgentID, events.Broadcast,
				events.ValidationLifecyclePayload{
					HypothesisID: h.ID,
					Level:        level.String(),
					OverallScore: result.OverallScore,
					Passed:       result.Passed,
					DurationMs:   result.DurationMs,
				},
				events.PublishOptions{Priority: events.PriorityHigh})
		}
		return result, nil

	case <-runCtx.Done():
		result := e.timeoutResult(h, level, cfg, start)
		if e.bus != nil {
			e.bus.Publish(events.TypeValidationTimeout, AgentID, events.Broadcast,
				events.ValidationLifecyclePayload{
					HypothesisID: h.ID,
					Level:        level.String(),
					DurationMs:   result.DurationMs,
				},
				events.PublishOptions{Priority: events.PriorityCritical})
		}
		e.logger.Warn("validation timed out",
			slog.String("hypothesis_id", h.ID),
			slog.String("level", level.String()),
			slog.Duration("budget", cfg.Timeout))
		return result, nil
	}
}

// ValidateBatch validates several hypotheses at one level.
//
// # Description
//
// At the quick level with more than one hypothesis and a wired bridge, all
// compute submissions go through the bridge's single batch call and the
// per-item results are reconstructed from the batch response. Otherwise
// each hypothesis is validated independently and concurrently. The returned
// slice is positionally aligned with the input.
func (e *Engine) ValidateBatch(ctx context.Context, hs []*hypothesis.Hypothesis, level Level) ([]*ValidationResult, error) {
	for i, h := range hs {
		if h == nil || h.ID == "" {
			return nil, fmt.Errorf("validate batch at index %d: %w", i, hypothesis.ErrInvalidHypothesis)
		}
	}

	if level == LevelQuick && len(hs) > 1 && e.bridge != nil {
		return e.validateBatchQuick(ctx, hs)
	}

	results := make([]*ValidationResult, len(hs))
	g, gCtx := errgroup.WithContext(ctx)
	for i, h := range hs {
		i, h := i, h
		g.Go(func() error {
			result, err := e.ValidateHypothesis(gCtx, h, level)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// validateBatchQuick reconstructs quick-level results from one batch
// compute submission. Missing batch slots degrade to the fallback policy.
// The submission races the quick budget the same way single runs do; on
// expiry the in-flight batch is abandoned and every item gets a terminal
// timeout result.
func (e *Engine) validateBatchQuick(ctx context.Context, hs []*hypothesis.Hypothesis) ([]*ValidationResult, error) {
	cfg := e.config.levelConfigFor(LevelQuick)
	start := time.Now()

	if e.bus != nil {
		for _, h := range hs {
			e.bus.Publish(events.TypeValidationStarted, AgentID, events.Broadcast,
				events.ValidationLifecyclePayload{HypothesisID: h.ID, Level: LevelQuick.String()},
				events.PublishOptions{Priority: events.PriorityNormal})
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	type batchOutcome struct {
		computed []*compute.Result
		err      error
	}
	outCh := make(chan batchOutcome, 1)
	go func() {
		computed, err := e.bridge.QueueBatchValidation(runCtx, hs)
		outCh <- batchOutcome{computed: computed, err: err}
	}()

	var computed []*compute.Result
	select {
	case out := <-outCh:
		computed = out.computed
		if out.err != nil {
			e.logger.Warn("batch compute submission failed; degrading to heuristics",
				slog.String("error", out.err.Error()))
			computed = nil
		}

	case <-runCtx.Done():
		results := make([]*ValidationResult, len(hs))
		for i, h := range hs {
			results[i] = e.timeoutResult(h, LevelQuick, cfg, start)
			if e.bus != nil {
				e.bus.Publish(events.TypeValidationTimeout, AgentID, events.Broadcast,
					events.ValidationLifecyclePayload{
						HypothesisID: h.ID,
						Level:        LevelQuick.String(),
						DurationMs:   results[i].DurationMs,
					},
					events.PublishOptions{Priority: events.PriorityCritical})
			}
		}
		e.logger.Warn("batch validation timed out",
			slog.Int("count", len(hs)),
			slog.Duration("budget", cfg.Timeout))
		return results, nil
	}

	results := make([]*ValidationResult, len(hs))
	for i, h := range hs {
		var physics PhysicsValidation
		var economics EconomicsValidation
		var warnings []string

		if computed != nil && i < len(computed) && computed[i] != nil {
			physics, economics = mapComputeResult(computed[i])
		} else {
			physics = e.fallback.Physics(h)
			economics = e.fallback.Economics(h)
			warnings = append(warnings, "compute result unavailable; physics/economics from score heuristics")
		}

		results[i] = e.aggregate(h, LevelQuick, cfg, physics, economics, nil, quickQuality(h), warnings, start)

		if e.bus != nil {
			e.bus.Publish(events.TypeValidationComplete, AgentID, events.Broadcast,
				events.ValidationLifecyclePayload{
					HypothesisID: h.ID,
					Level:        LevelQuick.String(),
					OverallScore: results[i].OverallScore,
					Passed:       results[i].Passed,
					DurationMs:   results[i].DurationMs,
				},
				events.PublishOptions{Priority: events.PriorityHigh})
		}
	}
	return results, nil
}

// QuickScreen validates at the quick level.
func (e *Engine) QuickScreen(ctx context.Context, h *hypothesis.Hypothesis) (*ValidationResult, error) {
	return e.ValidateHypothesis(ctx, h, LevelQuick)
}

// StandardValidate validates at the standard level.
func (e *Engine) StandardValidate(ctx context.Context, h *hypothesis.Hypothesis) (*ValidationResult, error) {
	return e.ValidateHypothesis(ctx, h, LevelStandard)
}

// ComprehensiveValidate validates at the comprehensive level.
func (e *Engine) ComprehensiveValidate(ctx context.Context, h *hypothesis.Hypothesis) (*ValidationResult, error) {
	return e.ValidateHypothesis(ctx, h, LevelComprehensive)
}

// AutoValidate picks the level from the self-reported overall score:
// >=8.5 comprehensive, >=7.0 standard, else quick.
func (e *Engine) AutoValidate(ctx context.Context, h *hypothesis.Hypothesis) (*ValidationResult, error) {
	level := LevelQuick
	if h != nil {
		switch {
		case h.OverallScore >= autoComprehensiveMin:
			level = LevelComprehensive
		case h.OverallScore >= autoStandardMin:
			level = LevelStandard
		}
	}
	return e.ValidateHypothesis(ctx, h, level)
}

// runChecks executes the four sub-checks concurrently and aggregates.
func (e *Engine) runChecks(ctx context.Context, h *hypothesis.Hypothesis, level Level, cfg levelConfig, start time.Time) *ValidationResult {
	var (
		physics      PhysicsValidation
		economics    EconomicsValidation
		lit          *LiteratureValidation
		quality      QualityAssessment
		computeWarns []string
		litWarns     []string
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		physics, economics, computeWarns = e.runCompute(gCtx, h, cfg)
		return nil
	})

	if cfg.LiteratureCheck {
		g.Go(func() error {
			lit, litWarns = e.runLiterature(gCtx, h)
			return nil
		})
	}

	g.Go(func() error {
		if cfg.DetailedQuality {
			quality = detailedQuality(h)
		} else {
			quality = quickQuality(h)
		}
		return nil
	})

	_ = g.Wait() // sub-checks degrade internally and never error

	warnings := append(computeWarns, litWarns...)
	return e.aggregate(h, level, cfg, physics, economics, lit, quality, warnings, start)
}

// runCompute dispatches physics/economics to the bridge, degrading to the
// fallback policy when the bridge is absent or rejects.
func (e *Engine) runCompute(ctx context.Context, h *hypothesis.Hypothesis, cfg levelConfig) (PhysicsValidation, EconomicsValidation, []string) {
	if e.bridge == nil {
		return e.fallback.Physics(h), e.fallback.Economics(h),
			[]string{"compute bridge unavailable; physics/economics from score heuristics"}
	}

	tier := cfg.Tier
	params := map[string]float64{
		compute.ParamIterations: float64(cfg.SamplingIterations),
	}
	if e.config.EnableGPU {
		params["use_gpu"] = 1
	}

	result, err := e.bridge.QueueValidation(ctx, h, bridge.QueueOptions{Tier: &tier, Parameters: params})
	if err != nil {
		e.logger.Warn("compute submission failed; degrading to heuristics",
			slog.String("hypothesis_id", h.ID),
			slog.String("error", err.Error()))
		return e.fallback.Physics(h), e.fallback.Economics(h),
			[]string{fmt.Sprintf("compute submission failed (%v); physics/economics from score heuristics", err)}
	}

	physics, economics := mapComputeResult(result)
	return physics, economics, nil
}

// runLiterature cross-references claims, treating any failure as an empty
// result so the run keeps going.
func (e *Engine) runLiterature(ctx context.Context, h *hypothesis.Hypothesis) (*LiteratureValidation, []string) {
	if e.literature == nil {
		return &LiteratureValidation{}, []string{"literature validator unavailable; claims unchecked"}
	}
	lit, err := e.literature.CrossReference(ctx, h)
	if err != nil || lit == nil {
		e.logger.Warn("literature cross-reference failed",
			slog.String("hypothesis_id", h.ID))
		return &LiteratureValidation{}, []string{"literature cross-reference failed; claims unchecked"}
	}
	return lit, nil
}

// aggregate combines the sub-results under the fixed weights and decides
// the pass verdict.
func (e *Engine) aggregate(h *hypothesis.Hypothesis, level Level, cfg levelConfig,
	physics PhysicsValidation, economics EconomicsValidation, lit *LiteratureValidation,
	quality QualityAssessment, warnings []string, start time.Time) *ValidationResult {

	physScore := 5 * physics.Confidence
	if physics.Valid {
		physScore = 10 * physics.Confidence
	}
	econScore := 5 * economics.Confidence
	if economics.Viable {
		econScore = 10 * economics.Confidence
	}
	litScore := 5.0
	if lit != nil && lit.TotalClaims > 0 {
		litScore = float64(lit.SupportedClaims) / float64(lit.TotalClaims) * 10
	}
	qualScore := quality.Mean()

	overall := weightPhysics*physScore + weightEconomics*econScore +
		weightLiterature*litScore + weightQuality*qualScore
	if overall < 0 {
		overall = 0
	}
	if overall > 10 {
		overall = 10
	}

	physicsGate := physics.Valid || physics.Confidence >= e.config.PhysicsConfidenceThreshold
	strictGate := !e.config.StrictMode || economics.Viable
	litGate := level != LevelComprehensive || lit == nil || lit.ContradictedClaims == 0
	passed := overall >= cfg.MinScore && physicsGate && strictGate && litGate

	if !economics.Fallback && economics.Confidence < e.config.EconomicsConfidenceThreshold {
		warnings = append(warnings, fmt.Sprintf("economics verdict carries low confidence (%.2f)", economics.Confidence))
	}
	if lit != nil && lit.TotalClaims > 0 && lit.SupportedClaims < e.config.LiteratureMinSupport {
		warnings = append(warnings, fmt.Sprintf("only %d literature-supported claims (minimum %d)", lit.SupportedClaims, e.config.LiteratureMinSupport))
	}

	var recommendations []string
	if !passed {
		if overall < cfg.MinScore {
			recommendations = append(recommendations, fmt.Sprintf("overall score %.2f is below the %s minimum %.1f; strengthen the weakest sub-checks", overall, level, cfg.MinScore))
		}
		if !physicsGate {
			if len(physics.Violations) > 0 {
				recommendations = append(recommendations, fmt.Sprintf("resolve physics violations: %v", physics.Violations))
			} else {
				recommendations = append(recommendations, "physics validity could not be established; add grounded mechanism detail")
			}
		}
		if !strictGate {
			recommendations = append(recommendations, "strict mode requires economic viability; revisit cost assumptions")
		}
		if !litGate {
			recommendations = append(recommendations, fmt.Sprintf("resolve %d contradicted literature claims", lit.ContradictedClaims))
		}
	}

	elapsed := time.Since(start)
	verdict := "failed"
	if passed {
		verdict = "passed"
	}

	return &ValidationResult{
		HypothesisID: h.ID,
		Level:        level,
		LevelName:    level.String(),
		Physics:      physics,
		Economics:    economics,
		Literature:   lit,
		Quality:      quality,

		OverallScore: overall,
		Passed:       passed,
		Duration:     elapsed,
		DurationMs:   float64(elapsed) / float64(time.Millisecond),
		Summary: fmt.Sprintf("%s validation %s: %.2f/10 (physics %.1f, economics %.1f, literature %.1f, quality %.1f)",
			level, verdict, overall, physScore, econScore, litScore, qualScore),
		Recommendations: recommendations,
		Warnings:        warnings,
	}
}

// timeoutResult is the terminal result for a run that exhausted its budget.
func (e *Engine) timeoutResult(h *hypothesis.Hypothesis, level Level, cfg levelConfig, start time.Time) *ValidationResult {
	elapsed := time.Since(start)
	return &ValidationResult{
		HypothesisID: h.ID,
		Level:        level,
		LevelName:    level.String(),
		OverallScore: 0,
		Passed:       false,
		Duration:     elapsed,
		DurationMs:   float64(elapsed) / float64(time.Millisecond),
		Summary:      fmt.Sprintf("%s validation timed out after %s", level, cfg.Timeout),
		Warnings:     []string{fmt.Sprintf("validation exceeded its %s budget", cfg.Timeout)},
		Recommendations: []string{
			"retry at a lower validation level or simplify the hypothesis",
		},
	}
}

func mapComputeResult(result *compute.Result) (PhysicsValidation, EconomicsValidation) {
	return PhysicsValidation{
			Valid:      result.Physics.Valid,
			Confidence: result.Physics.Confidence,
			Violations: result.Physics.Violations,
		}, EconomicsValidation{
			Viable:     result.Economics.Viable,
			Confidence: result.Economics.Confidence,
			LCOEMean:   result.Economics.LCOEMean,
		}
}
