// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation orchestrates the per-hypothesis validation pipeline.
//
// # Description
//
// The Engine runs four independent checks on a hypothesis under a hard time
// budget: physics and economics (through the compute bridge, degrading to
// local heuristics), an optional literature cross-reference, and a quality
// assessment. The checks race a level-specific deadline; expiry yields a
// terminal failed result, never an error or an indefinite wait.
package validation

import (
	"errors"
	"fmt"
	"time"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/compute"
)

// ErrUnknownLevel is returned by ParseLevel for unrecognized names.
var ErrUnknownLevel = errors.New("unknown validation level")

// Level selects the depth of a validation run.
type Level int

const (
	LevelQuick Level = iota
	LevelStandard
	LevelComprehensive
)

// String returns the wire name of the level.
func (l Level) String() string {
	switch l {
	case LevelQuick:
		return "quick"
	case LevelStandard:
		return "standard"
	case LevelComprehensive:
		return "comprehensive"
	default:
		return "unknown"
	}
}

// ParseLevel maps a wire name back to a Level.
func ParseLevel(name string) (Level, error) {
	switch name {
	case "quick":
		return LevelQuick, nil
	case "standard":
		return LevelStandard, nil
	case "comprehensive":
		return LevelComprehensive, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}

// levelConfig is the resolved per-level run configuration.
type levelConfig struct {
	Tier               compute.Tier
	LiteratureCheck    bool
	DetailedQuality    bool
	SamplingIterations int
	Timeout            time.Duration
	MinScore           float64
}

// Default per-level wall-clock budgets.
const (
	defaultQuickTimeout         = 30 * time.Second
	defaultStandardTimeout      = 60 * time.Second
	defaultComprehensiveTimeout = 180 * time.Second
)

// Aggregation weights over the four sub-checks.
const (
	weightPhysics    = 0.35
	weightEconomics  = 0.25
	weightLiterature = 0.15
	weightQuality    = 0.25
)

// Config tunes the engine across all levels. The zero value is usable after
// ApplyDefaults.
type Config struct {
	// EnableGPU requests GPU-accelerated simulation from the pool.
	EnableGPU bool

	// PhysicsConfidenceThreshold is the minimum confidence that satisfies
	// the physics pass gate when the verdict itself is not valid.
	// Default: 0.7.
	PhysicsConfidenceThreshold float64

	// EconomicsConfidenceThreshold below which economics verdicts are
	// flagged as weak in the result warnings. Default: 0.5.
	EconomicsConfidenceThreshold float64

	// LiteratureMinSupport is the supported-claim count under which a
	// literature warning is attached. Default: 1.
	LiteratureMinSupport int

	// StrictMode additionally requires economic viability to pass.
	StrictMode bool

	// Per-level wall-clock budgets. Zero values use the defaults
	// (30s / 60s / 180s).
	QuickTimeout         time.Duration
	StandardTimeout      time.Duration
	ComprehensiveTimeout time.Duration
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.PhysicsConfidenceThreshold == 0 {
		c.PhysicsConfidenceThreshold = 0.7
	}
	if c.EconomicsConfidenceThreshold == 0 {
		c.EconomicsConfidenceThreshold = 0.5
	}
	if c.LiteratureMinSupport == 0 {
		c.LiteratureMinSupport = 1
	}
	if c.QuickTimeout <= 0 {
		c.QuickTimeout = defaultQuickTimeout
	}
	if c.StandardTimeout <= 0 {
		c.StandardTimeout = defaultStandardTimeout
	}
	if c.ComprehensiveTimeout <= 0 {
		c.ComprehensiveTimeout = defaultComprehensiveTimeout
	}
}

// Validate rejects out-of-range thresholds.
func (c *Config) Validate() error {
	if c.PhysicsConfidenceThreshold < 0 || c.PhysicsConfidenceThreshold > 1 {
		return fmt.Errorf("physics confidence threshold %.2f outside [0,1]", c.PhysicsConfidenceThreshold)
	}
	if c.EconomicsConfidenceThreshold < 0 || c.EconomicsConfidenceThreshold > 1 {
		return fmt.Errorf("economics confidence threshold %.2f outside [0,1]", c.EconomicsConfidenceThreshold)
	}
	return nil
}

// levelConfigFor resolves the run configuration for a level under this
// Config's timeout overrides.
func (c *Config) levelConfigFor(level Level) levelConfig {
	switch level {
	case LevelComprehensive:
		return levelConfig{
			Tier:               compute.TierHigh,
			LiteratureCheck:    true,
			DetailedQuality:    true,
			SamplingIterations: 10000,
			Timeout:            c.ComprehensiveTimeout,
			MinScore:           7.0,
		}
	case LevelStandard:
		return levelConfig{
			Tier:               compute.TierMedium,
			LiteratureCheck:    true,
			DetailedQuality:    true,
			SamplingIterations: 1000,
			Timeout:            c.StandardTimeout,
			MinScore:           6.0,
		}
	default:
		return levelConfig{
			Tier:               compute.TierLow,
			SamplingIterations: 100,
			Timeout:            c.QuickTimeout,
			MinScore:           5.0,
		}
	}
}

// PhysicsValidation is the physics sub-result.
type PhysicsValidation struct {
	Valid      bool     `json:"valid"`
	Confidence float64  `json:"confidence"`
	Violations []string `json:"violations,omitempty"`

	// Fallback marks a verdict produced by the local heuristic rather than
	// the compute pool.
	Fallback bool `json:"fallback,omitempty"`
}

// EconomicsValidation is the economics sub-result.
type EconomicsValidation struct {
	Viable     bool    `json:"viable"`
	Confidence float64 `json:"confidence"`
	LCOEMean   float64 `json:"lcoeMean,omitempty"`
	Fallback   bool    `json:"fallback,omitempty"`
}

// LiteratureValidation is the literature cross-reference sub-result.
type LiteratureValidation struct {
	SupportedClaims    int      `json:"supportedClaims"`
	ContradictedClaims int      `json:"contradictedClaims"`
	TotalClaims        int      `json:"totalClaims"`
	References         []string `json:"references,omitempty"`
}

// QualityAssessment carries the four 0-10 quality sub-metrics.
type QualityAssessment struct {
	Completeness float64 `json:"completeness"`
	Testability  float64 `json:"testability"`
	Clarity      float64 `json:"clarity"`
	Rigor        float64 `json:"rigor"`
}

// Mean averages the four sub-metrics.
func (q QualityAssessment) Mean() float64 {
	return (q.Completeness + q.Testability + q.Clarity + q.Rigor) / 4
}

// ValidationResult is the terminal outcome of one (hypothesis, level) run.
// Results are immutable once returned.
type ValidationResult struct {
	HypothesisID string                `json:"hypothesisId"`
	Level        Level                 `json:"-"`
	LevelName    string                `json:"level"`
	Physics      PhysicsValidation     `json:"physics"`
	Economics    EconomicsValidation   `json:"economics"`
	Literature   *LiteratureValidation `json:"literature,omitempty"`
	Quality      QualityAssessment     `json:"quality"`

	OverallScore    float64       `json:"overallScore"`
	Passed          bool          `json:"passed"`
	Duration        time.Duration `json:"-"`
	DurationMs      float64       `json:"durationMs"`
	Summary         string        `json:"summary"`
	Recommendations []string      `json:"recommendations,omitempty"`
	Warnings        []string      `json:"warnings,omitempty"`
}
