// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package hypothesis defines the shared hypothesis data model consumed by the
// validation and scoring pipeline.
//
// # Description
//
// A Hypothesis is produced by an upstream generation stage and is read-only
// inside this pipeline: no component mutates it after intake. The package
// also owns the input contract (Validate) and the deterministic content hash
// used as the score-cache key (ContentHash).
//
// # Thread Safety
//
// All types in this package are plain value types. They are safe to share
// across goroutines as long as callers treat them as immutable, which the
// pipeline does.
package hypothesis

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidHypothesis is returned when an inbound hypothesis violates the
// input contract. This indicates caller misuse, not a policy failure.
var ErrInvalidHypothesis = errors.New("invalid hypothesis")

// Prediction is a single testable claim made by a hypothesis.
type Prediction struct {
	// Statement is the natural-language claim text.
	Statement string `json:"statement"`

	// Measurable reports whether the prediction can be quantified.
	Measurable bool `json:"measurable"`

	// Falsifiable reports whether the prediction can be disproven.
	Falsifiable bool `json:"falsifiable"`

	// ExpectedValue is the predicted numeric outcome, if any.
	ExpectedValue *float64 `json:"expectedValue,omitempty"`

	// Unit is the unit of ExpectedValue (e.g. "%", "kWh/m2").
	Unit string `json:"unit,omitempty"`
}

// Quantified reports whether the prediction carries both an expected value
// and a unit, making it checkable even when not flagged falsifiable.
func (p Prediction) Quantified() bool {
	return p.ExpectedValue != nil && p.Unit != ""
}

// Evidence is one supporting-evidence item attached to a hypothesis.
type Evidence struct {
	// Finding summarizes what the cited work established.
	Finding string `json:"finding"`

	// Citation identifies the source (DOI, arXiv ID, or free text).
	Citation string `json:"citation"`

	// Relevance scores how closely the finding supports the hypothesis,
	// in [0,1].
	Relevance float64 `json:"relevance" validate:"gte=0,lte=1"`
}

// MechanismStep is one ordered step in a proposed causal mechanism.
type MechanismStep struct {
	// Description explains what happens at this step.
	Description string `json:"description"`

	// PhysicalPrinciple names the governing principle, if stated
	// (e.g. "Carnot limit", "Shockley-Queisser bound").
	PhysicalPrinciple string `json:"physicalPrinciple,omitempty"`
}

// Mechanism is the ordered causal chain a hypothesis proposes.
type Mechanism struct {
	Steps []MechanismStep `json:"steps"`
}

// Variables lists the experimental variable definitions of a hypothesis.
type Variables struct {
	Independent []string `json:"independent"`
	Dependent   []string `json:"dependent"`
	Control     []string `json:"control"`
}

// Hypothesis is a machine-generated scientific hypothesis as received from
// the upstream generator.
//
// Score conventions: NoveltyScore, FeasibilityScore, and ImpactScore are
// self-reported on a 0-100 scale; OverallScore is the 0-10 aggregate assigned
// by the prior generation/racing stage.
type Hypothesis struct {
	// ID uniquely identifies the hypothesis. Required.
	ID string `json:"id" validate:"required"`

	// Title is a short human-readable name.
	Title string `json:"title"`

	// Statement is the full natural-language hypothesis text.
	Statement string `json:"statement"`

	// Predictions are the testable claims the hypothesis makes.
	Predictions []Prediction `json:"predictions"`

	// Evidence lists supporting literature findings.
	Evidence []Evidence `json:"supportingEvidence" validate:"dive"`

	// Mechanism is the proposed causal chain.
	Mechanism Mechanism `json:"mechanism"`

	// Variables defines the independent/dependent/control variables.
	Variables Variables `json:"variables"`

	// ValidationMetrics names the metrics an experiment would measure.
	ValidationMetrics []string `json:"validationMetrics"`

	// NoveltyScore is the self-reported novelty, 0-100.
	NoveltyScore float64 `json:"noveltyScore" validate:"gte=0,lte=100"`

	// FeasibilityScore is the self-reported feasibility, 0-100.
	FeasibilityScore float64 `json:"feasibilityScore" validate:"gte=0,lte=100"`

	// ImpactScore is the self-reported impact, 0-100.
	ImpactScore float64 `json:"impactScore" validate:"gte=0,lte=100"`

	// OverallScore is the 0-10 aggregate from the generation stage.
	OverallScore float64 `json:"overallScore" validate:"gte=0,lte=10"`
}

// validate is shared across calls; validator.Validate is safe for
// concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate enforces the input contract on an inbound hypothesis.
//
// # Description
//
// Checks the structural contract: a nonempty ID, self-reported scores within
// their documented ranges, and evidence relevance within [0,1]. A violation
// is caller misuse and is returned as an error wrapping
// ErrInvalidHypothesis; hypotheses that are merely weak are not errors.
//
// # Inputs
//
//   - h: The hypothesis to check. Must not be nil.
//
// # Outputs
//
//   - error: Non-nil if the contract is violated.
func Validate(h *Hypothesis) error {
	if h == nil {
		return fmt.Errorf("%w: nil hypothesis", ErrInvalidHypothesis)
	}
	if err := validate.Struct(h); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHypothesis, err)
	}
	return nil
}
