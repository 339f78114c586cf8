// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package score implements the 12-dimension hybrid breakthrough rubric.
//
// # Description
//
// A hypothesis is scored on five Foundation dimensions (FS1-FS5, basic
// scientific rigor, 1.0 point each) and seven Breakthrough dimensions
// (BD1-BD7, novelty/impact signals, weighted to 5.0 points total). Every
// scoring function is pure and table-driven: a raw percentage signal is
// computed from hypothesis content, then matched against an ordered criteria
// table. Identical content always produces identical scores.
package score

import "github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"

// Dimension identifies one rubric dimension. The set is closed.
type Dimension int

const (
	// Foundation dimensions, 1.0 point each.

	// FS1 scores prediction quality (falsifiable/measurable/quantified).
	FS1 Dimension = iota
	// FS2 scores supporting-evidence strength.
	FS2
	// FS3 scores mechanism depth and grounding.
	FS3
	// FS4 scores physical grounding (absence of limit violations).
	FS4
	// FS5 scores methodological completeness.
	FS5

	// Breakthrough dimensions, weighted.

	// BD1 scores claimed performance gains. Weight 1.0.
	BD1
	// BD2 scores claimed cost reductions. Weight 0.75.
	BD2
	// BD3 scores cross-domain synthesis. Weight 0.5.
	BD3
	// BD4 scores market disruption potential. Weight 0.75.
	BD4
	// BD5 scores deployment scalability. Weight 0.75.
	BD5
	// BD6 scores research-trajectory shift. Weight 0.75.
	BD6
	// BD7 scores societal benefit. Weight 0.5.
	BD7
)

// allDimensions lists every dimension in rubric order.
var allDimensions = []Dimension{FS1, FS2, FS3, FS4, FS5, BD1, BD2, BD3, BD4, BD5, BD6, BD7}

// String returns the rubric identifier of the dimension.
func (d Dimension) String() string {
	switch d {
	case FS1:
		return "FS1"
	case FS2:
		return "FS2"
	case FS3:
		return "FS3"
	case FS4:
		return "FS4"
	case FS5:
		return "FS5"
	case BD1:
		return "BD1"
	case BD2:
		return "BD2"
	case BD3:
		return "BD3"
	case BD4:
		return "BD4"
	case BD5:
		return "BD5"
	case BD6:
		return "BD6"
	case BD7:
		return "BD7"
	default:
		return "unknown"
	}
}

// Name returns the human-readable dimension name.
func (d Dimension) Name() string {
	switch d {
	case FS1:
		return "Testable Predictions"
	case FS2:
		return "Supporting Evidence"
	case FS3:
		return "Causal Mechanism"
	case FS4:
		return "Physical Grounding"
	case FS5:
		return "Methodology"
	case BD1:
		return "Performance Leap"
	case BD2:
		return "Cost Reduction"
	case BD3:
		return "Cross-Domain Synthesis"
	case BD4:
		return "Market Disruption"
	case BD5:
		return "Scalability"
	case BD6:
		return "Research Trajectory"
	case BD7:
		return "Societal Benefit"
	default:
		return "unknown"
	}
}

// IsFoundation reports whether the dimension is one of FS1-FS5.
func (d Dimension) IsFoundation() bool {
	return d >= FS1 && d <= FS5
}

// Weight returns the dimension's maximum score contribution.
func (d Dimension) Weight() float64 {
	switch d {
	case FS1, FS2, FS3, FS4, FS5:
		return 1.0
	case BD1:
		return 1.0
	case BD2, BD4, BD5, BD6:
		return 0.75
	case BD3, BD7:
		return 0.5
	default:
		return 0
	}
}

// Criterion is one bucket of a dimension's criteria table: a signal at or
// above Threshold earns Fraction of the dimension's weight.
type Criterion struct {
	// Threshold is the minimum raw signal (0-100) for this bucket.
	Threshold float64

	// Fraction of the dimension weight awarded, in (0,1].
	Fraction float64

	// Label describes what this bucket represents; surfaced in feedback.
	Label string
}

// passingPercentage is the line a dimension must clear to count as passing.
const passingPercentage = 70.0

// gatePercentage is the stricter line the BD1/BD6 breakthrough gates use.
const gatePercentage = 80.0

// DimensionScore is the outcome of one dimension evaluation.
type DimensionScore struct {
	// Dimension identifies the rubric dimension.
	Dimension Dimension `json:"dimension"`

	// Score is the awarded points, in [0, MaxScore].
	Score float64 `json:"score"`

	// MaxScore is the dimension weight.
	MaxScore float64 `json:"maxScore"`

	// Percentage is Score/MaxScore*100.
	Percentage float64 `json:"percentage"`

	// Passed reports Percentage >= 70.
	Passed bool `json:"passed"`

	// Reasoning explains the awarded bucket.
	Reasoning string `json:"reasoning"`

	// CriteriaMatched is the label of the awarded bucket.
	CriteriaMatched string `json:"criteriaMatched"`
}

// HybridBreakthroughScore is the full rubric outcome for one hypothesis.
type HybridBreakthroughScore struct {
	// HypothesisID identifies the scored hypothesis.
	HypothesisID string `json:"hypothesisId"`

	// Dimensions holds all twelve dimension scores in rubric order.
	Dimensions []DimensionScore `json:"dimensions"`

	// FoundationScore is the FS1-FS5 subtotal, out of 5.0.
	FoundationScore float64 `json:"foundationScore"`

	// BreakthroughScore is the BD1-BD7 subtotal, out of 5.0.
	BreakthroughScore float64 `json:"breakthroughScore"`

	// OverallScore is the 0-10 sum of all twelve dimensions.
	OverallScore float64 `json:"overallScore"`

	// Tier is the monotonic classification derived from OverallScore.
	Tier Tier `json:"tier"`

	// FSAllPassing reports whether every foundation dimension passed.
	FSAllPassing bool `json:"fsAllPassing"`

	// MeetsBreakthrough reports whether all five breakthrough gates hold.
	MeetsBreakthrough bool `json:"meetsBreakthrough"`

	// Feedback is the structured refinement guidance.
	Feedback Feedback `json:"feedback"`
}

// dimension lookup helpers used by gating and feedback.

func (s *HybridBreakthroughScore) dimension(d Dimension) *DimensionScore {
	for i := range s.Dimensions {
		if s.Dimensions[i].Dimension == d {
			return &s.Dimensions[i]
		}
	}
	return nil
}

// signalFunc computes a dimension's raw 0-100 signal from content.
type signalFunc func(h *hypothesis.Hypothesis) float64

// EliminationPolicy decides whether a hypothesis leaves the population after
// scoring. Keyed on the rubric score, the generation iteration, and the
// population size of the batch.
type EliminationPolicy func(score float64, iteration, populationSize int) bool

// NeverEliminate is the default elimination policy.
func NeverEliminate(score float64, iteration, populationSize int) bool {
	return false
}

// BatchStats summarizes one batch evaluation.
type BatchStats struct {
	// Evaluated is the number of hypotheses scored.
	Evaluated int `json:"evaluated"`

	// PerTier counts outcomes by classification tier.
	PerTier map[Tier]int `json:"perTier"`

	// Eliminated counts hypotheses removed by the elimination policy.
	Eliminated int `json:"eliminated"`

	// MinScore, MaxScore, AvgScore summarize the overall scores.
	MinScore float64 `json:"minScore"`
	MaxScore float64 `json:"maxScore"`
	AvgScore float64 `json:"avgScore"`
}
