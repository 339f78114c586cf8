// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package score

import (
	"fmt"
	"sort"
)

// WeakDimension is a below-passing dimension with targeted advice.
type WeakDimension struct {
	// Dimension identifies the weak dimension.
	Dimension Dimension `json:"dimension"`

	// Percentage is the achieved percentage.
	Percentage float64 `json:"percentage"`

	// UnmetCriterion is the lowest criterion the hypothesis failed to meet.
	UnmetCriterion string `json:"unmetCriterion"`
}

// Feedback is the structured refinement guidance attached to a score.
type Feedback struct {
	// WeakDimensions lists every dimension below the passing line.
	WeakDimensions []WeakDimension `json:"weakDimensions"`

	// PrimaryFocus names the single most valuable improvement area.
	PrimaryFocus string `json:"primaryFocus"`

	// SecondaryFocus names the next improvement area.
	SecondaryFocus string `json:"secondaryFocus"`

	// PathToNextTier describes what reaching the next tier takes.
	PathToNextTier string `json:"pathToNextTier"`

	// Blockers lists the explicit gates standing between the hypothesis
	// and breakthrough classification.
	Blockers []string `json:"blockers"`
}

// foundationFocusLine is the foundation subtotal (out of 5.0) below which
// the primary focus points at foundations rather than breakthrough signals.
const foundationFocusLine = 3.0

// buildFeedback derives the refinement guidance from a completed score.
func buildFeedback(s *HybridBreakthroughScore) Feedback {
	fb := Feedback{}

	// Weak-dimension notes reference the lowest unmet criterion so the
	// advice names the next achievable bucket, not the top one.
	for _, ds := range s.Dimensions {
		if ds.Passed {
			continue
		}
		_, next := selectCriterionByLabel(ds.Dimension, ds.CriteriaMatched)
		unmet := "meet the top criterion"
		if next != nil {
			unmet = next.Label
		}
		fb.WeakDimensions = append(fb.WeakDimensions, WeakDimension{
			Dimension:      ds.Dimension,
			Percentage:     ds.Percentage,
			UnmetCriterion: unmet,
		})
	}

	fb.PrimaryFocus = primaryFocus(s)
	fb.SecondaryFocus = secondaryFocus(s, fb.PrimaryFocus)
	fb.PathToNextTier = pathToNextTier(s.Tier)
	fb.Blockers = blockers(s)

	return fb
}

// selectCriterionByLabel finds the awarded bucket by its label and returns
// it with the bucket above it.
func selectCriterionByLabel(d Dimension, label string) (Criterion, *Criterion) {
	table := criteriaTables[d]
	for i, c := range table {
		if c.Label == label {
			if i > 0 {
				return c, &table[i-1]
			}
			return c, nil
		}
	}
	return table[len(table)-1], &table[len(table)-2]
}

// primaryFocus picks foundations when the foundation subtotal is weak,
// otherwise the weakest breakthrough dimension.
func primaryFocus(s *HybridBreakthroughScore) string {
	if s.FoundationScore < foundationFocusLine {
		weakest := weakestDimension(s, true)
		return fmt.Sprintf("strengthen scientific foundations, starting with %s (%s)", weakest.Dimension, weakest.Dimension.Name())
	}
	weakest := weakestDimension(s, false)
	return fmt.Sprintf("raise %s (%s)", weakest.Dimension, weakest.Dimension.Name())
}

// secondaryFocus prefers an unmet required gate, else the second-weakest
// dimension overall (skipping whatever primary already names).
func secondaryFocus(s *HybridBreakthroughScore, primary string) string {
	if bd1 := s.dimension(BD1); bd1 != nil && bd1.Percentage < gatePercentage {
		return fmt.Sprintf("BD1 must reach %.0f%% to gate breakthrough classification", gatePercentage)
	}
	if bd6 := s.dimension(BD6); bd6 != nil && bd6.Percentage < gatePercentage {
		return fmt.Sprintf("BD6 must reach %.0f%% to gate breakthrough classification", gatePercentage)
	}

	ordered := dimensionsByPercentage(s)
	for _, ds := range ordered[1:] {
		candidate := fmt.Sprintf("raise %s (%s)", ds.Dimension, ds.Dimension.Name())
		if candidate != primary {
			return candidate
		}
	}
	return fmt.Sprintf("raise %s (%s)", ordered[0].Dimension, ordered[0].Dimension.Name())
}

// pathToNextTier is keyed on the current tier.
func pathToNextTier(t Tier) string {
	switch t {
	case TierFailure:
		return "add testable predictions, cited evidence, and a stepwise mechanism to reach partial_failure"
	case TierPartialFailure:
		return "fill methodology gaps and quantify claims to reach general_insights"
	case TierGeneralInsights:
		return "sharpen performance and cost claims with explicit numbers to reach scientific_discovery"
	case TierScientificDiscovery:
		return "push BD1 and BD6 above 80% with all foundations passing to reach breakthrough"
	case TierBreakthrough:
		return "maintain rigor; tier ceiling reached"
	default:
		return ""
	}
}

// blockers enumerates every failed breakthrough gate.
func blockers(s *HybridBreakthroughScore) []string {
	var out []string

	for _, ds := range s.Dimensions {
		if ds.Dimension.IsFoundation() && !ds.Passed {
			out = append(out, fmt.Sprintf("%s below %.0f%% (%.0f%%)", ds.Dimension, passingPercentage, ds.Percentage))
		}
	}
	if bd1 := s.dimension(BD1); bd1 != nil && bd1.Percentage < gatePercentage {
		out = append(out, fmt.Sprintf("BD1 below %.0f%% gate (%.0f%%)", gatePercentage, bd1.Percentage))
	}
	if bd6 := s.dimension(BD6); bd6 != nil && bd6.Percentage < gatePercentage {
		out = append(out, fmt.Sprintf("BD6 below %.0f%% gate (%.0f%%)", gatePercentage, bd6.Percentage))
	}
	if n := highBreakthroughCount(s); n < gateHighBDNeeded {
		out = append(out, fmt.Sprintf("only %d of 7 breakthrough dimensions at or above %.0f%% (need %d)", n, passingPercentage, gateHighBDNeeded))
	}
	if s.OverallScore < gateOverallMin {
		out = append(out, fmt.Sprintf("overall score %.2f below %.1f", s.OverallScore, gateOverallMin))
	}

	return out
}

// weakestDimension returns the lowest-percentage dimension, optionally
// restricted to foundations.
func weakestDimension(s *HybridBreakthroughScore, foundationOnly bool) DimensionScore {
	var weakest *DimensionScore
	for i := range s.Dimensions {
		ds := &s.Dimensions[i]
		if foundationOnly && !ds.Dimension.IsFoundation() {
			continue
		}
		if weakest == nil || ds.Percentage < weakest.Percentage {
			weakest = ds
		}
	}
	return *weakest
}

// dimensionsByPercentage returns the dimensions sorted ascending by
// percentage, ties broken by rubric order for determinism.
func dimensionsByPercentage(s *HybridBreakthroughScore) []DimensionScore {
	out := make([]DimensionScore, len(s.Dimensions))
	copy(out, s.Dimensions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percentage < out[j].Percentage })
	return out
}
