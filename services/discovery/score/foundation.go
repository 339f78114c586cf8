// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package score

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
)

// foundationSignals maps FS dimensions to their raw signal functions.
var foundationSignals = map[Dimension]signalFunc{
	FS1: predictionsSignal,
	FS2: evidenceSignal,
	FS3: mechanismSignal,
	FS4: groundingSignal,
	FS5: methodologySignal,
}

// predictionsSignal (FS1): fraction of predictions that are falsifiable,
// measurable, or quantified (expected value plus unit).
func predictionsSignal(h *hypothesis.Hypothesis) float64 {
	if len(h.Predictions) == 0 {
		return 0
	}
	testable := 0
	for _, p := range h.Predictions {
		if p.Falsifiable || p.Measurable || p.Quantified() {
			testable++
		}
	}
	return float64(testable) / float64(len(h.Predictions)) * 100
}

// evidenceSignal (FS2): count of substantive evidence items, 25 points each.
// An item counts when it bears a nontrivial citation, relevance >= 0.5, or a
// finding string.
func evidenceSignal(h *hypothesis.Hypothesis) float64 {
	substantive := 0
	for _, e := range h.Evidence {
		if len(strings.TrimSpace(e.Citation)) > 5 || e.Relevance >= 0.5 || strings.TrimSpace(e.Finding) != "" {
			substantive++
		}
	}
	signal := float64(substantive) * 25
	if signal > 100 {
		signal = 100
	}
	return signal
}

// minSubstantiveStepLen is the description length below which a mechanism
// step is treated as a placeholder.
const minSubstantiveStepLen = 20

// mechanismSignal (FS3): half from step count (three steps saturate), half
// from the density of steps with a substantive description and an explicit
// physical principle.
func mechanismSignal(h *hypothesis.Hypothesis) float64 {
	steps := h.Mechanism.Steps
	if len(steps) == 0 {
		return 0
	}

	countPart := float64(len(steps)) / 3 * 50
	if countPart > 50 {
		countPart = 50
	}

	grounded := 0
	for _, s := range steps {
		if len(s.Description) > minSubstantiveStepLen && s.PhysicalPrinciple != "" {
			grounded++
		}
	}
	densityPart := float64(grounded) / float64(len(steps)) * 50

	return countPart + densityPart
}

// Physical ceilings for the FS4 grounding scan.
const (
	ceilingAbsolute        = 100.0 // no efficiency exceeds unity
	ceilingSolarConcentr   = 95.0  // thermodynamic bound under full concentration
	ceilingSolarMultiJunc  = 86.0  // multi-junction limit
	ceilingSolarSingleJunc = 33.7  // Shockley-Queisser single-junction limit
	ceilingWindBetz        = 59.3  // Betz limit
)

// groundingBase and groundingPenalty shape the FS4 signal: each detected
// violation subtracts 25 points from a 90-point base.
const (
	groundingBase    = 90.0
	groundingPenalty = 25.0
)

var efficiencyClaimRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%\s*(?:[a-z\- ]{0,30})?efficien\w*|efficien\w*\s*(?:[a-z\- ,]{0,30})?(?:of|to|at|above|over|reaching|reaches)\s*(\d+(?:\.\d+)?)\s*%`)

// groundingSignal (FS4): scans numeric efficiency claims for violations of
// known physical ceilings.
func groundingSignal(h *hypothesis.Hypothesis) float64 {
	text := strings.ToLower(claimText(h))
	violations := detectViolations(text)

	signal := groundingBase - groundingPenalty*float64(len(violations))
	if signal < 0 {
		signal = 0
	}
	return signal
}

// detectViolations returns one entry per efficiency claim exceeding the
// applicable ceiling. text must be lower-cased.
func detectViolations(text string) []string {
	var violations []string

	solar := strings.Contains(text, "solar") || strings.Contains(text, "photovoltaic") || strings.Contains(text, " pv ")
	wind := strings.Contains(text, "wind") || strings.Contains(text, "turbine")
	concentrated := strings.Contains(text, "concentrat")
	multiJunction := strings.Contains(text, "multi-junction") || strings.Contains(text, "multijunction") || strings.Contains(text, "tandem")

	for _, m := range efficiencyClaimRe.FindAllStringSubmatch(text, -1) {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}

		switch {
		case pct > ceilingAbsolute:
			violations = append(violations, fmt.Sprintf("claimed %.1f%% efficiency exceeds 100%%", pct))
		case solar && pct > ceilingSolarConcentr:
			violations = append(violations, fmt.Sprintf("claimed %.1f%% solar efficiency exceeds the %.0f%% concentrated-sunlight bound", pct, ceilingSolarConcentr))
		case solar && pct > ceilingSolarMultiJunc && !concentrated:
			violations = append(violations, fmt.Sprintf("claimed %.1f%% solar efficiency exceeds the %.0f%% multi-junction limit", pct, ceilingSolarMultiJunc))
		case solar && pct > ceilingSolarSingleJunc && !concentrated && !multiJunction:
			violations = append(violations, fmt.Sprintf("claimed %.1f%% solar efficiency exceeds the %.1f%% Shockley-Queisser limit", pct, ceilingSolarSingleJunc))
		case wind && pct > ceilingWindBetz:
			violations = append(violations, fmt.Sprintf("claimed %.1f%% wind capture exceeds the %.1f%% Betz limit", pct, ceilingWindBetz))
		}
	}
	return violations
}

// methodologySignal (FS5): validation metrics (25 points each up to 50),
// 10 points per defined variable class, and a 20-point bonus when the
// feasibility/impact ratio sits in the balanced [0.7, 1.3] band.
func methodologySignal(h *hypothesis.Hypothesis) float64 {
	signal := float64(len(h.ValidationMetrics)) * 25
	if signal > 50 {
		signal = 50
	}

	if len(h.Variables.Independent) > 0 {
		signal += 10
	}
	if len(h.Variables.Dependent) > 0 {
		signal += 10
	}
	if len(h.Variables.Control) > 0 {
		signal += 10
	}

	if h.ImpactScore > 0 {
		ratio := h.FeasibilityScore / h.ImpactScore
		if ratio >= 0.7 && ratio <= 1.3 {
			signal += 20
		}
	}

	if signal > 100 {
		signal = 100
	}
	return signal
}

// claimText flattens the statement, title, and prediction texts into one
// string for claim scanning.
func claimText(h *hypothesis.Hypothesis) string {
	var sb strings.Builder
	sb.WriteString(h.Title)
	sb.WriteString(" ")
	sb.WriteString(h.Statement)
	for _, p := range h.Predictions {
		sb.WriteString(" ")
		sb.WriteString(p.Statement)
	}
	return sb.String()
}

// fullText additionally includes mechanism text; used by the breakthrough
// dimensions that scan vocabulary rather than numeric claims.
func fullText(h *hypothesis.Hypothesis) string {
	var sb strings.Builder
	sb.WriteString(claimText(h))
	for _, s := range h.Mechanism.Steps {
		sb.WriteString(" ")
		sb.WriteString(s.Description)
		sb.WriteString(" ")
		sb.WriteString(s.PhysicalPrinciple)
	}
	return sb.String()
}
