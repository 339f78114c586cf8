// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"regexp"
	"strings"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
)

// quickQuality scores structure presence only; it never inspects text and
// is cheap enough for the quick level's budget.
func quickQuality(h *hypothesis.Hypothesis) QualityAssessment {
	q := QualityAssessment{}

	if strings.TrimSpace(h.Statement) != "" {
		q.Completeness += 2.5
	}
	if len(h.Predictions) > 0 {
		q.Completeness += 2.5
	}
	if len(h.Evidence) > 0 {
		q.Completeness += 2.5
	}
	if len(h.Mechanism.Steps) > 0 {
		q.Completeness += 2.5
	}

	if len(h.Predictions) > 0 {
		testable := 0
		for _, p := range h.Predictions {
			if p.Falsifiable || p.Measurable || p.Quantified() {
				testable++
			}
		}
		q.Testability = float64(testable) / float64(len(h.Predictions)) * 10
	}

	if strings.TrimSpace(h.Statement) != "" {
		q.Clarity = 5
		if strings.TrimSpace(h.Title) != "" {
			q.Clarity += 2
		}
		if len(h.Statement) >= 40 {
			q.Clarity += 3
		}
	}

	q.Rigor = float64(len(h.ValidationMetrics)) * 2.5
	if q.Rigor > 5 {
		q.Rigor = 5
	}
	for _, vars := range [][]string{h.Variables.Independent, h.Variables.Dependent, h.Variables.Control} {
		if len(vars) > 0 {
			q.Rigor += 5.0 / 3.0
		}
	}
	if q.Rigor > 10 {
		q.Rigor = 10
	}

	return q
}

var vagueTermRe = regexp.MustCompile(`\b(?:maybe|might|somehow|possibly|perhaps|some sort of|kind of)\b`)
var quantityRe = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:%|wh|kwh|mwh|ev|nm|kg|°c|kelvin|w/m)`)

// detailedQuality starts from the structural score and adds text
// inspection: vague-language penalties, concrete-quantity bonuses, and
// mechanism grounding.
func detailedQuality(h *hypothesis.Hypothesis) QualityAssessment {
	q := quickQuality(h)

	text := strings.ToLower(h.Statement)
	for _, p := range h.Predictions {
		text += " " + strings.ToLower(p.Statement)
	}

	// Clarity: vague hedging costs a point per term; concrete quantified
	// claims earn up to two back.
	q.Clarity -= float64(len(vagueTermRe.FindAllString(text, -1)))
	if n := len(quantityRe.FindAllString(text, -1)); n > 0 {
		bonus := float64(n)
		if bonus > 2 {
			bonus = 2
		}
		q.Clarity += bonus
	}
	if q.Clarity < 0 {
		q.Clarity = 0
	}
	if q.Clarity > 10 {
		q.Clarity = 10
	}

	// Testability: quantified predictions (value plus unit) count double.
	if len(h.Predictions) > 0 {
		weight := 0
		for _, p := range h.Predictions {
			if p.Quantified() {
				weight += 2
			} else if p.Falsifiable || p.Measurable {
				weight++
			}
		}
		q.Testability = float64(weight) / float64(2*len(h.Predictions)) * 10
		if q.Testability > 10 {
			q.Testability = 10
		}
	}

	// Rigor: grounded mechanism steps add up to two points.
	if steps := h.Mechanism.Steps; len(steps) > 0 {
		grounded := 0
		for _, s := range steps {
			if s.PhysicalPrinciple != "" {
				grounded++
			}
		}
		q.Rigor += float64(grounded) / float64(len(steps)) * 2
		if q.Rigor > 10 {
			q.Rigor = 10
		}
	}

	return q
}
