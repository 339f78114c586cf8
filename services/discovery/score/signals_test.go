// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
)

func textHypothesis(statement string) *hypothesis.Hypothesis {
	return &hypothesis.Hypothesis{ID: "hyp-text", Statement: statement}
}

func TestGroundingSignal_NoNumericClaims(t *testing.T) {
	h := textHypothesis("a qualitative claim with no numbers at all")
	assert.InDelta(t, 90.0, groundingSignal(h), 0.001)
}

func TestGroundingSignal_Violations(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		want      float64
	}{
		{
			"efficiency above unity",
			"the converter achieves an efficiency of 120% under load",
			65, // 90 - 25
		},
		{
			"solar above single-junction limit",
			"a single layer solar cell with efficiency of 45%",
			65,
		},
		{
			"tandem solar below multi-junction limit is fine",
			"a tandem solar cell reaching 45% efficiency",
			90,
		},
		{
			"concentrated solar below 95 is fine",
			"concentrated solar capture with 90% efficiency",
			90,
		},
		{
			"wind above Betz",
			"the wind turbine extracts 70% efficiency from the free stream",
			65,
		},
		{
			"wind below Betz is fine",
			"the wind turbine reaches 45% efficiency",
			90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := groundingSignal(textHypothesis(tt.statement))
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestPerformanceSignal_PercentExtraction(t *testing.T) {
	h := textHypothesis("the new electrode yields a 45% improvement in charge rate and a 12% gain in density")
	assert.InDelta(t, 45.0, performanceSignal(h), 0.001)
}

func TestPerformanceSignal_MultiplierPhrasing(t *testing.T) {
	h := textHypothesis("we expect a 3x improvement in throughput")
	assert.InDelta(t, 100.0, performanceSignal(h), 0.001) // (3-1)*100 capped at 100
}

func TestPerformanceSignal_NoveltyBonus(t *testing.T) {
	h := textHypothesis("a 45% improvement in conversion")
	h.NoveltyScore = 85
	assert.InDelta(t, 55.0, performanceSignal(h), 0.001)
}

func TestPerformanceSignal_IgnoresUnrelatedPercents(t *testing.T) {
	h := textHypothesis("about 80% of prior studies were inconclusive")
	assert.InDelta(t, 0.0, performanceSignal(h), 0.001)
}

func TestCostSignal_ReductionNearCostKeywords(t *testing.T) {
	h := textHypothesis("manufacturing cost drops by 60% through roll-to-roll processing")
	assert.InDelta(t, 60.0, costSignal(h), 0.001)
}

func TestCostSignal_FallsBackToImpactFraction(t *testing.T) {
	h := textHypothesis("no explicit economics are claimed here")
	h.ImpactScore = 80
	assert.InDelta(t, 24.0, costSignal(h), 0.001) // 80 * 0.3
}

func TestCrossDomainSignal_Buckets(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		want      float64
	}{
		{"three domains", "a protein-derived catalyst deposited on a semiconductor bandgap junction", crossDomainHigh},
		{"two domains", "a catalyst layer over a perovskite absorber", crossDomainMedium},
		{"one domain", "an improved catalyst formulation", crossDomainLow},
		{"no domain vocabulary", "a better way to do things", crossDomainNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, crossDomainSignal(textHypothesis(tt.statement)), 0.001)
		})
	}
}

func TestScalabilitySignal_MonotonicWithScale(t *testing.T) {
	base := textHypothesis("deployment path unclear")
	base.FeasibilityScore = 60

	lab := textHypothesis("validated at lab scale")
	lab.FeasibilityScore = 60
	mw := textHypothesis("a 50 megawatt pilot plant")
	mw.FeasibilityScore = 60
	gw := textHypothesis("gigawatt scale manufacturing")
	gw.FeasibilityScore = 60
	tw := textHypothesis("terawatt scale deployment")
	tw.FeasibilityScore = 60

	s0 := scalabilitySignal(base)
	s1 := scalabilitySignal(lab)
	s2 := scalabilitySignal(mw)
	s3 := scalabilitySignal(gw)
	s4 := scalabilitySignal(tw)

	assert.Less(t, s0, s1)
	assert.Less(t, s1, s2)
	assert.Less(t, s2, s3)
	assert.Less(t, s3, s4)
}

func TestScalabilitySignal_UnitTokensMatchWholeWords(t *testing.T) {
	// Ordinary words must not be read as unit abbreviations.
	for _, statement := range []string{
		"combining two catalyst families improves yield",
		"a mwcnt electrode with twisted fibers",
		"this approach is widely available and labeled stable",
	} {
		h := textHypothesis(statement)
		assert.Zero(t, scalabilitySignal(h), "no scale should be read from %q", statement)
	}

	// Genuine abbreviations still count.
	assert.InDelta(t, scaleTerawatt, scalabilitySignal(textHypothesis("a 5 TW grid buildout")), 0.001)
	assert.InDelta(t, scaleGigawatt, scalabilitySignal(textHypothesis("annual output of 12 GWh")), 0.001)
	assert.InDelta(t, scaleMegawatt, scalabilitySignal(textHypothesis("a 200 MW demonstration unit")), 0.001)
	assert.InDelta(t, scaleLab, scalabilitySignal(textHypothesis("reproduced in the lab")), 0.001)
}

func TestMethodologySignal_BalancedClaimBonus(t *testing.T) {
	h := textHypothesis("x")
	h.ValidationMetrics = []string{"m1", "m2"}
	h.Variables = hypothesis.Variables{Independent: []string{"a"}, Dependent: []string{"b"}, Control: []string{"c"}}

	h.FeasibilityScore = 80
	h.ImpactScore = 80
	assert.InDelta(t, 100.0, methodologySignal(h), 0.001)

	// Unbalanced claim loses the bonus.
	h.FeasibilityScore = 20
	assert.InDelta(t, 80.0, methodologySignal(h), 0.001)
}
