// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package hypothesis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHypothesis() *Hypothesis {
	expected := 42.0
	return &Hypothesis{
		ID:        "hyp-001",
		Title:     "Perovskite tandem stability",
		Statement: "Encapsulated perovskite-silicon tandem cells retain 95% efficiency after 1000 thermal cycles",
		Predictions: []Prediction{
			{Statement: "efficiency retention above 95%", Measurable: true, Falsifiable: true},
			{Statement: "degradation rate below 0.5% per 100 cycles", ExpectedValue: &expected, Unit: "%"},
		},
		Evidence: []Evidence{
			{Finding: "tandem cells reached 33.9% efficiency", Citation: "doi:10.1038/s41586-023-0001", Relevance: 0.9},
		},
		Mechanism: Mechanism{Steps: []MechanismStep{
			{Description: "Encapsulation blocks moisture ingress into the perovskite layer", PhysicalPrinciple: "diffusion barrier"},
		}},
		Variables: Variables{
			Independent: []string{"encapsulant material"},
			Dependent:   []string{"efficiency retention"},
			Control:     []string{"cycle temperature range"},
		},
		ValidationMetrics: []string{"PCE retention", "EQE shift"},
		NoveltyScore:      72,
		FeasibilityScore:  80,
		ImpactScore:       85,
		OverallScore:      7.4,
	}
}

func TestValidate_AcceptsWellFormed(t *testing.T) {
	require.NoError(t, Validate(testHypothesis()))
}

func TestValidate_RejectsMissingID(t *testing.T) {
	h := testHypothesis()
	h.ID = ""

	err := Validate(h)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHypothesis)
}

func TestValidate_RejectsNil(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrInvalidHypothesis)
}

func TestValidate_RejectsOutOfRangeScores(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Hypothesis)
	}{
		{"novelty above 100", func(h *Hypothesis) { h.NoveltyScore = 101 }},
		{"negative feasibility", func(h *Hypothesis) { h.FeasibilityScore = -1 }},
		{"overall above 10", func(h *Hypothesis) { h.OverallScore = 10.5 }},
		{"relevance above 1", func(h *Hypothesis) { h.Evidence[0].Relevance = 1.2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHypothesis()
			tt.mutate(h)
			assert.ErrorIs(t, Validate(h), ErrInvalidHypothesis)
		})
	}
}

func TestContentHash_Deterministic(t *testing.T) {
	a := testHypothesis()
	b := testHypothesis()

	assert.Equal(t, ContentHash(a), ContentHash(b))
	assert.Len(t, ContentHash(a), 64)
}

func TestContentHash_IgnoresFieldsOutsideProjection(t *testing.T) {
	a := testHypothesis()
	b := testHypothesis()
	b.Title = "renamed"
	b.ImpactScore = 10
	b.Evidence = nil
	b.ValidationMetrics = append(b.ValidationMetrics, "extra metric")

	assert.Equal(t, ContentHash(a), ContentHash(b))
}

func TestContentHash_ChangesWithProjection(t *testing.T) {
	base := ContentHash(testHypothesis())

	tests := []struct {
		name   string
		mutate func(*Hypothesis)
	}{
		{"id", func(h *Hypothesis) { h.ID = "hyp-002" }},
		{"statement prefix", func(h *Hypothesis) { h.Statement = "different claim" }},
		{"prediction count", func(h *Hypothesis) { h.Predictions = h.Predictions[:1] }},
		{"mechanism steps", func(h *Hypothesis) { h.Mechanism.Steps = nil }},
		{"novelty", func(h *Hypothesis) { h.NoveltyScore = 10 }},
		{"feasibility", func(h *Hypothesis) { h.FeasibilityScore = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testHypothesis()
			tt.mutate(h)
			assert.NotEqual(t, base, ContentHash(h))
		})
	}
}

func TestContentHash_StatementPrefixBounded(t *testing.T) {
	a := testHypothesis()
	b := testHypothesis()
	long := strings.Repeat("x", statementPrefixLen)
	a.Statement = long + "tail one"
	b.Statement = long + "a completely different tail"

	assert.Equal(t, ContentHash(a), ContentHash(b))
}

func TestPrediction_Quantified(t *testing.T) {
	v := 5.0
	assert.True(t, Prediction{ExpectedValue: &v, Unit: "MW"}.Quantified())
	assert.False(t, Prediction{ExpectedValue: &v}.Quantified())
	assert.False(t, Prediction{Unit: "MW"}.Quantified())
}
