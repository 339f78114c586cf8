// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
)

// FallbackPolicy produces physics/economics verdicts when the compute
// bridge is absent or its call rejects. The pipeline keeps functioning with
// degraded confidence rather than failing outright.
type FallbackPolicy interface {
	Physics(h *hypothesis.Hypothesis) PhysicsValidation
	Economics(h *hypothesis.Hypothesis) EconomicsValidation
}

// scoreHeuristicFallback derives verdicts solely from the self-reported
// overall score of the prior generation stage.
type scoreHeuristicFallback struct{}

// NewScoreHeuristicFallback returns the default fallback policy: physics
// valid iff score >= 5.0 with confidence 0.5 + score/20, economics viable
// iff score >= 6.0 with confidence 0.4 + score/20.
func NewScoreHeuristicFallback() FallbackPolicy {
	return scoreHeuristicFallback{}
}

func (scoreHeuristicFallback) Physics(h *hypothesis.Hypothesis) PhysicsValidation {
	return PhysicsValidation{
		Valid:      h.OverallScore >= 5.0,
		Confidence: clamp01(0.5 + h.OverallScore/20),
		Fallback:   true,
	}
}

func (scoreHeuristicFallback) Economics(h *hypothesis.Hypothesis) EconomicsValidation {
	return EconomicsValidation{
		Viable:     h.OverallScore >= 6.0,
		Confidence: clamp01(0.4 + h.OverallScore/20),
		Fallback:   true,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
