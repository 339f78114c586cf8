// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package compute

import "context"

// Parameter keys the bridge populates on submitted tasks.
const (
	ParamOverallScore = "overall_score"
	ParamNovelty      = "novelty_score"
	ParamFeasibility  = "feasibility_score"
	ParamIterations   = "iterations"
)

// HeuristicRunner is the built-in stand-in simulation engine.
//
// # Description
//
// Derives physics/economics verdicts from the generation-stage score carried
// in task parameters, with confidence scaling slightly with tier fidelity.
// It exists so the CLI and tests can run the full pipeline without the real
// GPU simulation backend; it is not a source of physical truth.
func HeuristicRunner(ctx context.Context, task Task) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	score := task.Parameters[ParamOverallScore]
	tierBonus := 0.02 * float64(task.Tier)

	physicsConf := clamp01(0.55 + score/20 + tierBonus)
	econConf := clamp01(0.45 + score/20 + tierBonus)

	lcoe := 0.12 - score*0.008
	if lcoe < 0.02 {
		lcoe = 0.02
	}

	return &Result{
		HypothesisID: task.HypothesisID,
		Tier:         task.Tier,
		Physics: PhysicsOutcome{
			Valid:      score >= 5.0,
			Confidence: physicsConf,
		},
		Economics: EconomicsOutcome{
			Viable:     score >= 6.0,
			Confidence: econConf,
			LCOEMean:   lcoe,
		},
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 0.99 {
		return 0.99
	}
	return v
}
