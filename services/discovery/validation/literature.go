// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"context"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
)

// LiteratureValidator cross-references hypothesis claims against published
// literature. The implementation lives outside this pipeline; the engine
// treats errors as an empty result rather than failing the run.
type LiteratureValidator interface {
	CrossReference(ctx context.Context, h *hypothesis.Hypothesis) (*LiteratureValidation, error)
}

// evidenceLiteratureValidator is the built-in stand-in: it treats attached
// evidence items as already-retrieved literature, counting cited and
// relevant items as supporting claims. It lets the pipeline run end to end
// without a retrieval backend.
type evidenceLiteratureValidator struct{}

// NewEvidenceLiteratureValidator returns the built-in evidence-derived
// validator.
func NewEvidenceLiteratureValidator() LiteratureValidator {
	return evidenceLiteratureValidator{}
}

func (evidenceLiteratureValidator) CrossReference(_ context.Context, h *hypothesis.Hypothesis) (*LiteratureValidation, error) {
	lit := &LiteratureValidation{TotalClaims: len(h.Predictions)}
	for _, e := range h.Evidence {
		if e.Citation == "" {
			continue
		}
		lit.References = append(lit.References, e.Citation)
		if e.Relevance >= 0.5 {
			lit.SupportedClaims++
		}
	}
	if lit.SupportedClaims > lit.TotalClaims {
		lit.SupportedClaims = lit.TotalClaims
	}
	return lit, nil
}
