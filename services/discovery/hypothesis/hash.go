// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package hypothesis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// statementPrefixLen bounds how much of the statement participates in the
// content hash. Edits past this prefix do not change the cache key.
const statementPrefixLen = 120

// ContentHash returns the deterministic cache key for a hypothesis.
//
// # Description
//
// The key is a SHA-256 digest over a fixed projection of the hypothesis:
// id, the first 120 characters of the statement, the prediction count, the
// mechanism step count, and the novelty and feasibility scores. The
// projection is deliberately narrow so that semantically-identical
// hypotheses collide predictably: mutating a field outside the projection
// (title, evidence text, impact score) yields the same key and therefore a
// cache hit.
//
// # Inputs
//
//   - h: The hypothesis to key. Must not be nil.
//
// # Outputs
//
//   - string: 64 hex characters.
func ContentHash(h *Hypothesis) string {
	statement := h.Statement
	if len(statement) > statementPrefixLen {
		statement = statement[:statementPrefixLen]
	}

	projection := fmt.Sprintf("%s|%s|%d|%d|%.4f|%.4f",
		h.ID,
		statement,
		len(h.Predictions),
		len(h.Mechanism.Steps),
		h.NoveltyScore,
		h.FeasibilityScore,
	)

	sum := sha256.Sum256([]byte(projection))
	return hex.EncodeToString(sum[:])
}
