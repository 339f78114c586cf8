// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package score

// Tier is the overall-score-derived classification label. Ordering is
// strict: Failure < PartialFailure < GeneralInsights < ScientificDiscovery
// < Breakthrough.
type Tier int

const (
	TierFailure Tier = iota
	TierPartialFailure
	TierGeneralInsights
	TierScientificDiscovery
	TierBreakthrough
)

// Classification thresholds over the 0-10 overall score.
const (
	tierBreakthroughMin = 9.0
	tierDiscoveryMin    = 7.5
	tierInsightsMin     = 6.0
	tierPartialMin      = 4.0
)

// String returns the wire name of the tier.
func (t Tier) String() string {
	switch t {
	case TierFailure:
		return "failure"
	case TierPartialFailure:
		return "partial_failure"
	case TierGeneralInsights:
		return "general_insights"
	case TierScientificDiscovery:
		return "scientific_discovery"
	case TierBreakthrough:
		return "breakthrough"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so tiers serialize as their
// wire names in JSON maps and fields.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ClassifyTier maps an overall score to its tier. Monotonic: a higher score
// never yields a lower tier.
func ClassifyTier(overallScore float64) Tier {
	switch {
	case overallScore >= tierBreakthroughMin:
		return TierBreakthrough
	case overallScore >= tierDiscoveryMin:
		return TierScientificDiscovery
	case overallScore >= tierInsightsMin:
		return TierGeneralInsights
	case overallScore >= tierPartialMin:
		return TierPartialFailure
	default:
		return TierFailure
	}
}

// Next returns the next tier up, or the same tier at the top.
func (t Tier) Next() Tier {
	if t >= TierBreakthrough {
		return TierBreakthrough
	}
	return t + 1
}
