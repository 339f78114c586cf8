// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package score

// Criteria tables, one per dimension, in descending threshold order. The
// evaluator selects the first bucket whose threshold the raw signal meets or
// exceeds; a signal below every threshold falls through to the last bucket.
//
// Fractions are shared across dimensions so pass (>=70%) and gate (>=80%)
// lines land on bucket boundaries: 90->1.00, 70->0.80, 50->0.60, 25->0.40,
// floor->0.25.
var criteriaTables = map[Dimension][]Criterion{
	FS1: {
		{Threshold: 90, Fraction: 1.00, Label: "nearly all predictions falsifiable or quantified"},
		{Threshold: 70, Fraction: 0.80, Label: "most predictions falsifiable or quantified"},
		{Threshold: 50, Fraction: 0.60, Label: "half of predictions testable"},
		{Threshold: 25, Fraction: 0.40, Label: "few testable predictions"},
		{Threshold: 0, Fraction: 0.25, Label: "no testable predictions"},
	},
	FS2: {
		{Threshold: 90, Fraction: 1.00, Label: "multiple well-cited relevant findings"},
		{Threshold: 70, Fraction: 0.80, Label: "several substantive evidence items"},
		{Threshold: 50, Fraction: 0.60, Label: "some supporting evidence"},
		{Threshold: 25, Fraction: 0.40, Label: "thin supporting evidence"},
		{Threshold: 0, Fraction: 0.25, Label: "no supporting evidence"},
	},
	FS3: {
		{Threshold: 90, Fraction: 1.00, Label: "multi-step mechanism grounded in physical principles"},
		{Threshold: 70, Fraction: 0.80, Label: "mechanism mostly described with principles"},
		{Threshold: 50, Fraction: 0.60, Label: "partial mechanism"},
		{Threshold: 25, Fraction: 0.40, Label: "sketchy mechanism"},
		{Threshold: 0, Fraction: 0.25, Label: "no causal mechanism"},
	},
	FS4: {
		{Threshold: 90, Fraction: 1.00, Label: "no physical-limit violations detected"},
		{Threshold: 70, Fraction: 0.80, Label: "minor grounding concerns"},
		{Threshold: 50, Fraction: 0.60, Label: "one physical-limit violation"},
		{Threshold: 25, Fraction: 0.40, Label: "multiple physical-limit violations"},
		{Threshold: 0, Fraction: 0.25, Label: "claims exceed fundamental limits"},
	},
	FS5: {
		{Threshold: 90, Fraction: 1.00, Label: "full metrics, variables, and balanced claims"},
		{Threshold: 70, Fraction: 0.80, Label: "metrics and variable definitions present"},
		{Threshold: 50, Fraction: 0.60, Label: "partial methodology"},
		{Threshold: 25, Fraction: 0.40, Label: "minimal methodology"},
		{Threshold: 0, Fraction: 0.25, Label: "no validation methodology"},
	},
	BD1: {
		{Threshold: 90, Fraction: 1.00, Label: "order-of-magnitude performance claim"},
		{Threshold: 70, Fraction: 0.80, Label: "large performance gain claimed"},
		{Threshold: 50, Fraction: 0.60, Label: "moderate performance gain"},
		{Threshold: 25, Fraction: 0.40, Label: "incremental performance gain"},
		{Threshold: 0, Fraction: 0.25, Label: "no quantified performance gain"},
	},
	BD2: {
		{Threshold: 90, Fraction: 1.00, Label: "dramatic cost reduction claimed"},
		{Threshold: 70, Fraction: 0.80, Label: "major cost reduction claimed"},
		{Threshold: 50, Fraction: 0.60, Label: "meaningful cost reduction"},
		{Threshold: 25, Fraction: 0.40, Label: "marginal cost relevance"},
		{Threshold: 0, Fraction: 0.25, Label: "no cost claim"},
	},
	BD3: {
		{Threshold: 90, Fraction: 1.00, Label: "synthesizes three or more domains"},
		{Threshold: 70, Fraction: 0.80, Label: "strong two-domain synthesis"},
		{Threshold: 50, Fraction: 0.60, Label: "bridges two domains"},
		{Threshold: 25, Fraction: 0.40, Label: "single-domain framing"},
		{Threshold: 0, Fraction: 0.25, Label: "no cross-domain signal"},
	},
	BD4: {
		{Threshold: 90, Fraction: 1.00, Label: "clear market-displacement potential"},
		{Threshold: 70, Fraction: 0.80, Label: "strong disruption signals"},
		{Threshold: 50, Fraction: 0.60, Label: "moderate market impact"},
		{Threshold: 25, Fraction: 0.40, Label: "limited market framing"},
		{Threshold: 0, Fraction: 0.25, Label: "no market relevance stated"},
	},
	BD5: {
		{Threshold: 90, Fraction: 1.00, Label: "grid-scale deployment path"},
		{Threshold: 70, Fraction: 0.80, Label: "utility-scale deployment plausible"},
		{Threshold: 50, Fraction: 0.60, Label: "pilot-scale deployment path"},
		{Threshold: 25, Fraction: 0.40, Label: "lab-scale only"},
		{Threshold: 0, Fraction: 0.25, Label: "no deployment path"},
	},
	BD6: {
		{Threshold: 90, Fraction: 1.00, Label: "paradigm-shifting direction"},
		{Threshold: 70, Fraction: 0.80, Label: "challenges standing assumptions"},
		{Threshold: 50, Fraction: 0.60, Label: "novel methodology"},
		{Threshold: 25, Fraction: 0.40, Label: "incremental direction"},
		{Threshold: 0, Fraction: 0.25, Label: "follows established trajectory"},
	},
	BD7: {
		{Threshold: 90, Fraction: 1.00, Label: "broad sustainability and access benefits"},
		{Threshold: 70, Fraction: 0.80, Label: "clear societal benefits"},
		{Threshold: 50, Fraction: 0.60, Label: "some societal relevance"},
		{Threshold: 25, Fraction: 0.40, Label: "weak societal framing"},
		{Threshold: 0, Fraction: 0.25, Label: "no societal benefit stated"},
	},
}

// selectCriterion returns the awarded bucket for a raw signal plus the next
// bucket up (nil at the top), which feedback uses as the lowest unmet
// criterion.
func selectCriterion(d Dimension, signal float64) (awarded Criterion, nextUp *Criterion) {
	table := criteriaTables[d]
	for i, c := range table {
		if signal >= c.Threshold {
			if i > 0 {
				return c, &table[i-1]
			}
			return c, nil
		}
	}
	// Fall through to the lowest bucket.
	last := table[len(table)-1]
	return last, &table[len(table)-2]
}
