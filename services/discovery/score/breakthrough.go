// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package score

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
)

// breakthroughSignals maps BD dimensions to their raw signal functions.
var breakthroughSignals = map[Dimension]signalFunc{
	BD1: performanceSignal,
	BD2: costSignal,
	BD3: crossDomainSignal,
	BD4: marketSignal,
	BD5: scalabilitySignal,
	BD6: trajectorySignal,
	BD7: societalSignal,
}

var (
	percentRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	multipleRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*[x×]\s*(?:improvement|faster|better|increase|gain|higher)`)
)

// keywordWindow is how far around a numeric match context keywords are
// searched for.
const keywordWindow = 48

var performanceKeywords = []string{"improv", "increase", "gain", "boost", "higher", "faster", "efficien", "greater", "enhance"}
var costKeywords = []string{"cost", "price", "lcoe", "capex", "opex", "cheaper", "afford", "$"}
var reductionKeywords = []string{"reduc", "lower", "cut", "decrease", "drop", "sav", "cheaper"}

// largestPercentNear returns the largest percentage whose surrounding window
// contains at least one keyword from each keyword set.
func largestPercentNear(text string, keywordSets ...[]string) float64 {
	best := 0.0
	for _, loc := range percentRe.FindAllStringSubmatchIndex(text, -1) {
		start := loc[0] - keywordWindow
		if start < 0 {
			start = 0
		}
		end := loc[1] + keywordWindow
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]

		matched := true
		for _, set := range keywordSets {
			if !containsAny(window, set) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		pct, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
		if err == nil && pct > best {
			best = pct
		}
	}
	return best
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// noveltyBonusThreshold and noveltyBonus shape BD1's novelty kicker.
const (
	noveltyBonusThreshold = 80.0
	noveltyBonus          = 10.0
)

// performanceSignal (BD1): the largest performance-gain percentage in the
// claim text, via percentage deltas or "Nx improvement" phrasing, plus a
// bonus for high self-reported novelty.
func performanceSignal(h *hypothesis.Hypothesis) float64 {
	text := strings.ToLower(claimText(h))

	gain := largestPercentNear(text, performanceKeywords)

	for _, m := range multipleRe.FindAllStringSubmatch(text, -1) {
		factor, err := strconv.ParseFloat(m[1], 64)
		if err == nil && factor > 1 {
			if delta := (factor - 1) * 100; delta > gain {
				gain = delta
			}
		}
	}

	if h.NoveltyScore > noveltyBonusThreshold {
		gain += noveltyBonus
	}
	if gain > 100 {
		gain = 100
	}
	return gain
}

// costFallbackFraction scales the impact score when no explicit cost claim
// exists; deliberately conservative.
const costFallbackFraction = 0.3

// costSignal (BD2): the largest cost-reduction percentage found near cost
// keywords; falls back to a conservative fraction of the impact score.
func costSignal(h *hypothesis.Hypothesis) float64 {
	text := strings.ToLower(fullText(h))

	reduction := largestPercentNear(text, costKeywords, reductionKeywords)
	if reduction > 0 {
		if reduction > 100 {
			reduction = 100
		}
		return reduction
	}
	return h.ImpactScore * costFallbackFraction
}

// domainVocabulary clusters keywords by technical domain for BD3.
var domainVocabulary = map[string][]string{
	"biology":       {"protein", "enzyme", "cell", "photosynthe", "biolog", "organism", "dna", "microb"},
	"aerospace":     {"aerospace", "satellite", "orbital", "aircraft", "propulsion", "spacecraft"},
	"automotive":    {"automotive", "vehicle", "battery pack", "drivetrain", "ev charging"},
	"semiconductor": {"semiconductor", "bandgap", "wafer", "doping", "transistor", "photolithograph"},
	"materials":     {"perovskite", "alloy", "polymer", "nanostructure", "crystal", "composite", "graphene"},
	"computing":     {"algorithm", "machine learning", "neural", "simulation", "compute", "quantum comput"},
	"chemistry":     {"catalyst", "electrolyte", "reaction", "oxidation", "electrochem", "polymeriz"},
	"physics":       {"thermodynamic", "quantum", "photon", "entropy", "plasmon", "phonon", "exergy"},
}

// Bucketed BD3 signals by distinct domain count.
const (
	crossDomainHigh   = 90.0 // three or more domains
	crossDomainMedium = 65.0 // two domains
	crossDomainLow    = 40.0 // one domain
	crossDomainNone   = 10.0
)

// crossDomainSignal (BD3): counts distinct domain-vocabulary clusters in the
// statement and mechanism text.
func crossDomainSignal(h *hypothesis.Hypothesis) float64 {
	text := strings.ToLower(fullText(h))

	domains := 0
	for _, vocab := range domainVocabulary {
		if containsAny(text, vocab) {
			domains++
		}
	}

	switch {
	case domains >= 3:
		return crossDomainHigh
	case domains == 2:
		return crossDomainMedium
	case domains == 1:
		return crossDomainLow
	default:
		return crossDomainNone
	}
}

var disruptionMarkers = []string{"disrupt", "transform", "revolution", "obsolete", "displace", "redefine", "leapfrog"}

// marketSignal (BD4): impact score blended with disruption-language markers.
func marketSignal(h *hypothesis.Hypothesis) float64 {
	text := strings.ToLower(fullText(h))

	markers := 0.0
	for _, m := range disruptionMarkers {
		if strings.Contains(text, m) {
			markers += 10
		}
	}
	if markers > 40 {
		markers = 40
	}

	signal := h.ImpactScore*0.6 + markers
	if signal > 100 {
		signal = 100
	}
	return signal
}

// Deployment-scale points for BD5, monotonically increasing with scale.
const (
	scaleTerawatt = 50.0
	scaleGigawatt = 40.0
	scaleMegawatt = 25.0
	scaleLab      = 10.0
)

// Unit abbreviations must match whole tokens; a bare prefix scan would read
// "two" as TW and "mwcnt" as MW.
var (
	terawattRe = regexp.MustCompile(`\bterawatt|\btwh?\b`)
	gigawattRe = regexp.MustCompile(`\bgigawatt|\bgwh?\b`)
	megawattRe = regexp.MustCompile(`\bmegawatt|\bmwh?\b`)
	labScaleRe = regexp.MustCompile(`\blab\b|\blaborator|\bpilot|\bprototype`)
)

// scalabilitySignal (BD5): feasibility score blended with the largest
// deployment scale the text mentions.
func scalabilitySignal(h *hypothesis.Hypothesis) float64 {
	text := strings.ToLower(fullText(h))

	scale := 0.0
	switch {
	case terawattRe.MatchString(text):
		scale = scaleTerawatt
	case gigawattRe.MatchString(text):
		scale = scaleGigawatt
	case megawattRe.MatchString(text):
		scale = scaleMegawatt
	case labScaleRe.MatchString(text):
		scale = scaleLab
	}

	signal := h.FeasibilityScore*0.5 + scale
	if signal > 100 {
		signal = 100
	}
	return signal
}

var trajectoryMarkers = []string{"paradigm", "challenges the assumption", "contrary to", "unprecedented", "novel method", "rethink", "overturn", "first demonstration"}

// trajectorySignal (BD6): novelty score blended with paradigm-shift and
// assumption-challenging language.
func trajectorySignal(h *hypothesis.Hypothesis) float64 {
	text := strings.ToLower(fullText(h))

	markers := 0.0
	for _, m := range trajectoryMarkers {
		if strings.Contains(text, m) {
			markers += 15
		}
	}
	if markers > 40 {
		markers = 40
	}

	signal := h.NoveltyScore*0.6 + markers
	if signal > 100 {
		signal = 100
	}
	return signal
}

var societalKeywords = []string{"sustainab", "carbon", "emission", "clean energy", "renewable", "afford", "access", "health", "air quality", "equity", "decarboniz", "climate"}

// societalSignal (BD7): density of sustainability/accessibility/health
// keywords, 15 points each.
func societalSignal(h *hypothesis.Hypothesis) float64 {
	text := strings.ToLower(fullText(h))

	signal := 0.0
	for _, k := range societalKeywords {
		if strings.Contains(text, k) {
			signal += 15
		}
	}
	if signal > 100 {
		signal = 100
	}
	return signal
}
