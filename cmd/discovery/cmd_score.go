// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/score"
)

// scoreCmd evaluates hypotheses against the twelve-dimension rubric.
//
// # Examples
//
//	discovery score hypothesis.json
//	discovery score a.json b.json --json
var scoreCmd = &cobra.Command{
	Use:   "score [file.json...]",
	Short: "Evaluate hypotheses against the breakthrough rubric",
	Long: `Scores one or more hypothesis JSON files on the twelve-dimension
rubric (five foundation, seven breakthrough dimensions), prints the
per-dimension table, the tier classification, and refinement feedback.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runScoreCommand,
}

func runScoreCommand(cmd *cobra.Command, args []string) {
	hs, err := loadHypotheses(args)
	if err != nil {
		OutputError(jsonOutput, "loading hypotheses", err)
		os.Exit(CLIExitError)
	}

	p, err := buildPipeline()
	if err != nil {
		OutputError(jsonOutput, "building pipeline", err)
		os.Exit(CLIExitError)
	}
	defer p.Close()

	exit := CLIExitSuccess
	for _, h := range hs {
		result, err := p.evaluator.Evaluate(h)
		if err != nil {
			OutputError(jsonOutput, "scoring "+h.ID, err)
			os.Exit(CLIExitError)
		}
		if jsonOutput {
			if err := OutputJSON(result, false); err != nil {
				os.Exit(CLIExitError)
			}
		} else {
			printScore(os.Stdout, h.Title, result)
		}
		if !result.MeetsBreakthrough {
			exit = CLIExitFindings
		}
	}
	os.Exit(exit)
}

// printScore renders the dimension table and feedback for one hypothesis.
func printScore(w io.Writer, title string, s *score.HybridBreakthroughScore) {
	fmt.Fprintf(w, "\n%s (%s)\n", title, s.HypothesisID)
	fmt.Fprintf(w, "Overall: %.2f/10  Tier: %s\n", s.OverallScore, s.Tier)
	fmt.Fprintf(w, "Foundation: %.2f/5.0  Breakthrough: %.2f/5.0\n",
		s.FoundationScore, s.BreakthroughScore)
	if s.MeetsBreakthrough {
		fmt.Fprintln(w, "Meets breakthrough criteria: yes")
	} else {
		fmt.Fprintln(w, "Meets breakthrough criteria: no")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nDIMENSION\tSCORE\tPCT\tPASS\tCRITERION")
	for _, d := range s.Dimensions {
		pass := " "
		if d.Passed {
			pass = "x"
		}
		fmt.Fprintf(tw, "%s\t%.2f/%.2f\t%.0f%%\t%s\t%s\n",
			d.Dimension, d.Score, d.MaxScore, d.Percentage, pass, d.CriteriaMatched)
	}
	tw.Flush()

	fb := s.Feedback
	if fb.PrimaryFocus != "" {
		fmt.Fprintf(w, "\nPrimary focus: %s\n", fb.PrimaryFocus)
	}
	if fb.SecondaryFocus != "" {
		fmt.Fprintf(w, "Secondary focus: %s\n", fb.SecondaryFocus)
	}
	if fb.PathToNextTier != "" {
		fmt.Fprintf(w, "Path to next tier: %s\n", fb.PathToNextTier)
	}
	for _, b := range fb.Blockers {
		fmt.Fprintf(w, "Blocker: %s\n", b)
	}
}
