// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/validation"
)

var validateLevel string

// validateCmd runs the validation engine on hypotheses.
//
// # Description
//
// Loads one or more hypothesis JSON files and validates each at the
// requested level. With --level auto the level is picked from the
// hypothesis's own generation-stage score. Multiple files at the quick
// level share a single batched compute submission.
//
// # Examples
//
//	discovery validate hypothesis.json
//	discovery validate hypothesis.json --level comprehensive
//	discovery validate a.json b.json --level quick --json
var validateCmd = &cobra.Command{
	Use:   "validate [file.json...]",
	Short: "Validate hypotheses with physics, economics, literature, and quality checks",
	Args:  cobra.MinimumNArgs(1),
	Run:   runValidateCommand,
}

func init() {
	validateCmd.Flags().StringVarP(&validateLevel, "level", "l", "auto",
		"Validation level: quick, standard, comprehensive, or auto")
}

func runValidateCommand(cmd *cobra.Command, args []string) {
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

	ctx := context.Background()
	var results []*validation.ValidationResult

	if validateLevel == "auto" {
		for _, h := range hs {
			r, err := p.engine.AutoValidate(ctx, h)
			if err != nil {
				OutputError(jsonOutput, "validating "+h.ID, err)
				os.Exit(CLIExitError)
			}
			results = append(results, r)
		}
	} else {
		level, err := validation.ParseLevel(validateLevel)
		if err != nil {
			OutputError(jsonOutput, "parsing level", err)
			os.Exit(CLIExitError)
		}
		results, err = p.engine.ValidateBatch(ctx, hs, level)
		if err != nil {
			OutputError(jsonOutput, "validating", err)
			os.Exit(CLIExitError)
		}
	}

	exit := CLIExitSuccess
	for _, r := range results {
		if jsonOutput {
			if err := OutputJSON(r, false); err != nil {
				os.Exit(CLIExitError)
			}
		} else {
			printValidation(os.Stdout, r)
		}
		if !r.Passed {
			exit = CLIExitFindings
		}
	}
	os.Exit(exit)
}

func printValidation(w io.Writer, r *validation.ValidationResult) {
	fmt.Fprintf(w, "\n%s  level=%s  score=%.2f/10  passed=%t  (%s)\n",
		r.HypothesisID, r.LevelName, r.OverallScore, r.Passed, r.Duration)
	fmt.Fprintf(w, "  physics: valid=%t confidence=%.2f", r.Physics.Valid, r.Physics.Confidence)
	if r.Physics.Fallback {
		fmt.Fprint(w, " (fallback)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  economics: viable=%t confidence=%.2f lcoe=%.3f",
		r.Economics.Viable, r.Economics.Confidence, r.Economics.LCOEMean)
	if r.Economics.Fallback {
		fmt.Fprint(w, " (fallback)")
	}
	fmt.Fprintln(w)
	if r.Literature != nil {
		fmt.Fprintf(w, "  literature: %d/%d claims supported, %d contradicted\n",
			r.Literature.SupportedClaims, r.Literature.TotalClaims,
			r.Literature.ContradictedClaims)
	}
	fmt.Fprintf(w, "  quality: completeness=%.1f testability=%.1f clarity=%.1f rigor=%.1f\n",
		r.Quality.Completeness, r.Quality.Testability, r.Quality.Clarity, r.Quality.Rigor)
	fmt.Fprintf(w, "  %s\n", r.Summary)
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(w, "  recommendation: %s\n", rec)
	}
}
