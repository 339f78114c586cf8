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

	"github.com/cdimurro/exergy-lab-sub008/services/discovery/compute"
)

var statusWarmCount int

// poolStatusCmd reports compute pool utilization and counters.
var poolStatusCmd = &cobra.Command{
	Use:   "pool-status",
	Short: "Show compute pool utilization and task counters",
	Long: `Builds the local compute pool, optionally warms instances on each
tier, and prints per-tier utilization plus cumulative task counters.`,
	Run: runPoolStatusCommand,
}

func init() {
	poolStatusCmd.Flags().IntVar(&statusWarmCount, "warm", 0,
		"Warm this many instances per tier before reporting")
}

func runPoolStatusCommand(cmd *cobra.Command, args []string) {
	p, err := buildPipeline()
	if err != nil {
		OutputError(jsonOutput, "building pipeline", err)
		os.Exit(CLIExitError)
	}
	defer p.Close()

	if statusWarmCount > 0 {
		ctx := context.Background()
		for _, tier := range []compute.Tier{compute.TierLow, compute.TierMedium, compute.TierHigh} {
			if err := p.bridge.WarmUp(ctx, tier, statusWarmCount); err != nil {
				OutputError(jsonOutput, "warming "+tier.String(), err)
				os.Exit(CLIExitError)
			}
		}
	}

	util := p.bridge.Utilization()
	metrics := p.bridge.Metrics()

	if jsonOutput {
		payload := map[string]any{
			"utilization": util,
			"metrics":     metrics,
		}
		if err := OutputJSON(payload, false); err != nil {
			os.Exit(CLIExitError)
		}
		return
	}
	printPoolStatus(os.Stdout, util, metrics)
}

func printPoolStatus(w io.Writer, util compute.Utilization, metrics compute.Metrics) {
	fmt.Fprintf(w, "Active: %d  Queued: %d\n", util.TotalActive, util.TotalQueued)
	for _, tier := range []compute.Tier{compute.TierLow, compute.TierMedium, compute.TierHigh} {
		fmt.Fprintf(w, "  %s: active=%d warm=%d\n",
			tier, util.ActiveByTier[tier], util.WarmByTier[tier])
	}
	fmt.Fprintf(w, "Submitted: %d  Completed: %d  Failed: %d  Cache hits: %d\n",
		metrics.TasksSubmitted, metrics.TasksCompleted, metrics.TasksFailed,
		metrics.CacheHits)
}
