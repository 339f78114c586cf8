// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cdimurro/exergy-lab-sub008/pkg/logging"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/bridge"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/compute"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/events"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/hypothesis"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/observability"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/score"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/validation"
)

// --- Global Command Variables ---
var (
	configPath string
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "discovery",
		Short: "Score and validate energy research hypotheses",
		Long: `Discovery runs the hypothesis scoring and validation pipeline:
a twelve-dimension breakthrough rubric, tiered compute simulation, and
multi-level validation with literature and quality checks.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml",
		"Path to the pipeline configuration file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output as JSON for scripting")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(poolStatusCmd)
}

// =============================================================================
// PIPELINE WIRING
// =============================================================================

// pipeline holds the assembled components behind one command run.
type pipeline struct {
	logger    *logging.Logger
	bus       *events.Bus
	pool      *compute.LocalPool
	bridge    *bridge.Bridge
	engine    *validation.Engine
	evaluator *score.Evaluator

	stopMetrics func()
}

// buildPipeline wires the full stand-alone stack: local pool with the
// heuristic runner, event bus, compute bridge, validation engine, rubric
// evaluator, and prometheus metrics observing the bus.
func buildPipeline() (*pipeline, error) {
	logger := logging.New(config.loggingConfig())
	slogger := logger.Slog()

	bus := events.NewBus(events.WithLogger(slogger))

	pool, err := compute.NewLocalPool(compute.HeuristicRunner, config.poolConfig(), slogger)
	if err != nil {
		return nil, fmt.Errorf("building compute pool: %w", err)
	}

	br, err := bridge.New(pool, bus, config.bridgeConfig(), slogger)
	if err != nil {
		return nil, fmt.Errorf("building compute bridge: %w", err)
	}
	br.Start()

	engine, err := validation.NewEngine(config.validationConfig(),
		validation.WithBridge(br),
		validation.WithBus(bus),
		validation.WithEngineLogger(slogger),
	)
	if err != nil {
		return nil, fmt.Errorf("building validation engine: %w", err)
	}

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	stopMetrics := metrics.ObserveBus(bus)

	cacheCfg := config.cacheConfig()
	cacheCfg.Recorder = metrics
	cache := score.NewScoreCache(cacheCfg)
	evaluator := score.NewEvaluator(
		score.WithCache(cache),
		score.WithEvaluatorBus(bus),
		score.WithEvaluatorLogger(slogger),
	)

	return &pipeline{
		logger:      logger,
		bus:         bus,
		pool:        pool,
		bridge:      br,
		engine:      engine,
		evaluator:   evaluator,
		stopMetrics: stopMetrics,
	}, nil
}

func (p *pipeline) Close() {
	p.stopMetrics()
	p.bridge.Stop()
	p.pool.Close()
	_ = p.logger.Close()
}

// =============================================================================
// INPUT LOADING
// =============================================================================

// loadHypotheses reads one hypothesis per JSON file.
func loadHypotheses(paths []string) ([]*hypothesis.Hypothesis, error) {
	hs := make([]*hypothesis.Hypothesis, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var h hypothesis.Hypothesis
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := hypothesis.Validate(&h); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		hs = append(hs, &h)
	}
	return hs, nil
}
