// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cdimurro/exergy-lab-sub008/pkg/logging"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/bridge"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/compute"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/score"
	"github.com/cdimurro/exergy-lab-sub008/services/discovery/validation"
)

// duration decodes yaml strings like "30s" or "10m"; yaml.v3 has no native
// time.Duration support.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}

// FileConfig is the config.yaml schema. Every field is optional; zero
// values fall through to the component defaults.
type FileConfig struct {
	Logging struct {
		Level string `yaml:"level"` // debug|info|warn|error
		Dir   string `yaml:"dir"`   // enables file logging when set
		JSON  bool   `yaml:"json"`
		Quiet bool   `yaml:"quiet"`
	} `yaml:"logging"`

	Pool struct {
		MaxConcurrent      int  `yaml:"max_concurrent"`
		DisableResultCache bool `yaml:"disable_result_cache"`
	} `yaml:"pool"`

	Cache struct {
		TTL        duration `yaml:"ttl"`
		MaxEntries int      `yaml:"max_entries"`
	} `yaml:"cache"`

	Bridge struct {
		AutoQueueThreshold         float64  `yaml:"auto_queue_threshold"`
		AutoQueueStartIteration    int      `yaml:"auto_queue_start_iteration"`
		PublishPoolStatusInterval  duration `yaml:"publish_pool_status_interval"`
		DisableAutoScoreAdjustment bool     `yaml:"disable_auto_score_adjustment"`
		SimulationType             string   `yaml:"simulation_type"`
	} `yaml:"bridge"`

	Validation struct {
		EnableGPU                    bool     `yaml:"enable_gpu"`
		StrictMode                   bool     `yaml:"strict_mode"`
		PhysicsConfidenceThreshold   float64  `yaml:"physics_confidence_threshold"`
		EconomicsConfidenceThreshold float64  `yaml:"economics_confidence_threshold"`
		LiteratureMinSupport         int      `yaml:"literature_min_support"`
		QuickTimeout                 duration `yaml:"quick_timeout"`
		StandardTimeout              duration `yaml:"standard_timeout"`
		ComprehensiveTimeout         duration `yaml:"comprehensive_timeout"`
	} `yaml:"validation"`
}

func (c *FileConfig) loggingConfig() logging.Config {
	return logging.Config{
		Level:   logging.ParseLevel(c.Logging.Level),
		LogDir:  c.Logging.Dir,
		Service: "discovery",
		JSON:    c.Logging.JSON,
		Quiet:   c.Logging.Quiet,
	}
}

func (c *FileConfig) poolConfig() compute.LocalPoolConfig {
	return compute.LocalPoolConfig{
		MaxConcurrent:      c.Pool.MaxConcurrent,
		DisableResultCache: c.Pool.DisableResultCache,
	}
}

func (c *FileConfig) cacheConfig() score.CacheConfig {
	return score.CacheConfig{
		TTL:        time.Duration(c.Cache.TTL),
		MaxEntries: c.Cache.MaxEntries,
	}
}

func (c *FileConfig) bridgeConfig() bridge.Config {
	return bridge.Config{
		AutoQueueThreshold:         c.Bridge.AutoQueueThreshold,
		AutoQueueStartIteration:    c.Bridge.AutoQueueStartIteration,
		PublishPoolStatusInterval:  time.Duration(c.Bridge.PublishPoolStatusInterval),
		DisableAutoScoreAdjustment: c.Bridge.DisableAutoScoreAdjustment,
		SimulationType:             c.Bridge.SimulationType,
	}
}

func (c *FileConfig) validationConfig() validation.Config {
	return validation.Config{
		EnableGPU:                    c.Validation.EnableGPU,
		StrictMode:                   c.Validation.StrictMode,
		PhysicsConfidenceThreshold:   c.Validation.PhysicsConfidenceThreshold,
		EconomicsConfidenceThreshold: c.Validation.EconomicsConfidenceThreshold,
		LiteratureMinSupport:         c.Validation.LiteratureMinSupport,
		QuickTimeout:                 time.Duration(c.Validation.QuickTimeout),
		StandardTimeout:              time.Duration(c.Validation.StandardTimeout),
		ComprehensiveTimeout:         time.Duration(c.Validation.ComprehensiveTimeout),
	}
}
