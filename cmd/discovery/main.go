// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command discovery runs the hypothesis scoring and validation pipeline
// from the terminal.
//
// Usage:
//
//	discovery score hypothesis.json
//	discovery validate hypothesis.json --level standard
//	discovery validate a.json b.json c.json --level quick
//	discovery pool-status
//
// Configuration is read from config.yaml in the working directory when
// present; every setting has a working default so the binary runs
// stand-alone.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var config FileConfig

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Fatalf("Error reading %s: %v", configPath, err)
			}
			// No file: run on defaults.
			return
		}
		if err := yaml.Unmarshal(raw, &config); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
	}
}
