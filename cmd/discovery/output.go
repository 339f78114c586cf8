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
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed successfully
	CLIExitFindings = 1 // Completed with failed validations or missed gates
	CLIExitError    = 2 // Operation failed
)

// OutputJSON writes structured data as JSON to stdout.
func OutputJSON(data any, compact bool) error {
	encoder := json.NewEncoder(os.Stdout)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// OutputError writes an error in the selected format to stderr.
func OutputError(jsonMode bool, msg string, err error) {
	if jsonMode {
		payload := map[string]string{"error": fmt.Sprintf("%s: %v", msg, err)}
		raw, _ := json.Marshal(payload)
		fmt.Fprintln(os.Stderr, string(raw))
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
