// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestFileLogging(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "discovery",
		Quiet:   true,
	})
	logger.Info("validation complete", "hypothesis_id", "hyp-1", "score", 7.25)
	require.NoError(t, logger.Close())

	name := "discovery_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "validation complete", record["msg"])
	assert.Equal(t, "hyp-1", record["hypothesis_id"])
	assert.Equal(t, 7.25, record["score"])
	assert.Equal(t, "discovery", record["service"])
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "filter",
		Quiet:   true,
	})
	logger.Debug("discarded low")
	logger.Info("discarded mid")
	logger.Warn("kept")
	require.NoError(t, logger.Close())

	name := "filter_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	assert.Contains(t, string(data), "kept")
	assert.NotContains(t, string(data), "discarded")
}

func TestSinkReceivesEntries(t *testing.T) {
	sink := NewBufferedSink()
	logger := New(Config{Level: LevelInfo, Service: "sinked", Quiet: true, Sink: sink})
	defer logger.Close()

	logger.Info("queued", "task_id", "t1")
	logger.Error("failed", "task_id", "t2")
	logger.Debug("below level") // filtered before the sink

	// Export runs on its own goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(sink.Entries()) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	entries := sink.Entries()
	require.Len(t, entries, 2)
	byMsg := map[string]Entry{}
	for _, e := range entries {
		byMsg[e.Message] = e
	}
	assert.Equal(t, LevelInfo, byMsg["queued"].Level)
	assert.Equal(t, "t1", byMsg["queued"].Attrs["task_id"])
	assert.Equal(t, LevelError, byMsg["failed"].Level)
	assert.Equal(t, "sinked", byMsg["failed"].Service)
}

func TestWithAddsAttributes(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{LogDir: dir, Service: "child", Quiet: true})
	child := logger.With("run_id", "r-42")
	child.Info("scored")
	require.NoError(t, logger.Close())

	name := "child_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), "r-42")
}

func TestSlogAccessor(t *testing.T) {
	logger := New(Config{Quiet: true})
	defer logger.Close()
	assert.NotNil(t, logger.Slog())
}

func TestArgsToMap(t *testing.T) {
	m := argsToMap([]any{"a", 1, "b", "two", 3, "non-string-key"})
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, m)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".discovery/logs"), expandPath("~/.discovery/logs"))
	assert.Equal(t, "/var/log/discovery", expandPath("/var/log/discovery"))
}
