// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package checkpoint persists the last completed record snapshot so a
// restarted process resumes from its previous field values.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// Store reads and writes the single checkpoint file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Seed is what a load yields: the previous field values plus the advisory
// bookkeeping of the last run. LastCycle is logging-only — the in-memory
// sequence index always restarts from zero.
type Seed struct {
	Time      string
	LastCycle int64
	Values    map[string]float64
}

// Load reads the checkpoint file. Missing or malformed content is reported
// as a typed error; the caller falls back to zero defaults either way.
// Unknown fields in the file are ignored, missing fields default to zero.
func (s *Store) Load(fields []string) (Seed, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		kind := telemetry.CheckpointMalformedContent
		if errors.Is(err, fs.ErrNotExist) {
			kind = telemetry.CheckpointMissingFile
		}
		return Seed{}, &telemetry.CheckpointError{Kind: kind, Cause: err}
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Seed{}, &telemetry.CheckpointError{
			Kind: telemetry.CheckpointMalformedContent, Cause: err,
		}
	}

	seed := Seed{Values: make(map[string]float64, len(fields))}
	if t, ok := obj["time"].(string); ok {
		seed.Time = t
	}
	if cidx, ok := obj["cidx"].(float64); ok {
		seed.LastCycle = int64(cidx)
	}
	for _, f := range fields {
		if v, ok := obj[f].(float64); ok {
			seed.Values[f] = v
		} else {
			seed.Values[f] = 0
		}
	}
	return seed, nil
}

// Save atomically overwrites the checkpoint with the snapshot: write to a
// temporary file in the same directory, then rename over the old one.
func (s *Store) Save(snap record.Snapshot) error {
	body, err := json.Marshal(snap.Object())
	if err != nil {
		return &telemetry.CheckpointError{Kind: telemetry.CheckpointWriteFailure, Cause: err}
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return &telemetry.CheckpointError{Kind: telemetry.CheckpointWriteFailure, Cause: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &telemetry.CheckpointError{
			Kind: telemetry.CheckpointWriteFailure, Cause: fmt.Errorf("write: %w", err),
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &telemetry.CheckpointError{
			Kind: telemetry.CheckpointWriteFailure, Cause: fmt.Errorf("close: %w", err),
		}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &telemetry.CheckpointError{
			Kind: telemetry.CheckpointWriteFailure, Cause: fmt.Errorf("rename: %w", err),
		}
	}
	return nil
}
