// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sinks

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// CSVLog appends one row per cycle to a local log file. It only ever
// appends; the header is written once when the file is created.
type CSVLog struct {
	path string
}

func NewCSVLog(path string) *CSVLog {
	return &CSVLog{path: path}
}

func (s *CSVLog) Name() string { return "csv" }

func (s *CSVLog) Store(_ context.Context, snap record.Snapshot) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &telemetry.SinkError{
			Kind: telemetry.SinkFilesystemFailure, Sink: s.Name(), Cause: err,
		}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &telemetry.SinkError{
			Kind: telemetry.SinkFilesystemFailure, Sink: s.Name(), Cause: err,
		}
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(snap.Header()); err != nil {
			return &telemetry.SinkError{
				Kind: telemetry.SinkFilesystemFailure, Sink: s.Name(),
				Cause: fmt.Errorf("write header: %w", err),
			}
		}
	}
	if err := w.Write(snap.Row()); err != nil {
		return &telemetry.SinkError{
			Kind: telemetry.SinkFilesystemFailure, Sink: s.Name(), Cause: err,
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &telemetry.SinkError{
			Kind: telemetry.SinkFilesystemFailure, Sink: s.Name(), Cause: err,
		}
	}
	return nil
}
