// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sinks

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// PostgresParams holds the connection parameters handed to the external
// loader process.
type PostgresParams struct {
	Database string
	User     string
	Host     string
	Port     int
	Table    string
	Password string
}

// Postgres stages the snapshot into a temporary CSV file and invokes psql's
// \copy against the configured table. The staging file is removed on every
// exit path; a non-zero exit from the loader is a sink-level error, not
// retried.
type Postgres struct {
	params PostgresParams

	// cmdName is the loader binary; overridable in tests.
	cmdName string
}

func NewPostgres(params PostgresParams) *Postgres {
	return &Postgres{params: params, cmdName: "psql"}
}

func (s *Postgres) Name() string { return "postgres" }

func (s *Postgres) Store(ctx context.Context, snap record.Snapshot) error {
	staging, err := s.writeStagingFile(snap)
	if err != nil {
		return &telemetry.SinkError{
			Kind: telemetry.SinkFilesystemFailure, Sink: s.Name(), Cause: err,
		}
	}
	defer os.Remove(staging)

	cmd := exec.CommandContext(ctx, s.cmdName, s.loaderArgs(snap, staging)...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+s.params.Password)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return &telemetry.SinkError{
			Kind: telemetry.SinkProcessFailure, Sink: s.Name(),
			Cause: fmt.Errorf("%s: %w: %s", s.cmdName, err, strings.TrimSpace(string(out))),
		}
	}
	return nil
}

// writeStagingFile writes one positional CSV row and returns the file path.
func (s *Postgres) writeStagingFile(snap record.Snapshot) (string, error) {
	f, err := os.CreateTemp("", "weather-load-*.csv")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(snap.Row()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write staging row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("flush staging row: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close staging file: %w", err)
	}
	return f.Name(), nil
}

// loaderArgs builds the psql invocation. The column list follows the
// snapshot's active fields so the table contract tracks the configuration.
func (s *Postgres) loaderArgs(snap record.Snapshot, staging string) []string {
	columns := strings.Join(snap.Header(), ", ")
	return []string{
		"-d", s.params.Database,
		"-U", s.params.User,
		"-h", s.params.Host,
		"-p", strconv.Itoa(s.params.Port),
		"-c", fmt.Sprintf(`\copy %s(%s) FROM '%s' CSV`, s.params.Table, columns, staging),
	}
}
