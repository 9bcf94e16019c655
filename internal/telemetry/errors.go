// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry defines the typed errors exchanged between the collector
// loop and its drivers, sinks and checkpoint store. Every failure below the
// scheduler is one of these; none of them aborts a cycle.
package telemetry

import "fmt"

// AcquisitionKind classifies sensor driver failures.
type AcquisitionKind string

const (
	AcquisitionTimeout             AcquisitionKind = "timeout"
	AcquisitionMalformedPayload    AcquisitionKind = "malformed_payload"
	AcquisitionDriverUninitialized AcquisitionKind = "driver_uninitialized"
)

// AcquisitionError reports a failed sensor read. The affected fields keep
// their previous values.
type AcquisitionError struct {
	Kind   AcquisitionKind
	Driver string
	Cause  error
}

func (e *AcquisitionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("driver %s: %s: %v", e.Driver, e.Kind, e.Cause)
	}
	return fmt.Sprintf("driver %s: %s", e.Driver, e.Kind)
}

func (e *AcquisitionError) Unwrap() error { return e.Cause }

// SinkKind classifies persistence failures.
type SinkKind string

const (
	SinkProcessFailure    SinkKind = "process_failure"
	SinkTransportTimeout  SinkKind = "transport_timeout"
	SinkTransportFailure  SinkKind = "transport_failure"
	SinkUnexpectedStatus  SinkKind = "unexpected_status"
	SinkFilesystemFailure SinkKind = "filesystem_failure"
)

// SinkError reports a failed store attempt for one sink. Sinks are mutually
// independent, so a SinkError never affects the other sinks of the cycle.
type SinkError struct {
	Kind  SinkKind
	Sink  string
	Cause error
}

func (e *SinkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sink %s: %s: %v", e.Sink, e.Kind, e.Cause)
	}
	return fmt.Sprintf("sink %s: %s", e.Sink, e.Kind)
}

func (e *SinkError) Unwrap() error { return e.Cause }

// CheckpointKind classifies checkpoint store failures.
type CheckpointKind string

const (
	CheckpointMissingFile      CheckpointKind = "missing_file"
	CheckpointMalformedContent CheckpointKind = "malformed_content"
	CheckpointWriteFailure     CheckpointKind = "write_failure"
)

// CheckpointError reports a failed checkpoint load or save. Both are
// non-fatal: a failed load falls back to zero defaults, a failed save is
// logged and the cycle continues.
type CheckpointError struct {
	Kind  CheckpointKind
	Cause error
}

func (e *CheckpointError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("checkpoint: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("checkpoint: %s", e.Kind)
}

func (e *CheckpointError) Unwrap() error { return e.Cause }
