// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sinks implements the persistence destinations. Each sink consumes
// a read-only snapshot; sinks are mutually independent and never retried
// within a cycle.
package sinks

import (
	"context"

	"github.com/relabs-tech/weather_station/internal/record"
)

// Sink stores one finalized record snapshot.
type Sink interface {
	Name() string
	Store(ctx context.Context, snap record.Snapshot) error
}
