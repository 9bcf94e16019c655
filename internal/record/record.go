// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package record holds the accumulating measurement record for the current
// collection cycle and the read-only snapshots handed to the sinks.
package record

import (
	"fmt"
	"sync"
	"time"
)

// Field names as they appear in the checkpoint file, the CSV header and the
// database column list. The active set is chosen by configuration; unknown
// names are rejected at startup.
const (
	FieldTemperature   = "temp"
	FieldHumidity      = "humi"
	FieldPressure      = "pres"
	FieldWindSpeed     = "windspeed"
	FieldWindDirection = "winddirection"
	FieldRainfall      = "rainfall"
	FieldUVIndex       = "uvindex"
)

// CanonicalOrder is the fixed ordering of fields in persisted rows. Enabled
// fields always appear in this order regardless of driver configuration.
var CanonicalOrder = []string{
	FieldTemperature,
	FieldHumidity,
	FieldPressure,
	FieldWindSpeed,
	FieldWindDirection,
	FieldRainfall,
	FieldUVIndex,
}

// Record is the unit of work for one cycle. It is created once at process
// start, mutated in place by the acquisition fan-out, and re-stamped at the
// start of every cycle. Each driver owns a disjoint subset of fields; the
// mutex only guards the updated counter and the values map against the
// concurrent driver goroutines.
type Record struct {
	mu sync.Mutex

	fields   []string // active fields, canonical order
	time     time.Time
	cycle    int64 // cidx
	updated  int   // cattr: fields written this cycle
	expected int
	values   map[string]float64
}

// New creates a record for the given active field set. Field values start at
// zero until seeded from a checkpoint or written by a driver.
func New(fields []string) (*Record, error) {
	ordered := make([]string, 0, len(fields))
	want := make(map[string]bool, len(fields))
	for _, f := range fields {
		want[f] = true
	}
	for _, f := range CanonicalOrder {
		if want[f] {
			ordered = append(ordered, f)
			delete(want, f)
		}
	}
	for f := range want {
		return nil, fmt.Errorf("unknown field %q", f)
	}

	values := make(map[string]float64, len(ordered))
	for _, f := range ordered {
		values[f] = 0
	}
	return &Record{
		fields:   ordered,
		expected: len(ordered),
		values:   values,
	}, nil
}

// Fields returns the active field names in persisted order.
func (r *Record) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// Seed overwrites field values from a loaded checkpoint. Fields absent from
// the seed keep their zero default. Called once before the loop starts.
func (r *Record) Seed(values map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.fields {
		if v, ok := values[f]; ok {
			r.values[f] = v
		}
	}
}

// StartCycle stamps the record for a new cycle: the timestamp is fixed for
// the remainder of the cycle, the sequence index advances by exactly one and
// the updated counter resets. Field values are deliberately left alone so a
// failed read falls back to the previous value.
func (r *Record) StartCycle(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.time = now
	r.cycle++
	r.updated = 0
}

// Set writes one field value and counts it as updated for this cycle.
func (r *Record) Set(field string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.values[field]; !ok {
		return fmt.Errorf("field %q is not active", field)
	}
	r.values[field] = value
	r.updated++
	return nil
}

// Cycle returns the current sequence index.
func (r *Record) Cycle() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycle
}

// Snapshot returns an immutable copy for the persistence fan-out.
func (r *Record) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := make(map[string]float64, len(r.values))
	for f, v := range r.values {
		values[f] = v
	}
	return Snapshot{
		Time:     r.time,
		Cycle:    r.cycle,
		Updated:  r.updated,
		Expected: r.expected,
		Fields:   r.Fields(),
		Values:   values,
	}
}
