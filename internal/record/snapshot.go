// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package record

import (
	"strconv"
	"time"
)

// timeLayout is the ISO-8601 form used everywhere a timestamp is persisted.
const timeLayout = time.RFC3339Nano

// Snapshot is a read-only copy of the record taken at cycle end. Sinks must
// not mutate it; Values is a private copy per snapshot.
type Snapshot struct {
	Time     time.Time
	Cycle    int64
	Updated  int
	Expected int
	Fields   []string
	Values   map[string]float64
}

// Object returns the structured form shared by the checkpoint file and the
// remote backup payload: time, cidx, cattr plus one entry per active field.
func (s Snapshot) Object() map[string]any {
	obj := make(map[string]any, len(s.Fields)+3)
	obj["time"] = s.Time.Format(timeLayout)
	obj["cidx"] = s.Cycle
	obj["cattr"] = s.Updated
	for _, f := range s.Fields {
		obj[f] = s.Values[f]
	}
	return obj
}

// Header returns the CSV header row: bookkeeping columns then the active
// fields in persisted order. The database column list is identical.
func (s Snapshot) Header() []string {
	row := append([]string{"time", "cidx", "cattr"}, s.Fields...)
	return row
}

// Row returns one CSV row matching Header.
func (s Snapshot) Row() []string {
	row := make([]string, 0, len(s.Fields)+3)
	row = append(row,
		s.Time.Format(timeLayout),
		strconv.FormatInt(s.Cycle, 10),
		strconv.Itoa(s.Updated),
	)
	for _, f := range s.Fields {
		row = append(row, strconv.FormatFloat(s.Values[f], 'f', -1, 64))
	}
	return row
}
