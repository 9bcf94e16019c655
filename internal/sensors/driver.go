// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors implements the acquisition drivers. Each driver owns a
// fixed, disjoint set of record fields; the assignment lives in the catalog
// below so enabling a sensor is a config change, not a code edit.
package sensors

import (
	"context"

	"github.com/relabs-tech/weather_station/internal/record"
)

// Driver is a single blocking acquisition source. Read returns the values it
// managed to obtain, keyed by field name; a driver never reports fields
// outside its catalog entry.
type Driver interface {
	Name() string
	Fields() []string
	Read(ctx context.Context) (map[string]float64, error)
}

// catalog maps driver names to the fields they own. Disjointness across
// enabled drivers is validated at startup.
var catalog = map[string][]string{
	"serial_env":    {record.FieldTemperature, record.FieldHumidity},
	"pressure":      {record.FieldPressure},
	"rainfall":      {record.FieldRainfall},
	"windspeed":     {record.FieldWindSpeed},
	"winddirection": {record.FieldWindDirection},
	"uvindex":       {record.FieldUVIndex},
}

// FieldsFor returns the fields owned by the named driver.
func FieldsFor(name string) ([]string, bool) {
	fields, ok := catalog[name]
	return fields, ok
}
