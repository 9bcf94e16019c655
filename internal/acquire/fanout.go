// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package acquire runs the per-cycle sensor fan-out.
package acquire

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/sensors"
)

// Result is the outcome of one driver for one cycle.
type Result struct {
	Driver string
	Fields int // fields successfully written
	Err    error
}

// Run launches every driver concurrently and blocks until all of them have
// returned: a full barrier, so persistence always sees a fully assembled
// record. A failed driver only costs its own fields, which keep their
// previous values.
func Run(ctx context.Context, rec *record.Record, drivers []sensors.Driver, log *zap.Logger) []Result {
	results := make([]Result, len(drivers))

	var wg sync.WaitGroup
	for i, d := range drivers {
		wg.Add(1)
		go func(i int, d sensors.Driver) {
			defer wg.Done()

			values, err := d.Read(ctx)
			if err != nil {
				log.Warn("sensor read failed, keeping stale values",
					zap.String("driver", d.Name()),
					zap.Int64("cidx", rec.Cycle()),
					zap.Error(err))
				results[i] = Result{Driver: d.Name(), Err: err}
				return
			}

			written := 0
			for field, v := range values {
				if err := rec.Set(field, v); err != nil {
					log.Warn("driver reported inactive field",
						zap.String("driver", d.Name()),
						zap.String("field", field),
						zap.Error(err))
					continue
				}
				written++
			}
			results[i] = Result{Driver: d.Name(), Fields: written}
		}(i, d)
	}
	wg.Wait()

	return results
}
