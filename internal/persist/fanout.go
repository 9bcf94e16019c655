// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package persist runs the per-cycle sink fan-out.
package persist

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/relabs-tech/weather_station/internal/checkpoint"
	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/sinks"
)

// Result is the outcome of one sink for one cycle. The checkpoint write
// appears as a sink named "checkpoint".
type Result struct {
	Sink string
	Err  error
}

// Run launches every sink plus the checkpoint write concurrently against the
// same read-only snapshot and blocks until all have returned. This barrier
// is what keeps at most one record in flight: cycle N+1 acquisition cannot
// start while any of cycle N's sinks is still working. One sink failing
// never blocks or corrupts the others.
func Run(ctx context.Context, snap record.Snapshot, sinkList []sinks.Sink, ckpt *checkpoint.Store, log *zap.Logger) []Result {
	results := make([]Result, len(sinkList)+1)

	var wg sync.WaitGroup
	for i, s := range sinkList {
		wg.Add(1)
		go func(i int, s sinks.Sink) {
			defer wg.Done()
			err := s.Store(ctx, snap)
			if err != nil {
				log.Warn("sink store failed",
					zap.String("sink", s.Name()),
					zap.Int64("cidx", snap.Cycle),
					zap.Error(err))
			}
			results[i] = Result{Sink: s.Name(), Err: err}
		}(i, s)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		err := ckpt.Save(snap)
		if err != nil {
			log.Warn("checkpoint save failed",
				zap.Int64("cidx", snap.Cycle),
				zap.Error(err))
		}
		results[len(sinkList)] = Result{Sink: "checkpoint", Err: err}
	}()

	wg.Wait()
	return results
}
