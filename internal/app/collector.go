// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package app wires the station binaries: the collector loop and the
// console, web and display monitors.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/weather_station/internal/acquire"
	"github.com/relabs-tech/weather_station/internal/checkpoint"
	"github.com/relabs-tech/weather_station/internal/config"
	"github.com/relabs-tech/weather_station/internal/persist"
	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/sensors"
	"github.com/relabs-tech/weather_station/internal/sinks"
)

// Collector owns the cycle loop: stamp the record, fan out acquisition, fan
// out persistence, hold the cadence. All state is constructed once in New
// and threaded through by reference.
type Collector struct {
	log     *zap.Logger
	rec     *record.Record
	drivers []sensors.Driver
	sinks   []sinks.Sink
	ckpt    *checkpoint.Store
	cadence time.Duration

	serialDrv *sensors.SerialEnv
	mqttSink  *sinks.MQTT
}

// New builds the collector from configuration: active field set, record
// seeded from the checkpoint, drivers and sinks. The only fatal condition is
// an unavailable serial line link — without it no record could ever be
// produced.
func New(cfg *config.Config, log *zap.Logger) (*Collector, error) {
	fields, err := activeFields(cfg.Sensors)
	if err != nil {
		return nil, err
	}

	rec, err := record.New(fields)
	if err != nil {
		return nil, err
	}

	ckpt := checkpoint.NewStore(cfg.CheckpointPath)
	if seed, err := ckpt.Load(fields); err != nil {
		log.Warn("no usable checkpoint, starting from zero defaults", zap.Error(err))
	} else {
		rec.Seed(seed.Values)
		log.Info("resuming from checkpoint",
			zap.String("time", seed.Time),
			zap.Int64("last_cidx", seed.LastCycle))
	}

	c := &Collector{
		log:     log,
		rec:     rec,
		ckpt:    ckpt,
		cadence: cfg.Cadence(),
	}

	if err := c.buildDrivers(cfg); err != nil {
		return nil, err
	}
	c.buildSinks(cfg)

	return c, nil
}

// activeFields resolves the enabled drivers to the record's field set and
// rejects any configuration where two drivers would own the same field.
func activeFields(enabled []string) ([]string, error) {
	var fields []string
	owner := make(map[string]string)
	for _, name := range enabled {
		fs, ok := sensors.FieldsFor(name)
		if !ok {
			return nil, fmt.Errorf("unknown sensor driver %q", name)
		}
		for _, f := range fs {
			if prev, dup := owner[f]; dup {
				return nil, fmt.Errorf("field %q claimed by both %s and %s", f, prev, name)
			}
			owner[f] = name
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func (c *Collector) buildDrivers(cfg *config.Config) error {
	dgOpts := sensors.DataGovOptions{
		BaseURL:   cfg.DataGovBaseURL,
		StationID: cfg.DataGovStationID,
		APIKey:    cfg.DataGovAPIKey,
		Timeout:   time.Duration(cfg.DataGovTimeoutSeconds) * time.Second,
	}

	for _, name := range cfg.Sensors {
		switch name {
		case "serial_env":
			drv, err := sensors.OpenSerialEnv(cfg.SerialPort, cfg.SerialBaud)
			if err != nil {
				return fmt.Errorf("hardware line link unavailable: %w", err)
			}
			c.serialDrv = drv
			c.drivers = append(c.drivers, drv)
		case "pressure":
			c.drivers = append(c.drivers, sensors.NewPressure(cfg.PressureI2CBus, cfg.PressureI2CAddr))
		case "rainfall":
			c.drivers = append(c.drivers, sensors.NewRainfall(dgOpts))
		case "windspeed":
			c.drivers = append(c.drivers, sensors.NewWindSpeed(dgOpts))
		case "winddirection":
			c.drivers = append(c.drivers, sensors.NewWindDirection(dgOpts))
		case "uvindex":
			c.drivers = append(c.drivers, sensors.NewUVIndex(dgOpts))
		}
	}
	return nil
}

func (c *Collector) buildSinks(cfg *config.Config) {
	for _, name := range cfg.Sinks {
		switch name {
		case "csv":
			c.sinks = append(c.sinks, sinks.NewCSVLog(cfg.CSVPath))
		case "postgres":
			c.sinks = append(c.sinks, sinks.NewPostgres(sinks.PostgresParams{
				Database: cfg.DBName,
				User:     cfg.DBUser,
				Host:     cfg.DBHost,
				Port:     cfg.DBPort,
				Table:    cfg.DBTable,
				Password: cfg.DBPassword,
			}))
		case "backup":
			c.sinks = append(c.sinks, sinks.NewBackup(
				cfg.BackupURL,
				cfg.BackupAPIKey,
				time.Duration(cfg.BackupTimeoutSeconds)*time.Second,
			))
		case "mqtt":
			sink, err := sinks.NewMQTT(cfg.MQTTBroker, cfg.MQTTClientIDCollector, cfg.MQTTTopic)
			if err != nil {
				// Live publishing is best-effort; the durable sinks carry on.
				c.log.Warn("mqtt sink disabled", zap.Error(err))
				continue
			}
			c.mqttSink = sink
			c.sinks = append(c.sinks, sink)
		}
	}
}

// Run executes cycles until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) error {
	c.log.Info("starting collector",
		zap.Duration("cadence", c.cadence),
		zap.Strings("fields", c.rec.Fields()),
		zap.Int("drivers", len(c.drivers)),
		zap.Int("sinks", len(c.sinks)))

	for {
		c.runCycle(ctx)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// runCycle performs one complete cycle including the cadence sleep.
func (c *Collector) runCycle(ctx context.Context) {
	cycleStart := time.Now()
	c.rec.StartCycle(cycleStart)

	acquired := acquire.Run(ctx, c.rec, c.drivers, c.log)

	snap := c.rec.Snapshot()
	persisted := persist.Run(ctx, snap, c.sinks, c.ckpt, c.log)

	c.logSummary(snap, acquired, persisted)

	elapsed := time.Since(cycleStart)
	if elapsed < c.cadence {
		select {
		case <-time.After(c.cadence - elapsed):
		case <-ctx.Done():
		}
	} else {
		c.log.Warn("cycle overran cadence",
			zap.Int64("cidx", snap.Cycle),
			zap.Duration("cadence", c.cadence),
			zap.Duration("elapsed", elapsed),
			zap.Duration("overrun", elapsed-c.cadence))
	}
}

// logSummary emits the per-cycle operator line: which sensors were read,
// which sinks succeeded, and the field values that went out.
func (c *Collector) logSummary(snap record.Snapshot, acquired []acquire.Result, persisted []persist.Result) {
	var sensorsOK, sensorsFailed []string
	for _, r := range acquired {
		if r.Err != nil {
			sensorsFailed = append(sensorsFailed, r.Driver)
		} else {
			sensorsOK = append(sensorsOK, r.Driver)
		}
	}

	var sinksOK, sinksFailed []string
	for _, r := range persisted {
		if r.Err != nil {
			sinksFailed = append(sinksFailed, r.Sink)
		} else {
			sinksOK = append(sinksOK, r.Sink)
		}
	}

	fields := make([]zap.Field, 0, len(snap.Fields)+7)
	fields = append(fields,
		zap.Int64("cidx", snap.Cycle),
		zap.Int("cattr", snap.Updated),
		zap.Int("expected", snap.Expected),
		zap.Strings("sensors_ok", sensorsOK),
		zap.Strings("sensors_failed", sensorsFailed),
		zap.Strings("sinks_ok", sinksOK),
		zap.Strings("sinks_failed", sinksFailed),
	)
	for _, f := range snap.Fields {
		fields = append(fields, zap.Float64(f, snap.Values[f]))
	}
	c.log.Info("cycle complete", fields...)
}

// Close releases the hardware link and the MQTT connection.
func (c *Collector) Close() {
	if c.serialDrv != nil {
		if err := c.serialDrv.Close(); err != nil {
			c.log.Warn("serial close failed", zap.Error(err))
		}
	}
	if c.mqttSink != nil {
		c.mqttSink.Close()
	}
}
