// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// Pressure reads barometric pressure from a BMP280-class sensor over I2C.
// Hardware init happens lazily on the first read; if it fails the driver
// keeps reporting uninitialized and the pressure field stays stale. The
// pressure sensor is deliberately non-fatal, unlike the serial link.
type Pressure struct {
	busName string
	addr    uint16

	once    sync.Once
	dev     *bmxx80.Dev
	initErr error
}

// NewPressure creates the driver. busName may be empty to use the first
// available I2C bus.
func NewPressure(busName string, addr uint16) *Pressure {
	return &Pressure{busName: busName, addr: addr}
}

func (p *Pressure) Name() string { return "pressure" }

func (p *Pressure) Fields() []string {
	return []string{record.FieldPressure}
}

// init initializes periph and the sensor once
func (p *Pressure) init() {
	if _, err := host.Init(); err != nil {
		p.initErr = fmt.Errorf("periph host init: %w", err)
		return
	}

	bus, err := i2creg.Open(p.busName)
	if err != nil {
		p.initErr = fmt.Errorf("I2C open %q: %w", p.busName, err)
		return
	}

	p.dev, err = bmxx80.NewI2C(bus, p.addr, &bmxx80.DefaultOpts)
	if err != nil {
		p.initErr = fmt.Errorf("BMP init at 0x%02X: %w", p.addr, err)
		return
	}
}

// Read senses once and returns the pressure in hectopascal.
func (p *Pressure) Read(_ context.Context) (map[string]float64, error) {
	p.once.Do(p.init)
	if p.initErr != nil {
		return nil, &telemetry.AcquisitionError{
			Kind: telemetry.AcquisitionDriverUninitialized, Driver: p.Name(), Cause: p.initErr,
		}
	}

	var e physic.Env
	if err := p.dev.Sense(&e); err != nil {
		return nil, &telemetry.AcquisitionError{
			Kind: telemetry.AcquisitionTimeout, Driver: p.Name(),
			Cause: fmt.Errorf("BMP sense: %w", err),
		}
	}

	pressurePa := float64(e.Pressure) / float64(physic.Pascal)
	return map[string]float64{
		record.FieldPressure: pressurePa / 100.0, // 1 hPa = 100 Pa
	}, nil
}
