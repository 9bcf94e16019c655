// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// The Arduino occasionally prints debug text around the JSON object; pull
// out the embedded object before giving up on a line.
var embeddedJSON = regexp.MustCompile(`\{.*\}`)

// SerialEnv reads temperature and humidity from the Arduino line link: one
// newline-terminated JSON object per read, keys "temp" and "humi".
type SerialEnv struct {
	port   io.ReadCloser
	reader *bufio.Reader
}

// OpenSerialEnv opens the serial port. A failure here is the one fatal
// startup condition: without the line link no record can ever be produced.
func OpenSerialEnv(portName string, baud uint) (*SerialEnv, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", portName, err)
	}
	return &SerialEnv{port: port, reader: bufio.NewReader(port)}, nil
}

func (s *SerialEnv) Name() string { return "serial_env" }

func (s *SerialEnv) Fields() []string {
	return []string{record.FieldTemperature, record.FieldHumidity}
}

// Read consumes exactly one line and extracts temp/humi from it.
func (s *SerialEnv) Read(_ context.Context) (map[string]float64, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return nil, &telemetry.AcquisitionError{
			Kind: telemetry.AcquisitionTimeout, Driver: s.Name(), Cause: err,
		}
	}
	return s.parseLine(line)
}

func (s *SerialEnv) parseLine(line string) (map[string]float64, error) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return nil, &telemetry.AcquisitionError{
			Kind: telemetry.AcquisitionTimeout, Driver: s.Name(),
			Cause: errors.New("empty line"),
		}
	}

	if raw[0] != '{' {
		raw = embeddedJSON.FindString(raw)
		if raw == "" {
			return nil, &telemetry.AcquisitionError{
				Kind: telemetry.AcquisitionMalformedPayload, Driver: s.Name(),
				Cause: fmt.Errorf("non-JSON line %q", strings.TrimSpace(line)),
			}
		}
	}

	var payload struct {
		Temp *float64 `json:"temp"`
		Humi *float64 `json:"humi"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &telemetry.AcquisitionError{
			Kind: telemetry.AcquisitionMalformedPayload, Driver: s.Name(), Cause: err,
		}
	}

	values := make(map[string]float64, 2)
	if payload.Temp != nil {
		values[record.FieldTemperature] = *payload.Temp
	}
	if payload.Humi != nil {
		values[record.FieldHumidity] = *payload.Humi
	}
	if len(values) == 0 {
		return nil, &telemetry.AcquisitionError{
			Kind: telemetry.AcquisitionMalformedPayload, Driver: s.Name(),
			Cause: fmt.Errorf("no temp/humi keys in %q", raw),
		}
	}
	return values, nil
}

// Close releases the serial port.
func (s *SerialEnv) Close() error {
	return s.port.Close()
}
