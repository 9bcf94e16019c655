// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

// The WAF in front of data.gov.sg rejects default Go user agents with 403.
const dataGovUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// DataGovOptions configures the optional remote drivers backed by the
// data.gov.sg v2 real-time API.
type DataGovOptions struct {
	BaseURL   string
	StationID string
	APIKey    string
	Timeout   time.Duration
}

// DataGov fetches one auxiliary environmental field per read. These drivers
// are disabled by default and enabled per-field via the SENSORS list.
type DataGov struct {
	name     string
	field    string
	endpoint string
	opts     DataGovOptions
	client   *http.Client
}

// NewRainfall reads rainfall in mm for the configured station.
func NewRainfall(opts DataGovOptions) *DataGov {
	return newDataGov("rainfall", record.FieldRainfall, "rainfall", opts)
}

// NewWindSpeed reads wind speed in knots for the configured station.
func NewWindSpeed(opts DataGovOptions) *DataGov {
	return newDataGov("windspeed", record.FieldWindSpeed, "wind-speed", opts)
}

// NewWindDirection reads wind direction in degrees for the configured station.
func NewWindDirection(opts DataGovOptions) *DataGov {
	return newDataGov("winddirection", record.FieldWindDirection, "wind-direction", opts)
}

// NewUVIndex reads the island-wide UV index.
func NewUVIndex(opts DataGovOptions) *DataGov {
	return newDataGov("uvindex", record.FieldUVIndex, "uv", opts)
}

func newDataGov(name, field, endpoint string, opts DataGovOptions) *DataGov {
	return &DataGov{
		name:     name,
		field:    field,
		endpoint: endpoint,
		opts:     opts,
		client:   &http.Client{Timeout: opts.Timeout},
	}
}

func (d *DataGov) Name() string { return d.name }

func (d *DataGov) Fields() []string {
	return []string{d.field}
}

func (d *DataGov) Read(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.opts.BaseURL+"/"+d.endpoint, nil)
	if err != nil {
		return nil, &telemetry.AcquisitionError{
			Kind: telemetry.AcquisitionMalformedPayload, Driver: d.name, Cause: err,
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", dataGovUserAgent)
	if d.opts.APIKey != "" {
		req.Header.Set("X-Api-Key", d.opts.APIKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		// Transport-level failures count as a lost read this cycle.
		return nil, &telemetry.AcquisitionError{
			Kind: telemetry.AcquisitionTimeout, Driver: d.name, Cause: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &telemetry.AcquisitionError{
			Kind: telemetry.AcquisitionMalformedPayload, Driver: d.name,
			Cause: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var value float64
	if d.endpoint == "uv" {
		value, err = decodeUV(resp.Body)
	} else {
		value, err = decodeStationReading(resp.Body, d.opts.StationID)
	}
	if err != nil {
		return nil, &telemetry.AcquisitionError{
			Kind: telemetry.AcquisitionMalformedPayload, Driver: d.name, Cause: err,
		}
	}
	return map[string]float64{d.field: value}, nil
}

// decodeStationReading handles the readings-shaped endpoints (rainfall,
// wind-speed, wind-direction): take the latest reading set, filter by
// station.
func decodeStationReading(body io.Reader, stationID string) (float64, error) {
	var payload struct {
		Data struct {
			Readings []struct {
				Data []struct {
					StationID string  `json:"stationId"`
					Value     float64 `json:"value"`
				} `json:"data"`
			} `json:"readings"`
		} `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode readings: %w", err)
	}
	if len(payload.Data.Readings) == 0 {
		return 0, fmt.Errorf("no readings in payload")
	}
	for _, r := range payload.Data.Readings[0].Data {
		if r.StationID == stationID {
			return r.Value, nil
		}
	}
	return 0, fmt.Errorf("station %s not in payload", stationID)
}

// decodeUV handles the uv endpoint: the hourly index record matching the
// record timestamp, falling back to the most recent entry.
func decodeUV(body io.Reader) (float64, error) {
	var payload struct {
		Data struct {
			Records []struct {
				Timestamp string `json:"timestamp"`
				Index     []struct {
					Hour  string  `json:"hour"`
					Value float64 `json:"value"`
				} `json:"index"`
			} `json:"records"`
		} `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode uv: %w", err)
	}
	if len(payload.Data.Records) == 0 || len(payload.Data.Records[0].Index) == 0 {
		return 0, fmt.Errorf("no uv records in payload")
	}
	rec := payload.Data.Records[0]
	for _, idx := range rec.Index {
		if idx.Hour == rec.Timestamp {
			return idx.Value, nil
		}
	}
	return rec.Index[0].Value, nil
}
