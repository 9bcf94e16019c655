package sensors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/telemetry"
)

const rainfallPayload = `{
  "data": {
    "readings": [
      {"data": [
        {"stationId": "S109", "value": 0.2},
        {"stationId": "S44", "value": 1.4}
      ]}
    ]
  }
}`

const uvPayload = `{
  "data": {
    "records": [
      {"timestamp": "2026-02-03T12:00:00+08:00",
       "index": [
         {"hour": "2026-02-03T12:00:00+08:00", "value": 7},
         {"hour": "2026-02-03T11:00:00+08:00", "value": 6}
       ]}
    ]
  }
}`

func dataGovServer(t *testing.T, handler http.HandlerFunc) DataGovOptions {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return DataGovOptions{
		BaseURL:   srv.URL,
		StationID: "S109",
		APIKey:    "test-key",
		Timeout:   time.Second,
	}
}

func TestRainfallReadsStationValue(t *testing.T) {
	var gotKey, gotPath string
	opts := dataGovServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		gotPath = r.URL.Path
		w.Write([]byte(rainfallPayload))
	})

	values, err := NewRainfall(opts).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{record.FieldRainfall: 0.2}, values)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "/rainfall", gotPath)
}

func TestWindSpeedEndpointPath(t *testing.T) {
	var gotPath string
	opts := dataGovServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(rainfallPayload))
	})

	_, err := NewWindSpeed(opts).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/wind-speed", gotPath)
}

func TestUVIndexMatchesRecordHour(t *testing.T) {
	opts := dataGovServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/uv", r.URL.Path)
		w.Write([]byte(uvPayload))
	})

	values, err := NewUVIndex(opts).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{record.FieldUVIndex: 7}, values)
}

func TestUnknownStationIsMalformed(t *testing.T) {
	opts := dataGovServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rainfallPayload))
	})
	opts.StationID = "S999"

	_, err := NewRainfall(opts).Read(context.Background())
	assert.Equal(t, telemetry.AcquisitionMalformedPayload, acquisitionKind(t, err))
}

func TestRejectedRequestIsMalformed(t *testing.T) {
	opts := dataGovServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := NewRainfall(opts).Read(context.Background())
	assert.Equal(t, telemetry.AcquisitionMalformedPayload, acquisitionKind(t, err))
}

func TestSlowEndpointIsTimeout(t *testing.T) {
	opts := dataGovServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(rainfallPayload))
	})
	opts.Timeout = 30 * time.Millisecond

	_, err := NewRainfall(opts).Read(context.Background())
	assert.Equal(t, telemetry.AcquisitionTimeout, acquisitionKind(t, err))
}
