package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/weather_station/internal/checkpoint"
	"github.com/relabs-tech/weather_station/internal/record"
	"github.com/relabs-tech/weather_station/internal/sensors"
	"github.com/relabs-tech/weather_station/internal/sinks"
)

// scriptDriver returns one scripted outcome per cycle and repeats the last
// one when the script runs out.
type scriptDriver struct {
	name   string
	fields []string
	script []func() (map[string]float64, error)
	calls  int
}

func (d *scriptDriver) Name() string     { return d.name }
func (d *scriptDriver) Fields() []string { return d.fields }
func (d *scriptDriver) Read(context.Context) (map[string]float64, error) {
	i := d.calls
	if i >= len(d.script) {
		i = len(d.script) - 1
	}
	d.calls++
	return d.script[i]()
}

func reads(values map[string]float64) func() (map[string]float64, error) {
	return func() (map[string]float64, error) { return values, nil }
}

func fails(msg string) func() (map[string]float64, error) {
	return func() (map[string]float64, error) { return nil, errors.New(msg) }
}

// captureSink keeps every snapshot it is handed.
type captureSink struct {
	mu    sync.Mutex
	fail  error
	snaps []record.Snapshot
}

func (s *captureSink) Name() string { return "capture" }
func (s *captureSink) Store(ctx context.Context, snap record.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return s.fail
}

func (s *captureSink) all() []record.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]record.Snapshot(nil), s.snaps...)
}

func newTestCollector(t *testing.T, cadence time.Duration, drivers []sensors.Driver, sinkList []sinks.Sink) *Collector {
	t.Helper()
	var fields []string
	for _, d := range drivers {
		fields = append(fields, d.Fields()...)
	}
	rec, err := record.New(fields)
	require.NoError(t, err)
	return &Collector{
		log:     zaptest.NewLogger(t),
		rec:     rec,
		drivers: drivers,
		sinks:   sinkList,
		ckpt:    checkpoint.NewStore(filepath.Join(t.TempDir(), "data_one.json")),
		cadence: cadence,
	}
}

func TestActiveFieldsRejectsUnknownDriver(t *testing.T) {
	_, err := activeFields([]string{"serial_env", "barometer"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "barometer")
}

func TestActiveFieldsRejectsDuplicateOwnership(t *testing.T) {
	_, err := activeFields([]string{"pressure", "pressure"})
	require.Error(t, err)
}

func TestActiveFieldsResolvesEnabledDrivers(t *testing.T) {
	fields, err := activeFields([]string{"serial_env", "pressure", "rainfall"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		record.FieldTemperature, record.FieldHumidity,
		record.FieldPressure, record.FieldRainfall,
	}, fields)
}

func TestSequenceAdvancesDespiteFailures(t *testing.T) {
	env := &scriptDriver{
		name:   "serial_env",
		fields: []string{record.FieldTemperature, record.FieldHumidity},
		script: []func() (map[string]float64, error){
			reads(map[string]float64{record.FieldTemperature: 24.1, record.FieldHumidity: 55.0}),
			fails("line noise"),
			reads(map[string]float64{record.FieldTemperature: 24.3, record.FieldHumidity: 54.8}),
		},
	}
	sink := &captureSink{}
	c := newTestCollector(t, time.Millisecond, []sensors.Driver{env}, []sinks.Sink{sink})

	for i := 0; i < 3; i++ {
		c.runCycle(context.Background())
	}

	snaps := sink.all()
	require.Len(t, snaps, 3)
	for i, snap := range snaps {
		assert.Equal(t, int64(i+1), snap.Cycle)
	}
}

func TestStaleValuesSurviveDriverFailure(t *testing.T) {
	env := &scriptDriver{
		name:   "serial_env",
		fields: []string{record.FieldTemperature, record.FieldHumidity},
		script: []func() (map[string]float64, error){
			reads(map[string]float64{record.FieldTemperature: 24.1, record.FieldHumidity: 55.0}),
			fails("line noise"),
		},
	}
	pres := &scriptDriver{
		name:   "pressure",
		fields: []string{record.FieldPressure},
		script: []func() (map[string]float64, error){
			reads(map[string]float64{record.FieldPressure: 1008.3}),
		},
	}
	sink := &captureSink{}
	c := newTestCollector(t, time.Millisecond, []sensors.Driver{env, pres}, []sinks.Sink{sink})

	c.runCycle(context.Background())
	c.runCycle(context.Background())

	snaps := sink.all()
	require.Len(t, snaps, 2)

	assert.Equal(t, 3, snaps[0].Updated)

	// second cycle: env failed, its fields carry the previous values
	assert.Equal(t, 1, snaps[1].Updated)
	assert.Equal(t, 24.1, snaps[1].Values[record.FieldTemperature])
	assert.Equal(t, 55.0, snaps[1].Values[record.FieldHumidity])
	assert.Equal(t, 1008.3, snaps[1].Values[record.FieldPressure])
}

func TestFailingSinkDoesNotStopOthers(t *testing.T) {
	env := &scriptDriver{
		name:   "serial_env",
		fields: []string{record.FieldTemperature, record.FieldHumidity},
		script: []func() (map[string]float64, error){
			reads(map[string]float64{record.FieldTemperature: 24.1, record.FieldHumidity: 55.0}),
		},
	}
	bad := &captureSink{fail: errors.New("endpoint down")}
	good := &captureSink{}
	c := newTestCollector(t, time.Millisecond, []sensors.Driver{env}, []sinks.Sink{bad, good})

	c.runCycle(context.Background())
	c.runCycle(context.Background())

	assert.Len(t, bad.all(), 2)
	assert.Len(t, good.all(), 2)
}

func TestCycleHoldsCadence(t *testing.T) {
	env := &scriptDriver{
		name:   "serial_env",
		fields: []string{record.FieldTemperature, record.FieldHumidity},
		script: []func() (map[string]float64, error){
			reads(map[string]float64{record.FieldTemperature: 24.1, record.FieldHumidity: 55.0}),
		},
	}
	c := newTestCollector(t, 50*time.Millisecond, []sensors.Driver{env}, nil)

	start := time.Now()
	c.runCycle(context.Background())
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestOverrunSkipsSleep(t *testing.T) {
	slow := &scriptDriver{
		name:   "serial_env",
		fields: []string{record.FieldTemperature, record.FieldHumidity},
		script: []func() (map[string]float64, error){
			func() (map[string]float64, error) {
				time.Sleep(80 * time.Millisecond)
				return map[string]float64{record.FieldTemperature: 24.1, record.FieldHumidity: 55.0}, nil
			},
		},
	}
	c := newTestCollector(t, 30*time.Millisecond, []sensors.Driver{slow}, nil)

	start := time.Now()
	c.runCycle(context.Background())
	elapsed := time.Since(start)

	// no cadence sleep stacked on top of the 80ms read
	assert.Less(t, elapsed, 110*time.Millisecond)
}

func TestRunStopsOnCancel(t *testing.T) {
	env := &scriptDriver{
		name:   "serial_env",
		fields: []string{record.FieldTemperature, record.FieldHumidity},
		script: []func() (map[string]float64, error){
			reads(map[string]float64{record.FieldTemperature: 24.1, record.FieldHumidity: 55.0}),
		},
	}
	sink := &captureSink{}
	c := newTestCollector(t, 10*time.Millisecond, []sensors.Driver{env}, []sinks.Sink{sink})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		require.NoError(t, c.Run(ctx))
	}()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.NotEmpty(t, sink.all())
}

func TestColdStartWritesCSVAndCheckpoint(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.csv")
	ckptPath := filepath.Join(dir, "data_one.json")

	env := &scriptDriver{
		name:   "serial_env",
		fields: []string{record.FieldTemperature, record.FieldHumidity},
		script: []func() (map[string]float64, error){
			reads(map[string]float64{record.FieldTemperature: 24.1, record.FieldHumidity: 55.0}),
		},
	}
	pres := &scriptDriver{
		name:   "pressure",
		fields: []string{record.FieldPressure},
		script: []func() (map[string]float64, error){
			reads(map[string]float64{record.FieldPressure: 1008.3}),
		},
	}

	rec, err := record.New([]string{
		record.FieldTemperature, record.FieldHumidity, record.FieldPressure,
	})
	require.NoError(t, err)
	c := &Collector{
		log:     zaptest.NewLogger(t),
		rec:     rec,
		drivers: []sensors.Driver{env, pres},
		sinks:   []sinks.Sink{sinks.NewCSVLog(csvPath)},
		ckpt:    checkpoint.NewStore(ckptPath),
		cadence: time.Millisecond,
	}

	c.runCycle(context.Background())

	data, err := os.ReadFile(ckptPath)
	require.NoError(t, err)
	var saved map[string]any
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, float64(1), saved["cidx"])
	assert.Equal(t, 24.1, saved["temp"])
	assert.Equal(t, 55.0, saved["humi"])
	assert.Equal(t, 1008.3, saved["pres"])

	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := len(splitNonEmptyLines(string(csvData)))
	assert.Equal(t, 2, lines, "header plus one data row")
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
