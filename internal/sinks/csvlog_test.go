package sinks

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/weather_station/internal/record"
)

func snapshotForTest(t *testing.T, cycles int) record.Snapshot {
	t.Helper()
	rec, err := record.New([]string{
		record.FieldTemperature, record.FieldHumidity, record.FieldPressure,
	})
	require.NoError(t, err)
	for i := 0; i < cycles; i++ {
		rec.StartCycle(time.Date(2026, 2, 3, 12, 0, 5*i, 0, time.UTC))
	}
	require.NoError(t, rec.Set(record.FieldTemperature, 24.1))
	require.NoError(t, rec.Set(record.FieldHumidity, 55.0))
	require.NoError(t, rec.Set(record.FieldPressure, 1008.3))
	return rec.Snapshot()
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestStoreWritesHeaderOnCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	sink := NewCSVLog(path)

	require.NoError(t, sink.Store(context.Background(), snapshotForTest(t, 1)))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"time", "cidx", "cattr", "temp", "humi", "pres"}, rows[0])
	assert.Equal(t, []string{"2026-02-03T12:00:00Z", "1", "3", "24.1", "55", "1008.3"}, rows[1])
}

func TestStoreAppendsWithoutRepeatingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	sink := NewCSVLog(path)

	require.NoError(t, sink.Store(context.Background(), snapshotForTest(t, 1)))
	require.NoError(t, sink.Store(context.Background(), snapshotForTest(t, 2)))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[1][1])
	assert.Equal(t, "2", rows[2][1])
}

func TestStoreNeverTruncatesExistingRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	sink := NewCSVLog(path)

	require.NoError(t, sink.Store(context.Background(), snapshotForTest(t, 1)))
	before := readCSV(t, path)

	require.NoError(t, sink.Store(context.Background(), snapshotForTest(t, 2)))
	after := readCSV(t, path)

	assert.Equal(t, before, after[:len(before)])
}

func TestStoreReportsFilesystemFailure(t *testing.T) {
	sink := NewCSVLog(filepath.Join(t.TempDir(), "no-such-dir", "data.csv"))
	err := sink.Store(context.Background(), snapshotForTest(t, 1))
	require.Error(t, err)
}
