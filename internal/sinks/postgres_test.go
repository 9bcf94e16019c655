package sinks

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/weather_station/internal/telemetry"
)

func testParams() PostgresParams {
	return PostgresParams{
		Database: "weather",
		User:     "station",
		Host:     "localhost",
		Port:     5432,
		Table:    "sensor_data",
		Password: "secret",
	}
}

func TestLoaderArgs(t *testing.T) {
	sink := NewPostgres(testParams())
	snap := snapshotForTest(t, 1)

	args := sink.loaderArgs(snap, "/tmp/stage.csv")

	assert.Equal(t, []string{"-d", "weather"}, args[0:2])
	assert.Equal(t, []string{"-U", "station"}, args[2:4])
	assert.Equal(t, []string{"-h", "localhost"}, args[4:6])
	assert.Equal(t, []string{"-p", "5432"}, args[6:8])

	copyCmd := args[len(args)-1]
	assert.Equal(t,
		`\copy sensor_data(time, cidx, cattr, temp, humi, pres) FROM '/tmp/stage.csv' CSV`,
		copyCmd)
}

func TestStoreSucceedsWhenLoaderExitsZero(t *testing.T) {
	sink := NewPostgres(testParams())
	sink.cmdName = "true"

	require.NoError(t, sink.Store(context.Background(), snapshotForTest(t, 1)))
}

func TestStoreReportsProcessFailure(t *testing.T) {
	sink := NewPostgres(testParams())
	sink.cmdName = "false"

	err := sink.Store(context.Background(), snapshotForTest(t, 1))
	require.Error(t, err)

	var sinkErr *telemetry.SinkError
	require.True(t, errors.As(err, &sinkErr))
	assert.Equal(t, telemetry.SinkProcessFailure, sinkErr.Kind)
	assert.Equal(t, "postgres", sinkErr.Sink)
}

func TestStoreReportsMissingLoaderBinary(t *testing.T) {
	sink := NewPostgres(testParams())
	sink.cmdName = "definitely-not-a-loader"

	err := sink.Store(context.Background(), snapshotForTest(t, 1))
	require.Error(t, err)

	var sinkErr *telemetry.SinkError
	require.True(t, errors.As(err, &sinkErr))
	assert.Equal(t, telemetry.SinkProcessFailure, sinkErr.Kind)
}

func TestWriteStagingFileContents(t *testing.T) {
	sink := NewPostgres(testParams())
	snap := snapshotForTest(t, 1)

	path, err := sink.writeStagingFile(snap)
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, snap.Row(), rows[0])
	assert.True(t, strings.HasSuffix(path, ".csv"))
}
