package influx

import (
	"bufio"
	"compress/gzip"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/libmocap/mocap/internal/config"
	"github.com/libmocap/mocap/pkg/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func unreachableConfig(t *testing.T) config.InfluxConfig {
	return config.InfluxConfig{
		Host:       "127.0.0.1",
		Port:       "1",
		Protocol:   "http",
		Token:      "token",
		Org:        "mocap",
		Bucket:     "trajectories",
		BackupPath: filepath.Join(t.TempDir(), "backup.lp.gz"),
	}
}

func testFrame() *core.FrameSample {
	return &core.FrameSample{
		Frame: 3,
		Time:  0.5,
		Markers: []core.MarkerSample{
			{Frame: 3, Time: 0.5, Marker: 0, Name: "LFHD", Position: r3.Vec{X: 1, Y: 2, Z: 3}},
			{Frame: 3, Time: 0.5, Marker: 1, Name: "RFHD", Position: r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}, Occluded: true},
			{Frame: 3, Time: 0.5, Marker: 2, Name: "Head Top", Position: r3.Vec{X: 0.5}},
		},
	}
}

func TestPoints(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := &core.Recording{Name: "walk", StartTime: start}

	points := Points(rec, testFrame())
	require.Len(t, points, 2, "occluded samples are skipped")

	line := influxdb2_write.PointToLineProtocol(points[0], time.Nanosecond)
	assert.Equal(t, "marker_position,marker=LFHD,recording=walk frame=3i,x=1,y=2,z=3 "+
		"1714564800500000000\n", line)

	assert.Equal(t, Measurement, points[1].Name())
	assert.Equal(t, start.Add(500*time.Millisecond), points[1].Time())
	line = influxdb2_write.PointToLineProtocol(points[1], time.Nanosecond)
	assert.Contains(t, line, `marker=Head\ Top`)
}

func TestPoints_UnrecordedFrameTime(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		dataRate float64
		time     float64
		want     []time.Time
	}{
		{"recorded time wins", 100, 0.5, []time.Time{start.Add(500 * time.Millisecond)}},
		{"nan derived from rate", 100, math.NaN(), []time.Time{start.Add(30 * time.Millisecond)}},
		{"inf derived from rate", 50, math.Inf(1), []time.Time{start.Add(60 * time.Millisecond)}},
		{"nan without rate", 0, math.NaN(), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &core.Recording{Name: "walk", DataRate: tt.dataRate, StartTime: start}
			f := &core.FrameSample{Frame: 3, Time: tt.time, Markers: []core.MarkerSample{
				{Frame: 3, Name: "LFHD", Position: r3.Vec{X: 1, Y: 2, Z: 3}},
			}}

			var got []time.Time
			for _, p := range Points(rec, f) {
				got = append(got, p.Time())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_DoesNotConnect(t *testing.T) {
	b := New(unreachableConfig(t), testLogger())
	assert.Nil(t, b.client)
	assert.NoError(t, b.Close())
}

func TestRecordFrame_WithoutRecording(t *testing.T) {
	b := New(unreachableConfig(t), testLogger())
	err := b.RecordFrame(testFrame())
	assert.Error(t, err)
}

func TestBackupWhenUnreachable(t *testing.T) {
	cfg := unreachableConfig(t)
	b := New(cfg, testLogger())
	require.NoError(t, b.Init())
	assert.False(t, b.isValid)

	rec := &core.Recording{Name: "walk", StartTime: time.Unix(100, 0)}
	require.NoError(t, b.StartRecording(rec, nil))
	assert.Equal(t, uint(1), rec.ID)

	require.NoError(t, b.RecordFrame(testFrame()))
	require.NoError(t, b.EndRecording())
	require.NoError(t, b.Close())

	f, err := os.Open(cfg.BackupPath)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)
	assert.Equal(t, "marker_position,marker=LFHD,recording=walk frame=3i,x=1,y=2,z=3 100500000000", lines[0])
}

func TestInit_NoBackupPath(t *testing.T) {
	cfg := unreachableConfig(t)
	cfg.BackupPath = ""
	b := New(cfg, testLogger())
	err := b.Init()
	assert.Error(t, err)
	assert.NoError(t, b.Close())
}

func TestStartRecording_AssignsIDs(t *testing.T) {
	b := New(unreachableConfig(t), testLogger())

	first := &core.Recording{Name: "a"}
	second := &core.Recording{Name: "b"}
	kept := &core.Recording{ID: 42, Name: "c"}
	require.NoError(t, b.StartRecording(first, nil))
	require.NoError(t, b.StartRecording(second, nil))
	require.NoError(t, b.StartRecording(kept, nil))

	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, uint(2), second.ID)
	assert.Equal(t, uint(42), kept.ID)
	assert.False(t, first.StartTime.IsZero())
}
