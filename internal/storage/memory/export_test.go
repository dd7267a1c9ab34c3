package memory

import (
	"compress/gzip"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	v1 "github.com/libmocap/mocap/internal/storage/memory/export/v1"
	"github.com/libmocap/mocap/pkg/core"
)

func recordSample(t *testing.T, b *Backend, name string) {
	t.Helper()
	rec := &core.Recording{
		Name:      name,
		Source:    "walk.trc",
		DataRate:  100,
		Units:     "m",
		StartTime: time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC),
	}
	defs := []core.MarkerDefinition{
		{Index: 0, ID: 1, Name: "LFHD", Kind: core.KindPhysical, Color: core.RGB(255, 0, 0)},
		{Index: 1, ID: 2, Name: "RFHD", Kind: core.KindPhysical, Color: core.RGB(0, 0, 255)},
	}
	require.NoError(t, b.StartRecording(rec, defs))
	require.NoError(t, b.RecordFrame(&core.FrameSample{Frame: 0, Time: 0, Markers: []core.MarkerSample{
		{Marker: 0, Name: "LFHD", Position: r3.Vec{X: 0.1, Y: 0.2, Z: 1.7}},
		{Marker: 1, Name: "RFHD", Position: r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}, Occluded: true},
	}}))
	require.NoError(t, b.RecordFrame(&core.FrameSample{Frame: 1, Time: 0.01}))
	// frame the source file never wrote
	require.NoError(t, b.RecordFrame(&core.FrameSample{Frame: 2, Time: math.NaN(), Markers: []core.MarkerSample{
		{Marker: 0, Name: "LFHD", Position: r3.Vec{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}, Occluded: true},
	}}))
	require.NoError(t, b.EndRecording())
}

func TestExport_Plain(t *testing.T) {
	b := newTestBackend(t, false)
	recordSample(t, b, "Walk: trial/1")

	path := b.GetExportedFilePath()
	assert.Equal(t, "Walk__trial_1_20240501_123045.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var export v1.Export
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, 1, export.Version)
	assert.Equal(t, "Walk: trial/1", export.Name)
	assert.Equal(t, 2, export.EndFrame)
	require.Len(t, export.Markers, 2)
	assert.Equal(t, "#FF0000FF", export.Markers[0].Color)
	require.Len(t, export.Frames, 3)
	assert.Equal(t, []any{float64(0), []any{0.1, 0.2, 1.7}}, export.Frames[0].Samples[0])
	assert.Equal(t, []any{float64(1), nil}, export.Frames[0].Samples[1])
	require.NotNil(t, export.Frames[1].Time)
	assert.Equal(t, 0.01, *export.Frames[1].Time)
	assert.Nil(t, export.Frames[2].Time)
	assert.Equal(t, []any{float64(0), nil}, export.Frames[2].Samples[0])
	assert.Contains(t, string(data), `"frame":2,"time":null`)
}

func TestExport_Gzip(t *testing.T) {
	b := newTestBackend(t, true)
	recordSample(t, b, "walk")

	path := b.GetExportedFilePath()
	assert.Equal(t, "walk_20240501_123045.json.gz", filepath.Base(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export v1.Export
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "walk.trc", export.Source)
	assert.Len(t, export.Frames, 3)
}

func TestExport_EmptyName(t *testing.T) {
	b := newTestBackend(t, false)
	recordSample(t, b, "")
	assert.Equal(t, "recording_20240501_123045.json", filepath.Base(b.GetExportedFilePath()))
}

func TestExport_CreatesOutputDir(t *testing.T) {
	b := newTestBackend(t, false)
	b.cfg.OutputDir = filepath.Join(b.cfg.OutputDir, "nested", "dir")
	recordSample(t, b, "walk")

	_, err := os.Stat(b.GetExportedFilePath())
	assert.NoError(t, err)
}
