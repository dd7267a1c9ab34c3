// Package convert maps core recordings and samples to GORM rows and back.
package convert

import (
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/libmocap/mocap/internal/geo"
	"github.com/libmocap/mocap/internal/model"
	"github.com/libmocap/mocap/pkg/core"
	"gorm.io/datatypes"
)

// labelsToJSON converts a []string to datatypes.JSON for DB storage.
func labelsToJSON(labels []string) datatypes.JSON {
	if len(labels) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(labels)
	return datatypes.JSON(data)
}

func propertiesToJSON(props map[string]string) datatypes.JSON {
	if len(props) == 0 {
		return datatypes.JSON("{}")
	}
	data, _ := json.Marshal(props)
	return datatypes.JSON(data)
}

// CoreToRecording converts a core.Recording to a GORM model.Recording.
func CoreToRecording(r core.Recording) model.Recording {
	return model.Recording{
		ID:           r.ID,
		Name:         r.Name,
		Source:       r.Source,
		MarkerSet:    r.MarkerSet,
		DataRate:     r.DataRate,
		Units:        r.Units,
		NumFrames:    r.NumFrames,
		MarkerLabels: labelsToJSON(r.MarkerLabels),
		Properties:   propertiesToJSON(r.Properties),
		StartTime:    r.StartTime,
	}
}

// CoreToMarkerDefinition converts a core.MarkerDefinition to a GORM row.
func CoreToMarkerDefinition(d core.MarkerDefinition, recordingID uint) model.MarkerDefinition {
	return model.MarkerDefinition{
		RecordingID: recordingID,
		MarkerIndex: d.Index,
		MarkerID:    d.ID,
		Name:        d.Name,
		Kind:        d.Kind.String(),
		Color:       d.Color.Hex(),
		Virtual:     d.Virtual,
	}
}

// CoreToMarkerSamples flattens one frame into sample rows.
func CoreToMarkerSamples(f core.FrameSample, recordingID uint) []model.MarkerSample {
	rows := make([]model.MarkerSample, 0, len(f.Markers))
	for _, s := range f.Markers {
		rows = append(rows, model.MarkerSample{
			RecordingID: recordingID,
			Frame:       s.Frame,
			Time:        nullSeconds(s.Time),
			MarkerIndex: s.Marker,
			Name:        s.Name,
			Position:    geo.PointZ(s.Position),
			Occluded:    s.Occluded || geo.HasNaN(s.Position),
		})
	}
	return rows
}

// EndTime stamps a finished recording.
func EndTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func nullSeconds(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}
