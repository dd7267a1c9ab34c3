// Package model holds the GORM rows resolved recordings are persisted as.
package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// DatabaseModels lists every table of the schema, in migration order.
var DatabaseModels = []any{
	&Recording{},
	&MarkerDefinition{},
	&MarkerSample{},
}

// Recording is one playback of a trajectory against a marker set
type Recording struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt time.Time `json:"createdAt"`

	Name         string         `json:"name" gorm:"size:255"`
	Source       string         `json:"source" gorm:"size:255"`    // trajectory file name
	MarkerSet    string         `json:"markerSet" gorm:"size:127"` // empty when built from trajectory labels
	DataRate     float64        `json:"dataRate"`
	Units        string         `json:"units" gorm:"size:8"`
	NumFrames    int            `json:"numFrames"`
	MarkerLabels datatypes.JSON `json:"markerLabels"`
	Properties   datatypes.JSON `json:"properties"`
	StartTime    time.Time      `json:"startTime"`
	EndTime      sql.NullTime   `json:"endTime"`
	SampleCount  int64          `json:"sampleCount" gorm:"default:0"`
}

func (*Recording) TableName() string {
	return "recordings"
}

// MarkerDefinition is the static description of one marker slot
type MarkerDefinition struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	RecordingID uint      `json:"recordingId" gorm:"index:idx_markerdefinition_recording_id"`
	Recording   Recording `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RecordingID;"`

	MarkerIndex int    `json:"markerIndex"` // position in the marker set
	MarkerID    int    `json:"markerId"`    // coordinate block in the trajectory (physical markers)
	Name        string `json:"name" gorm:"size:127"`
	Kind        string `json:"kind" gorm:"size:32"`
	Color       string `json:"color" gorm:"size:9"` // #RRGGBBAA
	Virtual     bool   `json:"virtual" gorm:"default:false"`
}

func (*MarkerDefinition) TableName() string {
	return "marker_definitions"
}

// MarkerSample is one resolved marker position at one frame.
// Occluded samples carry an empty point.
type MarkerSample struct {
	ID          uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	RecordingID uint            `json:"recordingId" gorm:"index:idx_markersample_recording_id"`
	Recording   Recording       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RecordingID;"`
	Frame       int             `json:"frame" gorm:"index:idx_markersample_frame"`
	Time        sql.NullFloat64 `json:"time"` // seconds since the first frame, null when never recorded
	MarkerIndex int             `json:"markerIndex" gorm:"index:idx_markersample_marker_index"`
	Name        string          `json:"name" gorm:"size:127"`

	Position geom.Point `json:"position"` // lab frame, metres after normalisation
	Occluded bool       `json:"occluded" gorm:"default:false"`
}

func (*MarkerSample) TableName() string {
	return "marker_samples"
}
