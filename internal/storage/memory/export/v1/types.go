// Package v1 contains the v1 JSON export format for resolved recordings.
package v1

// Version is written to every export so readers can pick a decoder.
const Version = 1

// Export is the root JSON structure for v1 format
type Export struct {
	Version    int               `json:"version"`
	Name       string            `json:"name"`
	Source     string            `json:"source"`
	MarkerSet  string            `json:"markerSet,omitempty"`
	DataRate   float64           `json:"dataRate"`
	Units      string            `json:"units"`
	StartTime  string            `json:"startTime"`
	EndFrame   int               `json:"endFrame"`
	Properties map[string]string `json:"properties,omitempty"`
	Markers    []Marker          `json:"markers"`
	Frames     []Frame           `json:"frames"`
}

// Marker describes one exported marker
type Marker struct {
	Index   int    `json:"index"`
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Color   string `json:"color"`
	Virtual bool   `json:"virtual,omitempty"`
}

// Frame holds the samples of one frame.
// Each sample is [markerIndex, [x, y, z]], or [markerIndex, null] when occluded.
// Time is null for frames the source file never wrote.
type Frame struct {
	Frame   int      `json:"frame"`
	Time    *float64 `json:"time"`
	Samples [][]any  `json:"samples"`
}
