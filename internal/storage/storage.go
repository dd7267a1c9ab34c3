// Package storage defines where resolved marker samples end up.
package storage

import "github.com/libmocap/mocap/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Calls for one recording are sequential: StartRecording, any number of
// RecordFrame, then EndRecording.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Recording management (assigns rec.ID)
	StartRecording(rec *core.Recording, markers []core.MarkerDefinition) error
	EndRecording() error

	// Sample recording
	RecordFrame(f *core.FrameSample) error
}

// Exporter is an optional interface for backends that write a file per
// recording.
type Exporter interface {
	GetExportedFilePath() string
}
