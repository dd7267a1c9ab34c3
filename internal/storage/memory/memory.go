// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/libmocap/mocap/internal/config"
	"github.com/libmocap/mocap/pkg/core"
)

// Backend keeps a recording in memory and exports it to JSON when it ends
type Backend struct {
	cfg    config.MemoryConfig
	logger *slog.Logger

	recording   *core.Recording
	definitions []core.MarkerDefinition
	frames      []core.FrameSample

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, logger *slog.Logger) *Backend {
	return &Backend{cfg: cfg, logger: logger}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRecording begins a new recording and drops any previous one.
func (b *Backend) StartRecording(rec *core.Recording, markers []core.MarkerDefinition) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	rec.ID = b.idCounter
	if rec.StartTime.IsZero() {
		rec.StartTime = time.Now()
	}

	b.recording = rec
	b.definitions = append([]core.MarkerDefinition(nil), markers...)
	b.frames = nil
	b.lastExportPath = ""
	return nil
}

// RecordFrame appends a frame to the current recording.
func (b *Backend) RecordFrame(f *core.FrameSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.recording == nil {
		return fmt.Errorf("no recording started")
	}
	frame := *f
	frame.Markers = append([]core.MarkerSample(nil), f.Markers...)
	b.frames = append(b.frames, frame)
	return nil
}

// EndRecording exports the recording to the configured output directory.
func (b *Backend) EndRecording() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.recording == nil {
		return fmt.Errorf("no recording started")
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.logger.Info("Recording exported", "recording", b.recording.Name, "frames", len(b.frames), "path", b.lastExportPath)
	return nil
}

// GetExportedFilePath returns the path of the last export, empty before any.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// Frames returns a copy of the frames recorded so far.
func (b *Backend) Frames() []core.FrameSample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.FrameSample(nil), b.frames...)
}

// Definitions returns the marker definitions of the current recording.
func (b *Backend) Definitions() []core.MarkerDefinition {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.MarkerDefinition(nil), b.definitions...)
}
