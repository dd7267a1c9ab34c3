// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/libmocap/mocap/internal/storage/memory/export/v1"
)

var unsafeNameChars = strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_")

// exportFileName builds <name>_<timestamp>.json[.gz]
func (b *Backend) exportFileName() string {
	name := unsafeNameChars.Replace(b.recording.Name)
	if name == "" {
		name = "recording"
	}
	timestamp := b.recording.StartTime.Format("20060102_150405")

	if b.cfg.CompressOutput {
		return fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", name, timestamp)
}

// exportJSON writes the recording to a JSON file, gzipped when configured
func (b *Backend) exportJSON() error {
	export := v1.Build(*b.recording, b.definitions, b.frames)
	outputPath := filepath.Join(b.cfg.OutputDir, b.exportFileName())

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
