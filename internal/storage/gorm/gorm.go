// Package gormstorage implements the storage.Backend interface over any GORM
// dialect. Samples are queued and written in batches by a background writer;
// EndRecording drains whatever is left.
package gormstorage

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/libmocap/mocap/internal/model"
	"github.com/libmocap/mocap/internal/model/convert"
	"github.com/libmocap/mocap/internal/queue"
	"github.com/libmocap/mocap/pkg/core"
)

const (
	defaultBatchSize     = 5000
	defaultFlushInterval = 2 * time.Second
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	BatchSize     int           // samples per INSERT batch
	FlushInterval time.Duration // background writer period
	Migrate       func(*gorm.DB) error
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps        Dependencies
	samples     *queue.Queue[model.MarkerSample]
	recordingID atomic.Uint64
	written     atomic.Int64

	writeMu  sync.Mutex // serialises flushes from the writer and from callers
	stopChan chan struct{}
	done     chan struct{}

	lastWrite atomic.Int64 // duration of the last flush in nanoseconds
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultBatchSize
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:    deps,
		samples: queue.New[model.MarkerSample](),
	}
}

// DB exposes the connection, for backends that wrap this one.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetDB injects the connection when it is only known after construction.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	if b.deps.Migrate != nil {
		if err := b.deps.Migrate(b.deps.DB); err != nil {
			return err
		}
	} else if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine and writes anything still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.flush()
}

// StartRecording inserts the recording and its marker definitions
// synchronously, since samples reference the recording ID.
func (b *Backend) StartRecording(rec *core.Recording, markers []core.MarkerDefinition) error {
	db := b.deps.DB
	if db == nil {
		return fmt.Errorf("gorm backend has no database")
	}

	row := convert.CoreToRecording(*rec)
	row.ID = 0
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert recording: %w", err)
		}
		if len(markers) == 0 {
			return nil
		}
		defs := make([]model.MarkerDefinition, 0, len(markers))
		for _, m := range markers {
			defs = append(defs, convert.CoreToMarkerDefinition(m, row.ID))
		}
		if err := tx.Create(&defs).Error; err != nil {
			return fmt.Errorf("failed to insert marker definitions: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	rec.ID = row.ID
	b.recordingID.Store(uint64(row.ID))
	b.written.Store(0)
	b.deps.Logger.Info("Recording started", "recording", row.ID, "name", rec.Name, "markers", len(markers))
	return nil
}

// RecordFrame queues one row per sample. A full batch is written inline.
func (b *Backend) RecordFrame(f *core.FrameSample) error {
	rows := convert.CoreToMarkerSamples(*f, uint(b.recordingID.Load()))
	if len(rows) == 0 {
		return nil
	}
	if b.samples.Push(rows...) >= b.deps.BatchSize {
		return b.flush()
	}
	return nil
}

// EndRecording writes the remaining samples and stamps the recording.
func (b *Backend) EndRecording() error {
	if err := b.flush(); err != nil {
		return err
	}
	id := uint(b.recordingID.Load())
	if id == 0 {
		return nil
	}
	err := b.deps.DB.Model(&model.Recording{}).Where("id = ?", id).Updates(map[string]any{
		"end_time":     convert.EndTime(time.Now()),
		"sample_count": b.written.Load(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to finalize recording %d: %w", id, err)
	}
	b.deps.Logger.Info("Recording finished", "recording", id, "samples", b.written.Load())
	return nil
}

// GetLastDBWriteDuration returns the duration of the last flush.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// Pending returns the number of queued samples.
func (b *Backend) Pending() int {
	return b.samples.Len()
}

// flush writes queued samples in transactions of at most BatchSize rows.
// A failed batch is put back at the head of the queue.
func (b *Backend) flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	for !b.samples.Empty() {
		items := b.samples.Take(b.deps.BatchSize)
		if err := writeBatch(b.deps.DB, items); err != nil {
			b.samples.PushFront(items...)
			b.deps.Logger.Error("Error writing marker samples", "error", err, "count", len(items))
			return err
		}
		b.written.Add(int64(len(items)))
	}
	b.lastWrite.Store(int64(time.Since(start)))
	return nil
}

func writeBatch[T any](db *gorm.DB, items []T) error {
	if len(items) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&items, len(items)).Error
	})
}

// writeLoop periodically drains the queue into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if b.samples.Empty() {
				continue
			}
			// errors are logged by flush and retried on the next tick
			_ = b.flush()
		}
	}
}
