// Package influx implements the storage.Backend interface on InfluxDB 2.
// Each visible sample becomes one point; when the server does not answer
// the points are appended to a gzipped line protocol backup file instead.
package influx

import (
	"compress/gzip"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"

	"github.com/libmocap/mocap/internal/config"
	"github.com/libmocap/mocap/pkg/core"
)

// Measurement is the measurement name of every sample point.
const Measurement = "marker_position"

// retention applied to buckets this backend creates
const retentionSeconds = 60 * 60 * 24 * 90

// Backend writes samples to InfluxDB.
type Backend struct {
	cfg    config.InfluxConfig
	logger *slog.Logger

	client  influxdb2.Client
	writer  influxdb2_api.WriteAPI
	isValid bool

	backupFile   *os.File
	backupWriter *gzip.Writer

	recording *core.Recording
	nextID    uint
	points    int
}

// New creates a new InfluxDB backend. Nothing is dialed until Init.
func New(cfg config.InfluxConfig, logger *slog.Logger) *Backend {
	return &Backend{cfg: cfg, logger: logger}
}

// Init connects and ensures the organization and bucket exist. An
// unreachable server switches the backend to the backup file.
func (b *Backend) Init() error {
	b.client = influxdb2.NewClientWithOptions(
		b.cfg.URL(),
		b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// validate client connection health
	running, err := b.client.Ping(ctx)
	if err != nil || !running {
		b.isValid = false
		b.logger.Warn("InfluxDB unreachable, writing to backup file", "url", b.cfg.URL(), "backupPath", b.cfg.BackupPath, "error", err)
		return b.openBackup()
	}

	if err := b.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	b.isValid = true
	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)

	errorsCh := b.writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			b.logger.Error("Error sending data to InfluxDB", "bucket", b.cfg.Bucket, "error", writeErr)
		}
	}()

	b.logger.Info("InfluxDB client initialized", "url", b.cfg.URL(), "bucket", b.cfg.Bucket)
	return nil
}

func (b *Backend) openBackup() error {
	if b.cfg.BackupPath == "" {
		return fmt.Errorf("influxDB unreachable at %s and no backup path configured", b.cfg.URL())
	}
	file, err := os.OpenFile(b.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backupWriter = gzip.NewWriter(file)
	return nil
}

func (b *Backend) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := b.client.OrganizationsAPI()

	// ensure org exists
	org, err := orgs.FindOrganizationByName(ctx, b.cfg.Org)
	if err != nil {
		b.logger.Info("Organization not found, creating", "org", b.cfg.Org)
		org, err = orgs.CreateOrganizationWithName(ctx, b.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", b.cfg.Org, err)
		}
	}

	// ensure bucket exists with 90 day retention
	if _, err = b.client.BucketsAPI().FindBucketByName(ctx, b.cfg.Bucket); err != nil {
		b.logger.Info("Bucket not found, creating", "bucket", b.cfg.Bucket)
		rule := domain.RetentionRuleTypeExpire
		_, err = b.client.BucketsAPI().CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %s: %w", b.cfg.Bucket, err)
		}
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (b *Backend) Close() error {
	var err error
	if b.writer != nil {
		b.writer.Flush()
	}
	if b.client != nil {
		b.client.Close()
		b.client = nil
	}
	if b.backupWriter != nil {
		err = b.backupWriter.Close()
		b.backupWriter = nil
	}
	if b.backupFile != nil {
		if cerr := b.backupFile.Close(); err == nil {
			err = cerr
		}
		b.backupFile = nil
	}
	return err
}

// StartRecording remembers the recording used to tag and timestamp points.
// InfluxDB has no row for it, so IDs are assigned locally.
func (b *Backend) StartRecording(rec *core.Recording, _ []core.MarkerDefinition) error {
	if rec.ID == 0 {
		b.nextID++
		rec.ID = b.nextID
	}
	if rec.StartTime.IsZero() {
		rec.StartTime = time.Now()
	}
	b.recording = rec
	b.points = 0
	return nil
}

// RecordFrame writes one point per visible sample.
func (b *Backend) RecordFrame(f *core.FrameSample) error {
	if b.recording == nil {
		return fmt.Errorf("no recording started")
	}
	for _, p := range Points(b.recording, f) {
		if err := b.writePoint(p); err != nil {
			return err
		}
		b.points++
	}
	return nil
}

// EndRecording flushes what was written for the recording.
func (b *Backend) EndRecording() error {
	if b.writer != nil {
		b.writer.Flush()
	}
	if b.backupWriter != nil {
		if err := b.backupWriter.Flush(); err != nil {
			return fmt.Errorf("error flushing InfluxDB backup file: %w", err)
		}
	}
	if b.recording != nil {
		b.logger.Info("Recording written to InfluxDB", "recording", b.recording.Name, "points", b.points, "backup", !b.isValid)
	}
	b.recording = nil
	return nil
}

// writePoint writes a point to InfluxDB or the backup file.
func (b *Backend) writePoint(point *influxdb2_write.Point) error {
	if b.isValid {
		b.writer.WritePoint(point)
		return nil
	}
	if b.backupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := b.backupWriter.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Points converts the visible samples of a frame into line protocol points,
// timestamped at recording start plus the frame time. Frames without a
// recorded time fall back to frame / data rate, and produce no points when
// the rate is unknown too.
func Points(rec *core.Recording, f *core.FrameSample) []*influxdb2_write.Point {
	elapsed, ok := frameElapsed(rec, f)
	if !ok {
		return nil
	}
	ts := rec.StartTime.Add(elapsed)
	visible := f.Visible()
	points := make([]*influxdb2_write.Point, 0, len(visible))
	for _, s := range visible {
		points = append(points, influxdb2_write.NewPoint(
			Measurement,
			map[string]string{
				"recording": rec.Name,
				"marker":    s.Name,
			},
			map[string]any{
				"x":     s.Position.X,
				"y":     s.Position.Y,
				"z":     s.Position.Z,
				"frame": s.Frame,
			},
			ts,
		))
	}
	return points
}

func frameElapsed(rec *core.Recording, f *core.FrameSample) (time.Duration, bool) {
	secs := f.Time
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		if rec.DataRate <= 0 {
			return 0, false
		}
		secs = float64(f.Frame) / rec.DataRate
	}
	return time.Duration(secs * float64(time.Second)), true
}
