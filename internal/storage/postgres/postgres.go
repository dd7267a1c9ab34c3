// Package postgres implements the storage.Backend interface on PostgreSQL,
// reusing the queued GORM writer.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/libmocap/mocap/internal/config"
	"github.com/libmocap/mocap/internal/database"
	gormstorage "github.com/libmocap/mocap/internal/storage/gorm"
)

// Backend implements storage.Backend on a PostgreSQL connection.
type Backend struct {
	*gormstorage.Backend
	cfg config.PostgresConfig
	dbm *database.Manager
}

// New creates a new PostgreSQL backend. The connection is opened by Init.
func New(cfg config.PostgresConfig, dbm *database.Manager, logger *slog.Logger) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			Logger:    logger,
			BatchSize: cfg.BatchSize,
			Migrate:   dbm.Migrate,
		}),
		cfg: cfg,
		dbm: dbm,
	}
}

// Init connects, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	if b.DB() == nil {
		db, err := b.dbm.GetPostgresDB(b.cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.SetDB(db)
	}
	return b.Backend.Init()
}
