// Package sqlitestorage implements the storage.Backend interface on SQLite.
// It wraps the GORM backend via composition; the only SQLite-specific
// concerns are opening the database (file or in-memory) and the optional
// VACUUM INTO dump once a recording ends.
package sqlitestorage

import (
	"fmt"
	"log/slog"

	"github.com/libmocap/mocap/internal/config"
	"github.com/libmocap/mocap/internal/database"
	gormstorage "github.com/libmocap/mocap/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg    config.SQLiteConfig
	dbm    *database.Manager
	logger *slog.Logger
}

// New creates a new SQLite storage backend. The database is opened by Init.
func New(cfg config.SQLiteConfig, dbm *database.Manager, logger *slog.Logger) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			Logger:    logger,
			BatchSize: cfg.BatchSize,
			Migrate:   dbm.Migrate,
		}),
		cfg:    cfg,
		dbm:    dbm,
		logger: logger,
	}
}

// Init opens the database and initializes the embedded GORM backend.
func (b *Backend) Init() error {
	db, err := b.dbm.GetSqliteDB(b.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	b.SetDB(db)
	return b.Backend.Init()
}

// EndRecording finalizes the recording, then dumps the database if a
// dump path is configured.
func (b *Backend) EndRecording() error {
	if err := b.Backend.EndRecording(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	if err := b.dbm.DumpMemoryDBToDisk(b.DB(), b.cfg.DumpPath); err != nil {
		return err
	}
	b.logger.Info("Dumped SQLite DB", "path", b.cfg.DumpPath)
	return nil
}

// Close drains the embedded backend and closes the connection.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.DB() == nil {
		return nil
	}
	sqlDB, err := b.DB().DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
