package storage

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"

	"github.com/libmocap/mocap/internal/config"
	"github.com/libmocap/mocap/internal/database"
	"github.com/libmocap/mocap/internal/storage/influx"
	"github.com/libmocap/mocap/internal/storage/memory"
	"github.com/libmocap/mocap/internal/storage/postgres"
	sqlitestorage "github.com/libmocap/mocap/internal/storage/sqlite"
)

// Dependencies are shared by every backend. A nil DB manager gets a silent one.
type Dependencies struct {
	Logger    *slog.Logger
	DBManager *database.Manager
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.DBManager == nil {
		deps.DBManager = database.NewManager(zerolog.Nop())
	}

	switch strings.ToLower(cfg.Type) {
	case "postgres":
		return postgres.New(cfg.Postgres, deps.DBManager, deps.Logger), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, deps.DBManager, deps.Logger), nil
	case "influx":
		return influx.New(cfg.Influx, deps.Logger), nil
	case "memory":
		return memory.New(cfg.Memory, deps.Logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
