package main

import (
	"fmt"

	"github.com/libmocap/mocap/internal/config"
	"github.com/libmocap/mocap/internal/database"
	"github.com/libmocap/mocap/internal/storage"
)

// initStorage creates and initializes the configured backend.
func (a *app) initStorage() (storage.Backend, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		Logger:    a.logger,
		DBManager: database.NewManager(a.dbLogger),
	})
	if err != nil {
		a.logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "type", storageCfg.Type, "error", err)
		return nil, fmt.Errorf("initializing %s storage: %w", storageCfg.Type, err)
	}

	a.logger.Info("Storage backend initialized", "type", storageCfg.Type)
	return backend, nil
}
