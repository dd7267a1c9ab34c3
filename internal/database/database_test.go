package database

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libmocap/mocap/internal/model"
)

func newTestManager() (*Manager, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewManager(zerolog.New(&buf).Level(zerolog.DebugLevel)), &buf
}

func TestGetSqliteDB_InMemoryIsPrivate(t *testing.T) {
	m, logs := newTestManager()

	db1, err := m.GetSqliteDB("")
	require.NoError(t, err)
	db2, err := m.GetSqliteDB(":memory:")
	require.NoError(t, err)

	require.NoError(t, m.Migrate(db1))
	require.NoError(t, db1.Create(&model.Recording{Name: "walk"}).Error)

	assert.True(t, db1.Migrator().HasTable(&model.Recording{}))
	assert.False(t, db2.Migrator().HasTable(&model.Recording{}), "in-memory databases must not share state")
	assert.Contains(t, logs.String(), "Using SQLite DB in memory")
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	m, _ := newTestManager()
	db, err := m.GetSqliteDB("")
	require.NoError(t, err)

	require.NoError(t, m.Migrate(db))
	for _, table := range []string{"recordings", "marker_definitions", "marker_samples"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestGetSqliteDB_File(t *testing.T) {
	m, logs := newTestManager()
	path := filepath.Join(t.TempDir(), "mocap.db")

	db, err := m.GetSqliteDB(path)
	require.NoError(t, err)
	require.NoError(t, m.Migrate(db))

	_, err = os.Stat(path)
	assert.NoError(t, err)
	assert.Contains(t, logs.String(), path)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	m, _ := newTestManager()
	db, err := m.GetSqliteDB("")
	require.NoError(t, err)
	require.NoError(t, m.Migrate(db))
	require.NoError(t, db.Create(&model.Recording{Name: "dumped"}).Error)

	path := filepath.Join(t.TempDir(), "out", "dump.db")
	require.NoError(t, m.DumpMemoryDBToDisk(db, path))
	// a second dump replaces the first
	require.NoError(t, m.DumpMemoryDBToDisk(db, path))

	disk, err := m.GetSqliteDB(path)
	require.NoError(t, err)
	var rec model.Recording
	require.NoError(t, disk.First(&rec).Error)
	assert.Equal(t, "dumped", rec.Name)
}

func TestDumpMemoryDBToDisk_BadPath(t *testing.T) {
	m, _ := newTestManager()
	db, err := m.GetSqliteDB("")
	require.NoError(t, err)

	assert.Error(t, m.DumpMemoryDBToDisk(db, ""))
	assert.Error(t, m.DumpMemoryDBToDisk(db, filepath.Join(t.TempDir(), "it's.db")))
}
