package database

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sessionsnap/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createSourceDB(t *testing.T, dir string) string {
	dbPath := filepath.Join(dir, "source.db")
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return dbPath
}

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := createSourceDB(t, tempDir)
	storagePath := filepath.Join(tempDir, "backups")

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	logger := zerolog.Nop()
	s := NewBackupService(dbPath, cfg, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)
		assert.FileExists(t, path)

		files, err := os.ReadDir(storagePath)
		require.NoError(t, err)
		assert.Len(t, files, 1)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, backupPrefix+"old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		unrelated := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

		s.CleanupOldBackups()

		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, unrelated)
		files, err := os.ReadDir(storagePath)
		require.NoError(t, err)
		assert.Len(t, files, 2)
	})
}

func TestBackupService_Fallback(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := createSourceDB(t, tempDir)
	logger := zerolog.New(io.Discard)
	s := NewBackupService(dbPath, config.BackupConfig{Enabled: true, StoragePath: tempDir}, &logger)

	backupPath := filepath.Join(tempDir, "fallback_test.db")
	require.NoError(t, s.copyFile(backupPath))
	assert.FileExists(t, backupPath)
}

func TestBackupService_Loop(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := createSourceDB(t, tempDir)
	logger := zerolog.New(io.Discard)

	cfg := config.BackupConfig{Enabled: true, Schedule: "10ms", StoragePath: filepath.Join(tempDir, "loop")}
	s := NewBackupService(dbPath, cfg, &logger)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	s.Start(ctx)

	files, err := os.ReadDir(cfg.StoragePath)
	require.NoError(t, err)
	assert.NotEmpty(t, files)
}

func TestBackupService_StorageError(t *testing.T) {
	tmpFile, err := os.CreateTemp(t.TempDir(), "notadir")
	require.NoError(t, err)
	tmpFile.Close()

	cfg := config.BackupConfig{Enabled: true, StoragePath: filepath.Join(tmpFile.Name(), "subdir")}
	logger := zerolog.New(io.Discard)
	bs := NewBackupService(":memory:", cfg, &logger)

	_, err = bs.PerformBackup(context.Background())
	assert.Error(t, err)
}

func TestBackupService_Disabled(_ *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService("any", config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}
