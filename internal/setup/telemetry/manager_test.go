package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheresmywater/backend/internal/setup/config"
	"github.com/wheresmywater/backend/internal/setup/telemetry"
)

func TestManagerGetLoggers(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	manager := telemetry.NewManager(t.Context(), telemetry.ServiceREST, logDir,
		&config.Debug{LogLevel: "debug", MaxLogsToKeep: 3, MaxLogLines: 100}, &config.Loki{}, "")

	mainLogger, dbLogger, err := manager.GetLoggers()
	require.NoError(t, err)

	mainLogger.Info("API started")
	dbLogger.Debug("Query executed")
	manager.Stop()

	sessionDir := manager.GetCurrentSessionDir()

	content, err := os.ReadFile(filepath.Join(sessionDir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "API started")

	content, err = os.ReadFile(filepath.Join(sessionDir, "database.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Query executed")
}

func TestManagerRotatesSessions(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	for i, name := range []string{"old-1", "old-2", "old-3"} {
		dir := filepath.Join(logDir, name)
		require.NoError(t, os.Mkdir(dir, 0o755))

		modTime := time.Now().Add(time.Duration(i-10) * time.Hour)
		require.NoError(t, os.Chtimes(dir, modTime, modTime))
	}

	manager := telemetry.NewManager(t.Context(), telemetry.ServiceWorker, logDir,
		&config.Debug{LogLevel: "info", MaxLogsToKeep: 2}, nil, "purge")

	_, _, err := manager.GetLoggers()
	require.NoError(t, err)
	defer manager.Stop()

	sessions, err := filepath.Glob(filepath.Join(logDir, "*"))
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.NoDirExists(t, filepath.Join(logDir, "old-1"))
	assert.NoDirExists(t, filepath.Join(logDir, "old-2"))
	assert.DirExists(t, filepath.Join(logDir, "old-3"))
}
