package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wheresmywater/backend/internal/setup/config"
)

const commonTOML = `
version = 1

[debug]
log_level = "debug"
max_logs_to_keep = 5

[postgresql]
host = "db"
port = 5432
db_name = "water"

[voting]
revote_window_seconds = 600
`

const apiTOML = `
version = 1

[server]
host = "0.0.0.0"
port = 8080

[auth]
access_token_secret = "secret"

[rate_limit]
requests_per_second = 2.5
burst_size = 5
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfigFrom(t *testing.T) {
	t.Parallel()

	empty := t.TempDir()
	dir := t.TempDir()
	writeFile(t, dir, "common.toml", commonTOML)
	writeFile(t, dir, "api.toml", apiTOML)

	cfg, used, err := config.LoadConfigFrom([]string{empty, dir})
	require.NoError(t, err)
	assert.Equal(t, dir, used)

	assert.Equal(t, "debug", cfg.Common.Debug.LogLevel)
	assert.Equal(t, "db", cfg.Common.PostgreSQL.Host)
	assert.Equal(t, 5432, cfg.Common.PostgreSQL.Port)
	assert.Equal(t, "water", cfg.Common.PostgreSQL.DBName)
	assert.Equal(t, 8080, cfg.API.Server.Port)
	assert.Equal(t, "secret", cfg.API.Auth.AccessTokenSecret)
	assert.InDelta(t, 2.5, cfg.API.RateLimit.RequestsPerSecond, 0.001)

	assert.Equal(t, 10*time.Minute, cfg.Common.Voting.RevoteWindow())
	assert.Equal(t, 48*time.Hour, cfg.Common.Voting.Retention())
	assert.Equal(t, config.DefaultPurgeBatchSize, cfg.Common.Voting.BatchSize())
}

func TestLoadConfigFromErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, dir, "common.toml", commonTOML)

		_, _, err := config.LoadConfigFrom([]string{dir})
		require.ErrorIs(t, err, config.ErrConfigFileNotFound)
		assert.Contains(t, err.Error(), "api.toml")
	})

	t.Run("missing version", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, dir, "common.toml", "[debug]\nlog_level = \"info\"\n")
		writeFile(t, dir, "api.toml", apiTOML)

		_, _, err := config.LoadConfigFrom([]string{dir})
		require.ErrorIs(t, err, config.ErrConfigVersionMissing)
	})

	t.Run("version mismatch", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeFile(t, dir, "common.toml", commonTOML)
		writeFile(t, dir, "api.toml", "version = 7\n")

		_, _, err := config.LoadConfigFrom([]string{dir})
		require.ErrorIs(t, err, config.ErrConfigVersionMismatch)
	})
}

func TestVotingDefaults(t *testing.T) {
	t.Parallel()

	var voting config.Voting
	assert.Equal(t, 2*time.Hour, voting.RevoteWindow())
	assert.Equal(t, 48*time.Hour, voting.Retention())
	assert.Equal(t, 5*time.Minute, voting.PurgeInterval())
}
