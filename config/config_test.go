package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithEnvFile("", "")
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "students.txt", cfg.Storage.Path)
	assert.True(t, cfg.App.SaveOnExit)
	assert.Equal(t, "stderr", cfg.Observability.LogOutput)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "roster.yaml", `
app:
  operation_timeout: 2s
storage:
  backend: sqlite
  path: /tmp/roster.db
observability:
  log_level: debug
`)
	t.Setenv("ROSTER_DATA_PATH", "/var/lib/roster.db")

	cfg, err := LoadWithEnvFile(path, "")
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/roster.db", cfg.Storage.Path)
	assert.Equal(t, 2*time.Second, cfg.App.OperationTimeout)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	// Untouched sections keep their defaults.
	assert.Equal(t, 6379, cfg.Redis.Port)
}

func TestLoad_DotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "ROSTER_BACKEND=redis\nREDIS_KEY_PREFIX=school\n")

	t.Setenv("REDIS_KEY_PREFIX", "fromenv")
	t.Cleanup(func() { os.Unsetenv("ROSTER_BACKEND") })

	cfg, err := LoadWithEnvFile("", envFile)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "fromenv", cfg.Redis.KeyPrefix)
}

func TestLoad_MissingYAMLIsError(t *testing.T) {
	_, err := LoadWithEnvFile(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := LoadWithEnvFile("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "ftp"
	cfg.Storage.Path = ""
	cfg.Observability.LogFormat = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Storage.Backend must be one of")
	assert.Contains(t, err.Error(), "Storage.Path is required")
	assert.Contains(t, err.Error(), "Observability.LogFormat must be one of")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = BackendPostgres

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")

	cfg.Database.URL = "postgres://u:p@localhost:5432/roster"
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_BuildsDatabaseURLFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "registrar")
	t.Setenv("DB_PASSWORD", "secret")

	cfg := Default()
	cfg.applyEnv()
	assert.Equal(t, "postgres://registrar:secret@db:5432/roster?sslmode=disable", cfg.Database.URL)
}
