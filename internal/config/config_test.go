package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into an empty directory so no config.yaml or .env is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "gpt-4o-mini", cfg.Classifier.Model)
	assert.Equal(t, 30*time.Second, cfg.Classifier.Timeout())
	assert.Equal(t, time.Hour, cfg.Maps.RouteCacheTTL())
	assert.Equal(t, 5*time.Second, cfg.Maps.DirectionsTimeout())
	assert.Equal(t, "0 3 * * *", cfg.Ingest.Schedule)
	assert.InDelta(t, 2.0, cfg.Ingest.RequestsPerSecond, 0.001)
	assert.Equal(t, 10*time.Minute, cfg.Ingest.RunTimeout())
	assert.False(t, cfg.Matcher.RequireOpen)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
  database_url: /tmp/wastejobs.db
matcher:
  require_open: true
ingest:
  schedule: ""
  concurrency: 6
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/wastejobs.db", cfg.Store.DatabaseURL)
	assert.True(t, cfg.Matcher.RequireOpen)
	assert.Empty(t, cfg.Ingest.Schedule)
	assert.Equal(t, 6, cfg.Ingest.Concurrency)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0644))

	t.Setenv("WASTEJOBS_LOG_LEVEL", "warn")
	t.Setenv("WASTEJOBS_MATCHER_REQUIRE_OPEN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Matcher.RequireOpen)
}

func TestLoadConventionalEnvNames(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/wastejobs")
	t.Setenv("PORT", "3000")
	t.Setenv("APP_JWT_SECRET", "s3cret")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GOOGLE_MAPS_API_KEY", "maps-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/wastejobs", cfg.Store.DatabaseURL)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "sk-test", cfg.Classifier.OpenAIAPIKey)
	assert.Equal(t, "maps-key", cfg.Maps.APIKey)
	require.NoError(t, cfg.ValidateServer())
}

func TestPrefixedEnvWinsOverConventional(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("WASTEJOBS_STORE_DATABASE_URL", "postgres://explicit/db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://explicit/db", cfg.Store.DatabaseURL)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Driver = "mysql"
	assert.Error(t, cfg.ValidateStore())

	cfg.Store.Driver = "sqlite"
	assert.Error(t, cfg.ValidateStore())

	cfg.Store.DatabaseURL = "file.db"
	require.NoError(t, cfg.ValidateStore())

	cfg.Server.Port = 8080
	assert.Error(t, cfg.ValidateServer(), "jwt secret missing")

	cfg.Auth.JWTSecret = "x"
	require.NoError(t, cfg.ValidateServer())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.ValidateServer())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
