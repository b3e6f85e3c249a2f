package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "pockmark.db", cfg.Store.Path)
	assert.Equal(t, 1, cfg.Engine.Seats)
	assert.InDelta(t, 0.0, cfg.Extract.ZLimit, 0.001)
	assert.InDelta(t, 1e6, cfg.Extract.MaxAreaM2, 0.001)
	assert.Equal(t, 0, cfg.Analyse.Workers)
	assert.Equal(t, "out", cfg.Export.Dir)
	assert.Equal(t, []string{"shapefile", "geojson"}, cfg.Export.Formats)
	assert.True(t, cfg.Export.Styles)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/pockmarks
extract:
  z_limit: 2.5
  max_area_m2: 50000
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/pockmarks", cfg.Store.DatabaseURL)
	assert.InDelta(t, 2.5, cfg.Extract.ZLimit, 0.001)
	assert.InDelta(t, 50000.0, cfg.Extract.MaxAreaM2, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 1, cfg.Engine.Seats)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("POCKMARK_STORE_DRIVER", "sqlite")
	t.Setenv("POCKMARK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("POCKMARK_ENGINE_SEATS", "4")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Engine.Seats)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "pockmark.db"
	cfg.Engine.Seats = 1
	cfg.Extract.MaxAreaM2 = 1e6
	return cfg
}

func TestValidateIdentify_OK(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("identify"))
}

func TestValidateIdentify_NegativeZLimit(t *testing.T) {
	cfg := validDefaults()
	cfg.Extract.ZLimit = -1

	err := cfg.Validate("identify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "z_limit must be >= 0")
}

func TestValidateIdentify_BadMaxArea(t *testing.T) {
	cfg := validDefaults()
	cfg.Extract.MaxAreaM2 = 0

	err := cfg.Validate("identify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_area_m2 must be > 0")
}

func TestValidatePostgres_RequiresURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url is required")
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "oracle"

	err := cfg.Validate("identify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver must be sqlite or postgres")
}

func TestValidateAnalyse_NegativeWorkers(t *testing.T) {
	cfg := validDefaults()
	cfg.Analyse.Workers = -1

	err := cfg.Validate("analyse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers must be >= 0")
}

func TestValidateRun_ZeroSeats(t *testing.T) {
	cfg := validDefaults()
	cfg.Engine.Seats = 0

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seats must be >= 1")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
