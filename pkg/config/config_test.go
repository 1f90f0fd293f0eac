package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-harvest/pkg/config"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("POI_API_KEY", "")
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Search.Radius)
	assert.Equal(t, 3, cfg.Search.MaxPages)
	assert.Equal(t, 2*time.Second, cfg.Search.PageDelay)
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 5, cfg.Fetch.MaxRateLimitAttempts)
	assert.Equal(t, 2, cfg.Fetch.Concurrency)
	assert.Equal(t, 5, cfg.Fetch.DetailConcurrency)
	assert.Len(t, cfg.Search.Categories, 7)
	assert.NotEmpty(t, cfg.Cities)
	assert.Equal(t, "fetch_report.json", cfg.Output.ReportFile)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
provider:
  name: opentripmap
  apiKey: from-file
search:
  radius: 1500
  pageDelay: 500ms
  categories: [museums, historic]
cities:
  - {name: Barcelona, lat: 41.3851, lng: 2.1734}
fetch:
  baseDelay: 1s
  limiter: bucket
`)
	t.Setenv("POI_API_KEY", "")
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "opentripmap", cfg.Provider.Name)
	assert.Equal(t, "from-file", cfg.Provider.APIKey)
	assert.Equal(t, 1500, cfg.Search.Radius)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.PageDelay)
	assert.Equal(t, []string{"museums", "historic"}, cfg.Search.Categories)
	require.Len(t, cfg.Cities, 1)
	assert.Equal(t, "Barcelona", cfg.Cities[0].Name)
	assert.Equal(t, time.Second, cfg.Fetch.BaseDelay)
	assert.Equal(t, "bucket", cfg.Fetch.Limiter)
	assert.Equal(t, 3, cfg.Search.MaxPages, "unset keys keep defaults")
	require.NoError(t, cfg.Validate())
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "provider:\n  apiKey: from-file\n")
	t.Setenv("POI_API_KEY", "from-env")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Provider.APIKey)
	assert.Equal(t, "localhost:6379", cfg.Dedup.Redis.Address)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Postgres.DSN)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = config.LoadConfig(writeFile(t, "search: [not, a, map"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKey")

	cfg.Provider.APIKey = "k"
	require.NoError(t, cfg.Validate())

	cfg.Provider.Name = "yelp"
	cfg.Cities = nil
	cfg.Dedup.Backend = "redis"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "yelp")
	assert.Contains(t, err.Error(), "cities")
	assert.Contains(t, err.Error(), "redis")
}
