package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gospider/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "breadth_first", cfg.Strategy)
	assert.True(t, cfg.Robots.Enabled)
	assert.False(t, cfg.QueryAware.Enabled)
	assert.Equal(t, config.DefaultMaxConcurrentGlobal, cfg.Performance.MaxConcurrentGlobal)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gospider.yaml")

	content := `
strategy: best_first
budget:
  max_pages: 42
  max_depth: 3
query_aware:
  enabled: true
  target_query: "machine learning"
fetcher:
  timeout: 10s
performance:
  max_concurrent_global: 4
  max_concurrent_per_host: 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "best_first", cfg.Strategy)
	assert.Equal(t, int64(42), cfg.Budget.MaxPages)
	assert.Equal(t, 3, cfg.Budget.MaxDepth)
	assert.True(t, cfg.QueryAware.Enabled)
	assert.Equal(t, "machine learning", cfg.QueryAware.TargetQuery)
	assert.Equal(t, 10*time.Second, cfg.Fetcher.Timeout)
	assert.Equal(t, 4, cfg.Performance.MaxConcurrentGlobal)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gospider.yaml")

	// Query foraging without a target query fails validation.
	content := `
query_aware:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := config.Load("/nonexistent/gospider.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy = "random_walk"

	assert.Error(t, cfg.Validate())
}
