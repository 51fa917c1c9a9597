package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceres-project/ceres/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "latest", cfg.Tree.DefaultCachingBehavior)
	assert.Positive(t, cfg.Tree.NodeCacheCapacity)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, "ceres", cfg.Observability.ServiceName)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ceres.yaml")

	content := "tree:\n  default_caching_behavior: all\n  node_cache_capacity: 100\nobservability:\n  log_level: debug\n  metrics_addr: 127.0.0.1:9090\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "all", cfg.Tree.DefaultCachingBehavior)
	assert.Equal(t, 100, cfg.Tree.NodeCacheCapacity)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, "127.0.0.1:9090", cfg.Observability.MetricsAddr)
}

func TestLoadConfig_InvalidCachingBehavior(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ceres.yaml")

	require.NoError(t, os.WriteFile(path, []byte("tree:\n  default_caching_behavior: bogus\n"), 0o644))

	_, err := config.LoadConfig(path)
	require.ErrorIs(t, err, config.ErrInvalidCachingBehavior)
}
