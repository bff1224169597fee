package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, ":5000", cfg.Server.Addr())
	assert.Equal(t, "web", cfg.Server.StaticDir)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5000, cfg.Training.Samples)
	assert.Equal(t, uint64(42), cfg.Training.Seed)
	assert.Equal(t, 3.0, cfg.Training.NoiseStdDev)
	assert.Equal(t, 100, cfg.Model.NEstimators)
	assert.Equal(t, 10, cfg.Model.MaxDepth)
	assert.Equal(t, 10, cfg.Model.MinSamplesSplit)
	assert.Equal(t, 5, cfg.Model.MinSamplesLeaf)
	assert.True(t, cfg.Model.Bootstrap)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
}

func TestLoad_portAlias(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8088")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8088, cfg.Server.Port)
}

func TestLoad_envOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MODEL_N_ESTIMATORS", "25")
	t.Setenv("STORAGE_DRIVER", "none")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Model.NEstimators)
	assert.Equal(t, StorageNone, cfg.Storage.Driver)
}

func TestLoad_file(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "riskd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  static_dir: public
training:
  samples: 1200
model:
  max_depth: 6
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "public", cfg.Server.StaticDir)
	assert.Equal(t, 1200, cfg.Training.Samples)
	assert.Equal(t, 6, cfg.Model.MaxDepth)
	assert.Equal(t, 100, cfg.Model.NEstimators)
}

func TestLoad_invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", "redis")

	_, err := Load("")
	assert.Error(t, err)
}
