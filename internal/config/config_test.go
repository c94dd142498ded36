package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Addr)
	assert.Equal(t, 60*time.Second, cfg.HTTP.RequestTimeout)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, 1e-4, cfg.Engine.Tolerance)
	assert.Equal(t, 100, cfg.Engine.MaxIterations)
	assert.Equal(t, 100, cfg.Engine.Intervals)
	assert.Equal(t, 10000, cfg.Engine.SimulationIterations)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9090"
  request_timeout: 5s
store:
  enabled: true
  path: /tmp/advisor.db
engine:
  max_iterations: 50
  workers: 4
log:
  level: debug
`), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Second, cfg.HTTP.RequestTimeout)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, "/tmp/advisor.db", cfg.Store.Path)
	assert.Equal(t, 50, cfg.Engine.MaxIterations)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep defaults
	assert.Equal(t, 1024, cfg.Engine.BatchSize)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BJADVISOR_HTTP_ADDR", ":7070")
	t.Setenv("BJADVISOR_ENGINE_SIMULATION_ITERATIONS", "500")
	t.Setenv("BJADVISOR_STORE_ENABLED", "true")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTP.Addr)
	assert.Equal(t, 500, cfg.Engine.SimulationIterations)
	assert.True(t, cfg.Store.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	cfg.HTTP.Addr = ""
	cfg.Engine.Tolerance = 0
	cfg.Engine.Workers = -1
	cfg.Engine.BatchSize = 0

	err = cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
	assert.Contains(t, err.Error(), "engine.tolerance")
}
