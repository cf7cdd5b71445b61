package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestDefaults(t *testing.T) {
	reset(t)
	require.NoError(t, Init(""))

	sim, err := GetSimulation()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8545", sim.RPC)
	assert.Equal(t, "eth", sim.Network)
	assert.Equal(t, "deploy.json", sim.DeployFile)
	assert.Equal(t, 10, sim.Actions)
	assert.Equal(t, int64(0), sim.Seed)
	assert.Equal(t, 30*time.Second, sim.ReceiptTimeout)

	sg, err := GetSubgraph()
	require.NoError(t, err)
	assert.Equal(t, 1000, sg.PageSize)
	assert.Equal(t, 0, sg.Retries)
	assert.Equal(t, 0.0, sg.RateLimit)

	log, err := GetLog()
	require.NoError(t, err)
	assert.Equal(t, "info", log.Level)
}

func TestEnvironment(t *testing.T) {
	reset(t)
	t.Setenv("SETTSIM_SIMULATION_SEED", "42")
	t.Setenv("SETTSIM_SIMULATION_SETT", "native.badger")
	t.Setenv("SETTSIM_SUBGRAPH_TIMEOUT", "5s")
	t.Setenv("SETTSIM_LOG_LEVEL", "debug")
	require.NoError(t, Init(""))

	sim, err := GetSimulation()
	require.NoError(t, err)
	assert.Equal(t, int64(42), sim.Seed)
	assert.Equal(t, "native.badger", sim.Sett)

	sg, err := GetSubgraph()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, sg.Timeout)

	log, err := GetLog()
	require.NoError(t, err)
	assert.Equal(t, "debug", log.Level)
}

func TestFile(t *testing.T) {
	reset(t)
	path := filepath.Join(t.TempDir(), "settsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
simulation:
  network: bsc
  actions: 25
subgraph:
  page_size: 500
  rate_limit: 2.5
`), 0o600))
	require.NoError(t, Init(path))

	sim, err := GetSimulation()
	require.NoError(t, err)
	assert.Equal(t, "bsc", sim.Network)
	assert.Equal(t, 25, sim.Actions)
	assert.Equal(t, "http://localhost:8545", sim.RPC)

	sg, err := GetSubgraph()
	require.NoError(t, err)
	assert.Equal(t, 500, sg.PageSize)
	assert.Equal(t, 2.5, sg.RateLimit)

	assert.Error(t, Init(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestNegativeActions(t *testing.T) {
	reset(t)
	t.Setenv("SETTSIM_SIMULATION_ACTIONS", "-1")
	require.NoError(t, Init(""))
	_, err := GetSimulation()
	assert.Error(t, err)
}
