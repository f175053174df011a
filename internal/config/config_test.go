package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadEngineConfigOverridesDefaultsPartially(t *testing.T) {
	path := writeTempFile(t, "server:\n  addr: \":9090\"\noptimizer:\n  pool_size: 4\n")

	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Optimizer.PoolSize)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr)
}

func TestLoadEngineConfigMissingFileErrors(t *testing.T) {
	_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadStrategySpecRejectsInvalidSpec(t *testing.T) {
	path := writeTempFile(t, "strategy_id: \"\"\nstrategy_version: v1\n")

	_, err := LoadStrategySpec(path)
	assert.Error(t, err)
}

func TestLoadStrategySpecAcceptsValidSpec(t *testing.T) {
	path := writeTempFile(t, `
strategy_id: trend-follow
strategy_version: v1
params:
  buy_score: 60
  sell_score: 40
  buy_confirm_days: 2
  sell_confirm_days: 2
  cooldown_days: 1
config:
  technical:
    rsi_period: 14
    enable_rsi: true
  signals:
    weights:
      pattern: 0.2
      technical: 0.6
      volume: 0.2
regime:
  - trend
`)

	spec, err := LoadStrategySpec(path)
	require.NoError(t, err)
	assert.Equal(t, "trend-follow", spec.StrategyID)
	assert.Equal(t, 60.0, spec.Params.BuyScore)
}

func TestLoadBrokerConfigMergesOntoDefaults(t *testing.T) {
	path := writeTempFile(t, "fee_bps: 10\n")

	cfg, err := LoadBrokerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.FeeBps)
	// LotSize isn't set in the override file, so the default survives.
	assert.Greater(t, cfg.LotSize, 0)
}

func TestLoadBrokerConfigRejectsInvalidOverride(t *testing.T) {
	path := writeTempFile(t, "lot_size: 0\n")

	_, err := LoadBrokerConfig(path)
	assert.Error(t, err)
}
