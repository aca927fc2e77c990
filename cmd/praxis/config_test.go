package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/praxis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, domain.TierCommunity, cfg.Tier)
		assert.Equal(t, "sqlite", cfg.Repository.Driver)
		assert.Empty(t, cfg.Worker.Tenants)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("PRAXIS_TIER", "pro")
		t.Setenv("PRAXIS_PORT", "9090")
		t.Setenv("PRAXIS_TENANTS", "t1, t2,,")
		t.Setenv("PRAXIS_SWEEP_INTERVAL", "15m")
		t.Setenv("PRAXIS_RISK_THRESHOLD", "0.5")

		cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
		require.NoError(t, err)
		assert.Equal(t, domain.TierPro, cfg.Tier)
		assert.Equal(t, "postgres", cfg.Repository.Driver)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, []string{"t1", "t2"}, cfg.Worker.Tenants)
		assert.Equal(t, 15*time.Minute, cfg.Worker.ExpirySweepInterval)
		assert.Equal(t, 0.5, cfg.Policy.RiskThreshold)
	})

	t.Run("EnvFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.env")
		require.NoError(t, os.WriteFile(path, []byte("PRAXIS_SQLITE_PATH=/tmp/from-file.db\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("PRAXIS_SQLITE_PATH") })

		cfg, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/from-file.db", cfg.Repository.SQLitePath)
	})

	t.Run("InvalidValue", func(t *testing.T) {
		t.Setenv("PRAXIS_PORT", "eighty")
		_, err := loadConfig(filepath.Join(t.TempDir(), "missing.env"))
		assert.Error(t, err)
	})
}
