package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultQueryTimeout, cfg.QueryTimeout)
	assert.Equal(t, DefaultDiskBasedThreshold, cfg.DiskBasedThreshold)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv(envParallelWorkers, "4")
	t.Setenv(envQueryTimeout, "5s")
	t.Setenv(envDiskBasedThreshold, "10")

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.ParallelWorkers)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 10, cfg.DiskBasedThreshold)
}

func TestValidateRejectsNegativeTimeout(t *testing.T) {
	cfg := &Config{QueryTimeout: -1}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeThreshold(t *testing.T) {
	cfg := &Config{DiskBasedThreshold: -1}
	assert.Error(t, cfg.Validate())
}
