package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korpling/graphannis-core/pkg/types"
)

func TestConfigure(t *testing.T) {
	origConfig := globalConfig
	defer Configure(origConfig)

	Configure(PoolConfig{Enabled: true, MaxCap: 500})
	assert.True(t, IsEnabled())
	assert.Equal(t, 500, globalConfig.MaxCap)

	Configure(PoolConfig{Enabled: false, MaxCap: 1000})
	assert.False(t, IsEnabled())
}

func TestMatchBatchRoundTrip(t *testing.T) {
	origConfig := globalConfig
	defer Configure(origConfig)
	Configure(PoolConfig{Enabled: true, MaxCap: 4096})

	batch := GetMatchBatch()
	require.Len(t, batch, 0)
	batch = append(batch, []types.Match{{Node: 1}}, []types.Match{{Node: 2}})
	PutMatchBatch(batch)

	again := GetMatchBatch()
	assert.Len(t, again, 0)
	assert.GreaterOrEqual(t, cap(again), 0)
}

func TestMatchBatchDisabledBypassesPool(t *testing.T) {
	origConfig := globalConfig
	defer Configure(origConfig)
	Configure(PoolConfig{Enabled: false, MaxCap: 4096})

	batch := GetMatchBatch()
	assert.Len(t, batch, 0)
	// PutMatchBatch is a no-op while disabled; should not panic.
	PutMatchBatch(batch)
}

func TestMatchBatchOversizedNotPooled(t *testing.T) {
	origConfig := globalConfig
	defer Configure(origConfig)
	Configure(PoolConfig{Enabled: true, MaxCap: 1})

	oversized := make([][]types.Match, 0, 8)
	// Should not panic even though capacity exceeds MaxCap.
	PutMatchBatch(oversized)
}
