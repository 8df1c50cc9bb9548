// Package pool provides object pooling for graphannis-core to reduce
// allocations on the parallel join executors' hot path.
//
// The batch buffers ParallelIndexJoin/ParallelNestedLoopJoin allocate once
// per defaultBatchSize outer tuples, are fully drained within the same
// fillBatch call, and then discarded — a textbook sync.Pool candidate.
//
// Usage:
//
//	batch := pool.GetMatchBatch()
//	defer pool.PutMatchBatch(batch)
//	batch = append(batch, tuple)
package pool

import (
	"sync"

	"github.com/korpling/graphannis-core/pkg/types"
)

// PoolConfig configures object pooling behavior.
type PoolConfig struct {
	// Enabled controls whether pooling is active.
	Enabled bool

	// MaxCap limits the buffer capacity kept in the pool; larger buffers
	// are dropped instead of recycled to bound worst-case memory held.
	MaxCap int
}

var globalConfig = PoolConfig{
	Enabled: true,
	MaxCap:  4096,
}

// Configure sets global pool configuration. Should be called early during
// initialization, before any Get/Put call.
func Configure(cfg PoolConfig) {
	globalConfig = cfg
}

// IsEnabled returns whether pooling is active.
func IsEnabled() bool {
	return globalConfig.Enabled
}

// defaultBatchCap mirrors query.defaultBatchSize.
const defaultBatchCap = 256

var matchBatchPool = sync.Pool{
	New: func() any {
		return make([][]types.Match, 0, defaultBatchCap)
	},
}

// GetMatchBatch returns a zero-length, pool-backed buffer ready to hold one
// batch of outer tuples. Call PutMatchBatch once the batch has been fully
// drained and its rows are no longer needed.
func GetMatchBatch() [][]types.Match {
	if !globalConfig.Enabled {
		return make([][]types.Match, 0, defaultBatchCap)
	}
	return matchBatchPool.Get().([][]types.Match)[:0]
}

// PutMatchBatch returns a batch buffer to the pool. Buffers grown past
// MaxCap are dropped rather than recycled.
func PutMatchBatch(batch [][]types.Match) {
	if !globalConfig.Enabled || batch == nil {
		return
	}
	if cap(batch) > globalConfig.MaxCap {
		return
	}
	for i := range batch {
		batch[i] = nil
	}
	matchBatchPool.Put(batch[:0])
}
