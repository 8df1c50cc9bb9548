// Package config holds the small set of tunable knobs the core library
// exposes, loaded from environment variables.
//
// graphannis-core is an embedded library, not a service: there is no
// listen address, no auth, no compliance surface to configure here (those
// belong to the external CorpusStorage façade per spec.md §1). What
// remains are three execution-strategy knobs: how many goroutines a
// parallel join may use, a default query timeout, and a node-count
// threshold for preferring disk-backed representations. All three are
// loaded and validated here; nothing in the library itself reads
// QueryTimeout or DiskBasedThreshold.
//
// Example usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("invalid config: %v", err)
//	}
//	join := query.NewParallelIndexJoin(lhs, 0, op, desc, g, cfg.ParallelWorkers)
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"
)

// Config holds every environment-configurable knob the core library reads.
type Config struct {
	// ParallelWorkers bounds how many goroutines a ParallelIndexJoin or
	// ParallelNestedLoopJoin may run at once. 0 or negative means "use
	// runtime.GOMAXPROCS(0)", the pkg/pool.WorkerPool convention.
	ParallelWorkers int

	// QueryTimeout is a default per-query deadline. Zero means no
	// timeout. It is loaded and validated only: no DFS step or join loop
	// in this module checks a deadline, and no code returns
	// coreerrors.ErrTimeout on expiry.
	QueryTimeout time.Duration

	// DiskBasedThreshold is a node count above which a caller may pass
	// disk_based=true to the storage registry's OptimalImplFor, which then
	// prefers DiskAdjacencyListStorage/DiskPathStorage over their
	// in-memory counterparts. Nothing in this module reads it:
	// OptimalImplFor takes diskBased as an explicit argument. See spec.md §4.4.
	DiskBasedThreshold int
}

// Env var names, prefixed GRAPHANNIS_ following the teacher's
// NORNICDB_-prefix convention for its own extensions.
const (
	envParallelWorkers    = "GRAPHANNIS_PARALLEL_WORKERS"
	envQueryTimeout       = "GRAPHANNIS_QUERY_TIMEOUT"
	envDiskBasedThreshold = "GRAPHANNIS_DISK_BASED_THRESHOLD"
)

// Default values used when the corresponding environment variable is unset.
const (
	DefaultQueryTimeout       = 30 * time.Second
	DefaultDiskBasedThreshold = 1_000_000
)

// LoadFromEnv builds a Config from environment variables, falling back to
// package defaults for anything unset or unparsable.
func LoadFromEnv() *Config {
	cfg := &Config{
		ParallelWorkers:    runtime.GOMAXPROCS(0),
		QueryTimeout:       DefaultQueryTimeout,
		DiskBasedThreshold: DefaultDiskBasedThreshold,
	}

	if v, ok := os.LookupEnv(envParallelWorkers); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ParallelWorkers = n
		}
	}
	if v, ok := os.LookupEnv(envQueryTimeout); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.QueryTimeout = d
		}
	}
	if v, ok := os.LookupEnv(envDiskBasedThreshold); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DiskBasedThreshold = n
		}
	}

	return cfg
}

// Validate rejects configurations that would make execution nonsensical.
func (c *Config) Validate() error {
	if c.QueryTimeout < 0 {
		return fmt.Errorf("config: %s must not be negative, got %s", envQueryTimeout, c.QueryTimeout)
	}
	if c.DiskBasedThreshold < 0 {
		return fmt.Errorf("config: %s must not be negative, got %d", envDiskBasedThreshold, c.DiskBasedThreshold)
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{ParallelWorkers:%d QueryTimeout:%s DiskBasedThreshold:%d}",
		c.ParallelWorkers, c.QueryTimeout, c.DiskBasedThreshold)
}
