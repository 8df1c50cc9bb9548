package pool

import (
	"context"
	"runtime"
	"sync"
)

// WorkerPool runs a bounded number of goroutines over a stream of tasks,
// adapting this package's object-reuse concern (reduce allocation and
// scheduling overhead on a hot path) to fan-out instead of pooling: the
// parallel join executors in pkg/query use this to bound how many LHS
// tuples of a batch have their candidates looked up concurrently instead
// of spawning one goroutine per tuple.
type WorkerPool struct {
	workers int
}

// NewWorkerPool builds a pool with workers goroutines; workers <= 0 uses
// runtime.GOMAXPROCS(0).
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool{workers: workers}
}

// Run calls fn(i) for every i in [0, n), using up to p.workers goroutines
// at once, and returns the first error any call produced (after every
// call has returned, successful or not -- this is not a fail-fast
// cancellation, matching the join executors' need to still close every
// per-tuple resource before reporting the failure).
func (p *WorkerPool) Run(ctx context.Context, n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	workers := p.workers
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	errs := make(chan error, n)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := fn(i); err != nil {
					errs <- err
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	if err := ctx.Err(); err != nil {
		return err
	}
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
