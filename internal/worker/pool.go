// Package worker provides bounded parallel execution over indexed tasks.
package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// Stats counts what a run did.
type Stats struct {
	Workers   int
	Processed int64
	Errors    int64
}

// Map runs fn(i) for every i in [0, n) using at most `workers` goroutines.
// Per-index errors are collected positionally and never abort sibling
// indices; a cancelled context stops scheduling new indices.
func Map(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) ([]error, Stats) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}

	errs := make([]error, n)
	var processed, failed atomic.Int64

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				err := fn(ctx, i)
				errs[i] = err
				processed.Add(1)
				if err != nil {
					failed.Add(1)
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case idx <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(idx)
	wg.Wait()

	return errs, Stats{Workers: workers, Processed: processed.Load(), Errors: failed.Load()}
}
