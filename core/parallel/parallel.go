// Package parallel splits row-wise work over the available CPU cores.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// chunks divides items into at most runtime.NumCPU() contiguous ranges
// (ceiling division) and calls fn for each non-empty [start, end).
func chunks(items int, fn func(start, end int)) {
	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		fn(start, end)
	}
}

// Parallelize runs fn concurrently over disjoint ranges covering [0, items)
// and returns the first error any range reported.
func Parallelize(items int, fn func(start, end int) error) error {
	if items <= 0 {
		return nil
	}
	var g errgroup.Group
	chunks(items, func(start, end int) {
		g.Go(func() error { return fn(start, end) })
	})
	return g.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items does not exceed threshold, and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int) error) error {
	if items <= threshold {
		if items <= 0 {
			return nil
		}
		return fn(0, items)
	}
	return Parallelize(items, fn)
}
