// Package utils contains small helpers shared by the raster and contour packages.
package utils

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ParallelForEachCell calls f for every [row, col] of a rows x cols grid. Rows are split into
// ParallelFactor contiguous bands and each band runs on its own goroutine. f must only write
// state owned by its own cell.
func ParallelForEachCell(rows, cols int, f func(row, col int)) {
	if rows <= 0 || cols <= 0 {
		return
	}
	bands := ParallelFactor
	if bands > rows {
		bands = rows
	}
	bandSize := rows / bands
	extra := rows % bands

	var waitGroup sync.WaitGroup
	waitGroup.Add(bands)
	from := 0
	for band := 0; band < bands; band++ {
		to := from + bandSize
		if band < extra {
			to++
		}
		startRow, endRow := from, to
		utils.PanicCapturingGo(func() {
			defer waitGroup.Done()
			for row := startRow; row < endRow; row++ {
				for col := 0; col < cols; col++ {
					f(row, col)
				}
			}
		})
		from = to
	}
	waitGroup.Wait()
}

// SimpleFunc is for RunInParallel.
type SimpleFunc func(ctx context.Context) error

// RunInParallel runs all functions in parallel, return is elapsed time and an error.
func RunInParallel(ctx context.Context, fs []SimpleFunc) (time.Duration, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	var bigError error
	var bigErrorMutex sync.Mutex
	storeError := func(err error) {
		bigErrorMutex.Lock()
		defer bigErrorMutex.Unlock()
		if bigError == nil || !errors.Is(err, context.Canceled) {
			bigError = multierr.Combine(bigError, err)
		}
	}

	helper := func(f SimpleFunc) {
		defer func() {
			if thePanic := recover(); thePanic != nil {
				storeError(fmt.Errorf("got panic running something in parallel: %v", thePanic))
				cancel()
			}
			wg.Done()
		}()
		if err := f(ctx); err != nil {
			storeError(err)
			cancel()
		}
	}

	for _, f := range fs {
		wg.Add(1)
		go helper(f)
	}

	wg.Wait()
	return time.Since(start), bigError
}
