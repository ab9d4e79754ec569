// Package parallel fans work out across Workers() goroutines using
// golang.org/x/sync/errgroup.
//
// The teacher hand-rolls this pattern per call site: a work channel fed
// with indices, a fixed pool of goroutines draining it, a sync.WaitGroup,
// and (where errors are possible) a results channel collecting the first
// error (see animation.DecodeFramesParallel,
// internal/lossless/encode_predictor.go). errgroup.Group collapses that
// boilerplate to one Go(fn)/Wait() pair. The worker count is not tied to
// GOMAXPROCS: it is 1 unless a "-p N" override or the environment hint
// sets it (spec §5), and is capped only by the number of items.
package parallel

import (
	"context"
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// envHint is the thread-count hint environment variable (spec §5, §6:
// AFNI_COMPRESSOR=PIGZ is the sibling hint for the I/O collaborator's
// default multithreading; this is the compute-side analogue).
const envHint = "VOXELMATH_NUM_THREADS"

// numWorkersOverride, when non-zero, is set by the pipeline driver from an
// explicit "-p N" operation token (spec §5), taking precedence over the
// environment hint and the default of 1.
var numWorkersOverride int

// SetWorkers sets the explicit worker count from a "-p N" token. n <= 0
// clears the override, falling back to the environment hint / default.
func SetWorkers(n int) {
	numWorkersOverride = n
}

// Workers returns the configured worker count: the "-p N" override if
// set, else VOXELMATH_NUM_THREADS if set and valid, else 1 (spec §5
// default).
func Workers() int {
	if numWorkersOverride > 0 {
		return numWorkersOverride
	}
	if s := os.Getenv(envHint); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

// chunkSize splits n items across w workers as evenly as possible,
// rounding up so no worker gets more than ceil(n/w).
func chunkSize(n, w int) int {
	if w <= 0 {
		w = 1
	}
	size := (n + w - 1) / w
	if size < 1 {
		size = 1
	}
	return size
}

// For runs fn(i) for every i in [0, n), distributing iterations across
// Workers() goroutines. It blocks until all iterations complete (or one
// returns an error, in which case For returns the first such error after
// every goroutine finishes its current chunk). This is the per-volume
// (4D series) and per-voxel (time-series) fan-out point spec §4.1/§5
// describes: "Parallelism is within an operation... never across
// operations."
func For(n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	w := Workers()
	if w > n {
		w = n
	}
	if w <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, _ := errgroup.WithContext(context.Background())
	size := chunkSize(n, w)
	for start := 0; start < n; start += size {
		start := start
		end := start + size
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// DefaultWorkers reports the runtime's GOMAXPROCS, used when a caller
// wants the hardware parallelism directly rather than Workers()'s
// spec-mandated default-to-1 behaviour (e.g. sizing a pooled scratch
// buffer per worker).
func DefaultWorkers() int {
	return runtime.GOMAXPROCS(0)
}
