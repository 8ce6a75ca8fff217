// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package dispatch runs a job across worker goroutines with barrier
// semantics: every worker must finish its share of the job before the
// dispatcher returns, matching the solver's batch-by-batch execution model
// (a batch's type batches may run concurrently with each other; the next
// batch must not start until the previous one is fully drained).
package dispatch

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Delegate is one unit of dispatched work: worker is the calling
// goroutine's 0-based index, jobIndex is the next job claimed via the
// dispatcher's fetch-then-decrement counter.
type Delegate func(worker, jobIndex int)

// Dispatcher runs Delegate across a fixed worker count, or single-threaded
// when Deterministic is set (used for reproducible tests and for any
// solve the caller needs bit-identical across runs).
type Dispatcher struct {
	Workers       int
	Deterministic bool
}

// New creates a dispatcher sized to the host's usable CPUs.
func New() *Dispatcher {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return &Dispatcher{Workers: n}
}

// ForJobs runs fn once per job in [0, jobCount), distributing jobs across
// workers via a shared fetch-then-decrement atomic counter (each worker
// claims the next unclaimed job until none remain), and blocks until every
// worker has returned. In Deterministic mode, or when jobCount is small
// enough that a single worker would do all the work anyway, it runs
// sequentially on the calling goroutine in job order — the only dispatch
// mode that guarantees a fixed job visitation order.
func (d *Dispatcher) ForJobs(ctx context.Context, jobCount int, fn Delegate) error {
	if jobCount <= 0 {
		return nil
	}
	if d.Deterministic || d.Workers <= 1 || jobCount == 1 {
		for j := 0; j < jobCount; j++ {
			fn(0, j)
		}
		return nil
	}

	// remaining counts down from jobCount; each worker fetch-decrements it
	// and claims the job index the decrement produced, until it goes negative.
	var remaining int64 = int64(jobCount)
	g, _ := errgroup.WithContext(ctx)
	workers := d.Workers
	if workers > jobCount {
		workers = jobCount
	}
	for w := 0; w < workers; w++ {
		worker := w
		g.Go(func() error {
			for {
				next := atomic.AddInt64(&remaining, -1)
				if next < 0 {
					return nil
				}
				jobIndex := jobCount - 1 - int(next)
				fn(worker, jobIndex)
			}
		})
	}
	return g.Wait()
}
