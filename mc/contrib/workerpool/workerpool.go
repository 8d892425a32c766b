// Copyright 2025 go-multicore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package workerpool provides the persistent workers that play the cores of a
// multicore job. A Pool is created once; each of its workers is a goroutine
// that, when pinning is enabled, owns an OS thread bound to its own CPU for the
// lifetime of the pool.
//
// Usage:
//
//	pool := workerpool.New(cfg.CoreCount, workerpool.WithPinning(true))
//	defer pool.Close()
//
//	// Run one core program per worker.
//	pool.Do(func() { runCore(id) })
//
//	// Or split rows over the workers.
//	pool.ParallelFor(n, func(start, end int) {
//	    processRows(start, end)
//	})
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ajroetker/go-multicore/mc"
	"k8s.io/klog/v2"
)

// Pool is a persistent worker pool. Workers are spawned once at creation and
// reused.
type Pool struct {
	numWorkers int
	pin        bool
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
	pinned     atomic.Int32
}

// workItem represents a single unit of work to execute.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// Option configures a Pool.
type Option func(*Pool)

// WithPinning locks each worker to an OS thread and pins worker i to CPU
// i mod NumCPU.
func WithPinning(pin bool) Option {
	return func(p *Pool) { p.pin = pin }
}

// New creates a new worker pool with the specified number of workers.
// Workers are spawned immediately and persist until Close is called.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int, opts ...Option) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		// Buffer enough for all workers to have pending work
		workC: make(chan workItem, numWorkers*2),
	}
	for _, opt := range opts {
		opt(p)
	}

	var started sync.WaitGroup
	started.Add(numWorkers)
	for i := range numWorkers {
		go p.worker(i, &started)
	}
	started.Wait()

	return p
}

// worker is the main loop for each persistent worker goroutine.
func (p *Pool) worker(index int, started *sync.WaitGroup) {
	if p.pin {
		// The thread stays locked until the goroutine exits, at which point
		// the runtime discards it along with its affinity mask.
		runtime.LockOSThread()
		cpu := index % runtime.NumCPU()
		if err := mc.PinCurrentThread(cpu); err != nil {
			klog.Warningf("workerpool: failed to pin worker %d to cpu %d: %v", index, cpu, err)
		} else if mc.PinningSupported {
			p.pinned.Add(1)
		}
	}
	started.Done()
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// NumPinned returns the number of workers bound to a CPU.
func (p *Pool) NumPinned() int {
	return int(p.pinned.Load())
}

// Close shuts down the worker pool. All pending work will complete.
// Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// Do runs fn on a pool worker and blocks until it returns.
//
// A worker runs one function at a time, so up to NumWorkers concurrent calls
// to Do run on distinct workers.
func (p *Pool) Do(fn func()) {
	if p.closed.Load() {
		// Fallback to inline if pool is closed
		fn()
		return
	}
	var wg sync.WaitGroup
	wg.Add(1)
	p.workC <- workItem{fn: fn, barrier: &wg}
	wg.Wait()
}

// ParallelFor executes fn for each index in [0, n) using the worker pool.
// Each worker processes a contiguous range of indices.
// Blocks until all work completes.
//
// fn receives (start, end) indices where work should process [start, end).
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	if p.closed.Load() {
		// Fallback to sequential if pool is closed
		fn(0, n)
		return
	}

	// Determine number of workers to use (don't use more workers than items)
	workers := min(p.numWorkers, n)

	// For very small n, just run sequentially
	if workers == 1 {
		fn(0, n)
		return
	}

	// Calculate chunk size (ensure all items are covered)
	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := range workers {
		start := i * chunkSize
		end := min(start+chunkSize, n)
		if start >= n {
			// No work for this worker
			wg.Done()
			continue
		}

		p.workC <- workItem{
			fn: func() {
				fn(start, end)
			},
			barrier: &wg,
		}
	}

	wg.Wait()
}
