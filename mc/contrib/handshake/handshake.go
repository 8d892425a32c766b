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

// Package handshake runs the multicore matrix multiply: every core computes its
// own rows of C = A * B, synchronized by a split barrier.
//
// The primary core seeds A and B, flushes them, resets the timer and sends a
// start token to every secondary. Each secondary blocks on its start token.
// Every core then multiplies its own rows, flushes them, and the secondaries
// send a done token back. The primary collects every done token, in ascending
// core order, before it reads the timer and the result. Finally all cores park
// in their terminal state.
//
// The two flush points and the token exchanges are what order the writes of one
// core before the reads of another: the operand flush happens before any start
// token is sent, and a secondary's row flush happens before its done token.
package handshake

import (
	"context"
	"sync"
	"time"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/mailbox"
	"github.com/ajroetker/go-multicore/mc/contrib/partition"
	"github.com/ajroetker/go-multicore/mc/contrib/store"
	"github.com/ajroetker/go-multicore/mc/contrib/timer"
	"github.com/ajroetker/go-multicore/mc/contrib/workerpool"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Element is the type of the matrix elements.
type Element = int32

// Observer is notified of every state a core enters, including StateInit.
// It is called concurrently from every core.
//
// An Observer that also implements mailbox.Observer is installed on the
// mailboxes created by Run.
type Observer interface {
	OnState(core mc.CoreID, s State)
}

// TimerObserver is notified when the primary resets and captures the
// execution timer. An Observer that also implements TimerObserver receives
// these events.
type TimerObserver interface {
	OnTimerReset(core mc.CoreID)
	OnTimerCapture(core mc.CoreID, cycles uint64)
}

// Result is what the primary reports at the end of a run.
type Result struct {
	// RunID identifies the run in logs.
	RunID uuid.UUID

	Config mc.Config

	// C is the result matrix, row-major.
	C []Element

	// Cycles is the timer count covering the parallel compute window: from
	// just before the first start token to just after the last done token.
	Cycles uint64

	// Elapsed is the wall time of the same window.
	Elapsed time.Duration

	// Ranges are the rows of each core, indexed by core identity.
	Ranges []partition.RowRange

	// Compute is the time each core spent in its multiply kernel.
	Compute []time.Duration

	// Unassigned are the rows of C no core computed.
	Unassigned []int

	releaseOnce sync.Once
	release     func() error
	releaseErr  error
}

// At returns C[row][col].
func (r *Result) At(row, col int) Element {
	n := r.Config.MatrixSize
	return r.C[row*n+col]
}

// Row returns row r of C.
func (r *Result) Row(row int) []Element {
	n := r.Config.MatrixSize
	return r.C[row*n : (row+1)*n]
}

// Release lets the cores leave their terminal state and waits for them.
// It is only needed when the job ran with Config.Hold; otherwise Run already
// released the cores. It is safe to call more than once.
func (r *Result) Release() error {
	r.releaseOnce.Do(func() {
		if r.release != nil {
			r.releaseErr = r.release()
		}
	})
	return r.releaseErr
}

type options struct {
	observer Observer
	bus      *mailbox.Bus
	pool     *workerpool.Pool
	a, b     []Element
}

// Option configures Run.
type Option func(*options)

// WithObserver installs an observer of core states and, if it implements
// mailbox.Observer, of mailbox traffic.
func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithBus uses the given mailboxes instead of provisioning them from the config.
func WithBus(bus *mailbox.Bus) Option {
	return func(opts *options) { opts.bus = bus }
}

// WithPool runs the cores on the given pool, which must have at least
// Config.CoreCount workers. The pool is not closed by Run.
func WithPool(pool *workerpool.Pool) Option {
	return func(opts *options) { opts.pool = pool }
}

// WithOperands makes the primary load a and b (row-major, N*N each) instead of
// seeding the default operands.
func WithOperands(a, b []Element) Option {
	return func(opts *options) { opts.a, opts.b = a, b }
}

// Run executes one multicore job and returns the primary's report.
//
// Run returns once the primary reached its reporting state. Unless cfg.Hold is
// set, it first releases every core from its terminal state and waits for them.
// Any core error cancels the other cores and is returned.
func Run(ctx context.Context, cfg mc.Config, opts ...Option) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	n := cfg.MatrixSize
	if (o.a == nil) != (o.b == nil) {
		return nil, errors.New("WithOperands needs both a and b, got only one of them")
	}
	if o.a != nil && (len(o.a) != n*n || len(o.b) != n*n) {
		return nil, errors.Errorf("operands must have %d elements each, got len(a)=%d, len(b)=%d", n*n, len(o.a), len(o.b))
	}

	plan := partition.Plan(cfg.CoreCount, n, cfg.Remainder)
	if rows := partition.Unassigned(plan, n); len(rows) > 0 {
		klog.Warningf("%d rows over %d cores with remainder policy %s: rows %v are not assigned to any core",
			n, cfg.CoreCount, cfg.Remainder, rows)
	}

	bus := o.bus
	if bus == nil {
		var busOpts []mailbox.Option
		if mo, ok := o.observer.(mailbox.Observer); ok {
			busOpts = append(busOpts, mailbox.WithObserver(mo))
		}
		bus = mailbox.NewBus(cfg, busOpts...)
	}

	pool := o.pool
	ownPool := pool == nil
	if ownPool {
		pool = workerpool.New(cfg.CoreCount, workerpool.WithPinning(cfg.Pin))
	}
	closePool := func() {
		if ownPool {
			pool.Close()
		}
	}
	if pool.NumWorkers() < cfg.CoreCount {
		closePool()
		return nil, errors.Errorf("pool has %d workers, the job needs one per core (%d)", pool.NumWorkers(), cfg.CoreCount)
	}

	res := &Result{
		RunID:   uuid.New(),
		Config:  cfg,
		Ranges:  plan,
		Compute: make([]time.Duration, cfg.CoreCount),
	}
	klog.V(1).Infof("run %s: %d cores, %dx%d, wait=%s, platform %s",
		res.RunID, cfg.CoreCount, n, n, cfg.Wait, mc.PlatformName())

	st := store.New[Element](n)
	halt := make(chan struct{})
	reported := make(chan struct{})
	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.CoreCount {
		c := &core{
			id:       mc.CoreID(i),
			cfg:      cfg,
			rows:     plan[i],
			store:    st,
			bus:      bus,
			policy:   mailbox.PolicyFor(cfg),
			observer: o.observer,
			result:   res,
			halt:     halt,
		}
		if c.id.IsPrimary() {
			c.operands = [2][]Element{o.a, o.b}
			c.counter = timer.New(cfg.ClockHz)
			c.reported = reported
		}
		g.Go(func() error {
			var err error
			pool.Do(func() { err = c.run(gctx) })
			return err
		})
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- g.Wait() }()

	var haltOnce sync.Once
	res.release = func() error {
		haltOnce.Do(func() { close(halt) })
		err := <-waitErr
		closePool()
		return err
	}

	select {
	case <-reported:
	case err := <-waitErr:
		haltOnce.Do(func() { close(halt) })
		closePool()
		if err == nil {
			select {
			case <-reported:
				// Canceled while parked, after a complete run.
				return res, nil
			default:
			}
			err = errors.New("cores terminated before the primary reported")
		}
		return nil, errors.WithMessagef(err, "run %s", res.RunID)
	}

	klog.V(1).Infof("run %s: %d cycles (%s)", res.RunID, res.Cycles, res.Elapsed)
	if cfg.Hold {
		return res, nil
	}
	if err := res.Release(); err != nil {
		return nil, errors.WithMessagef(err, "run %s", res.RunID)
	}
	return res, nil
}
