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

package handshake

import (
	"context"
	"time"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/mailbox"
	"github.com/ajroetker/go-multicore/mc/contrib/matmul"
	"github.com/ajroetker/go-multicore/mc/contrib/partition"
	"github.com/ajroetker/go-multicore/mc/contrib/store"
	"github.com/ajroetker/go-multicore/mc/contrib/timer"
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// core is the program run by one core of the job.
type core struct {
	id       mc.CoreID
	cfg      mc.Config
	rows     partition.RowRange
	store    *store.Store[Element]
	bus      *mailbox.Bus
	policy   mailbox.Policy
	observer Observer
	state    State
	result   *Result

	// Primary only.
	operands [2][]Element
	counter  *timer.Counter
	reported chan<- struct{}

	halt <-chan struct{}
}

// run executes the core's program until its terminal state is released.
// Panics raised by the store on ownership violations are returned as errors.
func (c *core) run(ctx context.Context) error {
	var err error
	exception := exceptions.TryCatch[error](func() {
		if c.id.IsPrimary() {
			err = c.runPrimary(ctx)
		} else {
			err = c.runSecondary(ctx)
		}
	})
	if exception != nil {
		return errors.WithMessagef(exception, "%s failed in state %s", c.id, c.state)
	}
	return err
}

// enter moves the core to state s, which must follow the current state.
func (c *core) enter(s State) {
	role := mc.RoleOf(c.id)
	if next, ok := Next(role, c.state); !ok || next != s {
		exceptions.Panicf("%s (%s): invalid transition %s -> %s", c.id, role, c.state, s)
	}
	c.state = s
	klog.V(1).Infof("%s: %s", c.id, s)
	if c.observer != nil {
		c.observer.OnState(c.id, s)
	}
}

func (c *core) runPrimary(ctx context.Context) error {
	if c.observer != nil {
		c.observer.OnState(c.id, StateInit)
	}
	secondaries := c.cfg.Secondaries()
	starts := make([]*mailbox.Mailbox, 0, len(secondaries))
	dones := make([]*mailbox.Mailbox, 0, len(secondaries))
	for _, id := range secondaries {
		in, err := c.bus.Open(id, mailbox.In)
		if err != nil {
			return errors.WithMessagef(err, "%s: init", c.id)
		}
		out, err := c.bus.Open(id, mailbox.Out)
		if err != nil {
			return errors.WithMessagef(err, "%s: init", c.id)
		}
		starts = append(starts, in)
		dones = append(dones, out)
	}
	rows, err := c.store.Rows(c.id, c.rows)
	if err != nil {
		return errors.WithMessagef(err, "%s: init", c.id)
	}
	ops, err := c.store.Operands()
	if err != nil {
		return errors.WithMessagef(err, "%s: init", c.id)
	}

	c.enter(StateSeedData)
	if a, b := c.operands[0], c.operands[1]; a != nil {
		ops.Load(a, b)
	} else {
		ops.Seed()
	}

	c.enter(StateFlushBeforeStart)
	ops.Flush()

	c.enter(StateDispatching)
	c.counter.Reset()
	if to, ok := c.observer.(TimerObserver); ok {
		to.OnTimerReset(c.id)
	}
	for _, m := range starts {
		if err := m.Send(ctx, mailbox.Token{}, c.policy); err != nil {
			return errors.WithMessagef(err, "%s: dispatching start to %s", c.id, m.Core())
		}
	}

	c.compute(rows)

	c.enter(StateFlushAfterCompute)
	rows.Flush()

	c.enter(StateCollecting)
	for _, m := range dones {
		if _, err := m.Receive(ctx, c.policy); err != nil {
			return errors.WithMessagef(err, "%s: collecting done from %s", c.id, m.Core())
		}
	}
	elapsed := c.counter.Elapsed()
	cycles := timer.Cycles(elapsed, c.counter.Hz())
	if to, ok := c.observer.(TimerObserver); ok {
		to.OnTimerCapture(c.id, cycles)
	}

	c.enter(StateReporting)
	view := c.store.Acquire()
	c.result.C = view.C()
	c.result.Cycles = cycles
	c.result.Elapsed = elapsed
	c.result.Unassigned = view.Unpublished()
	close(c.reported)

	c.enter(StateTerminal)
	c.park(ctx)
	return nil
}

func (c *core) runSecondary(ctx context.Context) error {
	if c.observer != nil {
		c.observer.OnState(c.id, StateInit)
	}
	out, err := c.bus.Open(c.id, mailbox.Out)
	if err != nil {
		return errors.WithMessagef(err, "%s: init", c.id)
	}
	in, err := c.bus.Open(c.id, mailbox.In)
	if err != nil {
		return errors.WithMessagef(err, "%s: init", c.id)
	}
	rows, err := c.store.Rows(c.id, c.rows)
	if err != nil {
		return errors.WithMessagef(err, "%s: init", c.id)
	}

	c.enter(StateWaitForStart)
	if _, err := in.Receive(ctx, c.policy); err != nil {
		return errors.WithMessagef(err, "%s: waiting for start", c.id)
	}

	c.compute(rows)

	c.enter(StateFlushAfterCompute)
	rows.Flush()

	c.enter(StateSignalDone)
	if err := out.Send(ctx, mailbox.Token{}, c.policy); err != nil {
		return errors.WithMessagef(err, "%s: signaling done", c.id)
	}

	c.enter(StateTerminal)
	c.park(ctx)
	return nil
}

// compute runs the multiply kernel over the core's own rows.
func (c *core) compute(rows *store.RowWriter[Element]) {
	c.enter(StateComputing)
	view := c.store.Acquire()
	start := time.Now()
	matmul.MulRows(view.A(), view.B(), rows.Data(), view.Size(), c.rows)
	c.result.Compute[c.id] = time.Since(start)
}

// park idles in the terminal state until the job is released.
func (c *core) park(ctx context.Context) {
	select {
	case <-c.halt:
	case <-ctx.Done():
	}
}
