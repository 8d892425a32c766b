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

// Package trace records the events of a multicore run and checks the
// happens-before relations the handshake promises.
//
// Every core carries a vector clock. Entering a state ticks the core's entry.
// Sending a token ticks the sender and attaches a copy of its clock to the
// mailbox; receiving joins that copy into the receiver's clock. An event A
// happened before an event B exactly when A's clock is below B's.
//
// Usage:
//
//	rec := trace.NewRecorder(cfg.CoreCount)
//	res, err := handshake.Run(ctx, cfg, handshake.WithObserver(rec))
//	...
//	if err := rec.Check(cfg); err != nil { ... }
package trace

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/handshake"
	"github.com/ajroetker/go-multicore/mc/contrib/mailbox"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Kind of event.
type Kind int

const (
	// KindState is a core entering a handshake state.
	KindState Kind = iota

	// KindSend is a token deposited in a mailbox.
	KindSend

	// KindReceive is a token taken out of a mailbox.
	KindReceive

	// KindTimerReset is the primary restarting the execution timer.
	KindTimerReset

	// KindTimerCapture is the primary reading the execution timer.
	KindTimerCapture
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindSend:
		return "send"
	case KindReceive:
		return "receive"
	case KindTimerReset:
		return "reset"
	case KindTimerCapture:
		return "capture"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one recorded step of a core.
type Event struct {
	// Seq is the global order in which events were recorded.
	Seq  uint64
	Core mc.CoreID
	Kind Kind

	// State is set for KindState events.
	State handshake.State

	// Mailbox and Direction are set for KindSend and KindReceive events.
	Mailbox   string
	Direction mailbox.Direction
	Peer      mc.CoreID

	// Cycles is set for KindTimerCapture events.
	Cycles uint64

	Clock VectorClock
	At    time.Duration
}

// String implements fmt.Stringer.
func (e Event) String() string {
	var detail string
	switch e.Kind {
	case KindState:
		detail = e.State.String()
	case KindSend, KindReceive:
		detail = e.Mailbox
	case KindTimerCapture:
		detail = fmt.Sprintf("%d cycles", e.Cycles)
	}
	return fmt.Sprintf("#%-4d %-8s %-8s %-22s %s", e.Seq, e.Core, e.Kind, detail, e.Clock)
}

// Recorder implements handshake.Observer, handshake.TimerObserver and
// mailbox.Observer.
type Recorder struct {
	mu      sync.Mutex
	start   time.Time
	seq     uint64
	clocks  []VectorClock
	pending map[string][]VectorClock
	events  []Event
}

var (
	_ handshake.Observer      = (*Recorder)(nil)
	_ handshake.TimerObserver = (*Recorder)(nil)
	_ mailbox.Observer        = (*Recorder)(nil)
)

// NewRecorder returns a recorder for a job of coreCount cores.
func NewRecorder(coreCount int) *Recorder {
	return &Recorder{
		start:   time.Now(),
		clocks:  lo.Times(coreCount, func(int) VectorClock { return NewVectorClock(coreCount) }),
		pending: make(map[string][]VectorClock),
	}
}

// lockedRecord ticks the clock of the event's core and appends the event.
//
// It must be called with Recorder.mu acquired.
func (r *Recorder) lockedRecord(e Event) {
	clock := r.clocks[e.Core]
	clock.Tick(int(e.Core))
	r.seq++
	e.Seq = r.seq
	e.Clock = clock.Clone()
	e.At = time.Since(r.start)
	r.events = append(r.events, e)
}

// OnState implements handshake.Observer.
func (r *Recorder) OnState(core mc.CoreID, s handshake.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockedRecord(Event{Core: core, Kind: KindState, State: s})
}

// OnTimerReset implements handshake.TimerObserver.
func (r *Recorder) OnTimerReset(core mc.CoreID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockedRecord(Event{Core: core, Kind: KindTimerReset})
}

// OnTimerCapture implements handshake.TimerObserver.
func (r *Recorder) OnTimerCapture(core mc.CoreID, cycles uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockedRecord(Event{Core: core, Kind: KindTimerCapture, Cycles: cycles})
}

// Timer returns the timer events of the run, in recording order.
func (r *Recorder) Timer() []Event {
	return lo.Filter(r.Events(), func(e Event, _ int) bool {
		return e.Kind == KindTimerReset || e.Kind == KindTimerCapture
	})
}

// OnSend implements mailbox.Observer.
func (r *Recorder) OnSend(m *mailbox.Mailbox, _ mailbox.Token) {
	sender, receiver := endpoints(m)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lockedRecord(Event{Core: sender, Kind: KindSend, Mailbox: m.Name(), Direction: m.Direction(), Peer: receiver})
	r.pending[m.Name()] = append(r.pending[m.Name()], r.clocks[sender].Clone())
}

// OnReceive implements mailbox.Observer.
func (r *Recorder) OnReceive(m *mailbox.Mailbox, _ mailbox.Token) {
	sender, receiver := endpoints(m)
	r.mu.Lock()
	defer r.mu.Unlock()
	if queue := r.pending[m.Name()]; len(queue) > 0 {
		r.clocks[receiver].Join(queue[0])
		r.pending[m.Name()] = queue[1:]
	}
	r.lockedRecord(Event{Core: receiver, Kind: KindReceive, Mailbox: m.Name(), Direction: m.Direction(), Peer: sender})
}

// endpoints returns who sends and who receives on the mailbox.
func endpoints(m *mailbox.Mailbox) (sender, receiver mc.CoreID) {
	if m.Direction() == mailbox.In {
		return mc.Primary, m.Core()
	}
	return m.Core(), mc.Primary
}

// Events returns a copy of the recorded events in recording order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// States returns the states core went through, in order.
func (r *Recorder) States(core mc.CoreID) []handshake.State {
	return lo.FilterMap(r.Events(), func(e Event, _ int) (handshake.State, bool) {
		return e.State, e.Kind == KindState && e.Core == core
	})
}

// FindState returns the event of core entering state s.
func (r *Recorder) FindState(core mc.CoreID, s handshake.State) (Event, bool) {
	return lo.Find(r.Events(), func(e Event) bool {
		return e.Kind == KindState && e.Core == core && e.State == s
	})
}

// FindReceive returns the event of core receiving from the named mailbox.
func (r *Recorder) FindReceive(core mc.CoreID, name string) (Event, bool) {
	return lo.Find(r.Events(), func(e Event) bool {
		return e.Kind == KindReceive && e.Core == core && e.Mailbox == name
	})
}

// WriteTo writes one line per event.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range r.Events() {
		n, err := fmt.Fprintln(w, e)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Check verifies the barrier guarantees of a completed run:
//
//   - every core went through the full state sequence of its role;
//   - no secondary started computing before it received its start token;
//   - the primary's operand flush happened before every secondary computed;
//   - every secondary's row flush happened before the primary reported, and the
//     primary received every done token before reporting;
//   - the timer was reset once, after the operand flush and before the first
//     start token, and captured once, after the last done token and before
//     reporting.
func (r *Recorder) Check(cfg mc.Config) error {
	for i := range cfg.CoreCount {
		id := mc.CoreID(i)
		want := handshake.Sequence(mc.RoleOf(id))
		if got := r.States(id); !slices.Equal(got, want) {
			return errors.Errorf("%s went through states %v, want %v", id, got, want)
		}
	}

	flushed, _ := r.FindState(mc.Primary, handshake.StateFlushBeforeStart)
	reporting, _ := r.FindState(mc.Primary, handshake.StateReporting)
	for _, id := range cfg.Secondaries() {
		start, ok := r.FindReceive(id, mailbox.Name(id, mailbox.In))
		if !ok {
			return errors.Errorf("%s never received its start token", id)
		}
		computing, _ := r.FindState(id, handshake.StateComputing)
		if computing.Seq < start.Seq || !start.Clock.HappensBefore(computing.Clock) {
			return errors.Errorf("%s started computing (#%d) before receiving its start token (#%d)", id, computing.Seq, start.Seq)
		}
		if !flushed.Clock.HappensBefore(computing.Clock) {
			return errors.Errorf("operand flush %s does not happen before %s computing %s", flushed.Clock, id, computing.Clock)
		}

		done, ok := r.FindReceive(mc.Primary, mailbox.Name(id, mailbox.Out))
		if !ok {
			return errors.Errorf("primary never received the done token of %s", id)
		}
		if done.Seq > reporting.Seq {
			return errors.Errorf("primary reported (#%d) before receiving the done token of %s (#%d)", reporting.Seq, id, done.Seq)
		}
		rowFlush, _ := r.FindState(id, handshake.StateFlushAfterCompute)
		if !rowFlush.Clock.HappensBefore(reporting.Clock) {
			return errors.Errorf("%s row flush %s does not happen before reporting %s", id, rowFlush.Clock, reporting.Clock)
		}
	}
	return r.checkTimer(flushed, reporting)
}

// checkTimer verifies that the timer window encloses exactly the dispatch,
// compute and collect steps of the primary.
func (r *Recorder) checkTimer(flushed, reporting Event) error {
	events := r.Events()
	resets := lo.Filter(events, func(e Event, _ int) bool { return e.Kind == KindTimerReset })
	captures := lo.Filter(events, func(e Event, _ int) bool { return e.Kind == KindTimerCapture })
	if len(resets) != 1 || len(captures) != 1 {
		return errors.Errorf("timer reset %d times and captured %d times, want once each", len(resets), len(captures))
	}
	reset, capture := resets[0], captures[0]
	if reset.Core != mc.Primary || capture.Core != mc.Primary {
		return errors.Errorf("timer used by %s and %s, only the primary owns it", reset.Core, capture.Core)
	}
	if reset.Seq < flushed.Seq {
		return errors.Errorf("timer reset (#%d) before the operand flush (#%d)", reset.Seq, flushed.Seq)
	}
	if capture.Seq > reporting.Seq {
		return errors.Errorf("timer captured (#%d) after reporting (#%d)", capture.Seq, reporting.Seq)
	}
	for _, e := range events {
		switch {
		case e.Kind == KindSend && e.Direction == mailbox.In && e.Seq < reset.Seq:
			return errors.Errorf("start token on %s (#%d) sent before the timer reset (#%d)", e.Mailbox, e.Seq, reset.Seq)
		case e.Kind == KindReceive && e.Direction == mailbox.Out && e.Seq > capture.Seq:
			return errors.Errorf("done token on %s (#%d) received after the timer capture (#%d)", e.Mailbox, e.Seq, capture.Seq)
		}
	}
	return nil
}
