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

// Package mailbox provides the point-to-point signal channels between the
// primary core and each secondary core.
//
// Every secondary has two mailboxes: "in" carries the start token from the
// primary, "out" carries the done token back. A mailbox holds at most one token;
// its content is never interpreted, only its arrival matters.
package mailbox

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Token is the fixed-size message carried by a mailbox.
type Token [2]uint32

// Direction of a mailbox, seen from the secondary that owns it.
type Direction int

const (
	// In carries the start token, primary to secondary.
	In Direction = iota

	// Out carries the done token, secondary to primary.
	Out
)

// String returns the direction as used in mailbox names.
func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	default:
		return fmt.Sprintf("dir%d", int(d))
	}
}

// Name returns the device name of the mailbox of core in the given direction.
// Distinct (core, direction) pairs always have distinct names.
func Name(core mc.CoreID, dir Direction) string {
	return fmt.Sprintf("/dev/core_%d_mbox_%s", int(core), dir)
}

var (
	// ErrNoSuchMailbox is returned by Open when the mailbox was never provisioned,
	// which means the peer core is not part of the job.
	ErrNoSuchMailbox = errors.New("no such mailbox")

	// ErrPeerUnresponsive is returned by a bounded wait that timed out.
	ErrPeerUnresponsive = errors.New("peer unresponsive")
)

// Policy tells Send and Receive how to wait.
type Policy struct {
	Mode mc.WaitMode

	// Timeout bounds the wait in mc.WaitBounded mode.
	Timeout time.Duration
}

// PolicyFor returns the wait policy configured for a job.
func PolicyFor(cfg mc.Config) Policy {
	return Policy{Mode: cfg.Wait, Timeout: cfg.Timeout}
}

// Mailbox is a one-slot, one-direction channel between two cores.
type Mailbox struct {
	name     string
	core     mc.CoreID
	dir      Direction
	slot     chan Token
	observer Observer
}

// Name returns the mailbox device name.
func (m *Mailbox) Name() string { return m.name }

// Core returns the secondary core that owns the mailbox.
func (m *Mailbox) Core() mc.CoreID { return m.core }

// Direction returns whether the mailbox carries start or done tokens.
func (m *Mailbox) Direction() Direction { return m.dir }

// Send deposits tok in the mailbox. It blocks while the mailbox holds a token
// that was not yet received.
func (m *Mailbox) Send(ctx context.Context, tok Token, p Policy) error {
	if m.observer != nil {
		m.observer.OnSend(m, tok)
	}
	klog.V(2).Infof("mailbox %s: send", m.name)
	switch p.Mode {
	case mc.WaitPoll:
		for {
			select {
			case m.slot <- tok:
				return nil
			default:
			}
			if err := ctx.Err(); err != nil {
				return errors.Wrapf(err, "mailbox %s: send", m.name)
			}
			runtime.Gosched()
		}

	case mc.WaitBounded:
		timer := time.NewTimer(p.Timeout)
		defer timer.Stop()
		select {
		case m.slot <- tok:
			return nil
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "mailbox %s: send", m.name)
		case <-timer.C:
			return errors.Wrapf(ErrPeerUnresponsive, "mailbox %s: send not accepted after %s", m.name, p.Timeout)
		}

	default:
		select {
		case m.slot <- tok:
			return nil
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "mailbox %s: send", m.name)
		}
	}
}

// Receive takes the token out of the mailbox, waiting for it to arrive.
func (m *Mailbox) Receive(ctx context.Context, p Policy) (Token, error) {
	tok, err := m.receive(ctx, p)
	if err != nil {
		return tok, err
	}
	klog.V(2).Infof("mailbox %s: received", m.name)
	if m.observer != nil {
		m.observer.OnReceive(m, tok)
	}
	return tok, nil
}

func (m *Mailbox) receive(ctx context.Context, p Policy) (Token, error) {
	switch p.Mode {
	case mc.WaitPoll:
		for {
			select {
			case tok := <-m.slot:
				return tok, nil
			default:
			}
			if err := ctx.Err(); err != nil {
				return Token{}, errors.Wrapf(err, "mailbox %s: receive", m.name)
			}
			runtime.Gosched()
		}

	case mc.WaitBounded:
		timer := time.NewTimer(p.Timeout)
		defer timer.Stop()
		select {
		case tok := <-m.slot:
			return tok, nil
		case <-ctx.Done():
			return Token{}, errors.Wrapf(ctx.Err(), "mailbox %s: receive", m.name)
		case <-timer.C:
			return Token{}, errors.Wrapf(ErrPeerUnresponsive, "mailbox %s: %s silent for %s", m.name, m.peer(), p.Timeout)
		}

	default:
		select {
		case tok := <-m.slot:
			return tok, nil
		case <-ctx.Done():
			return Token{}, errors.Wrapf(ctx.Err(), "mailbox %s: receive", m.name)
		}
	}
}

// peer is the core expected to deposit the next token.
func (m *Mailbox) peer() mc.CoreID {
	if m.dir == In {
		return mc.Primary
	}
	return m.core
}
