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

package mailbox

import (
	"slices"
	"sync"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Observer is notified of mailbox traffic. OnSend is called before the token
// can be received, OnReceive after it was taken out of the mailbox.
//
// Observers are called concurrently from every core and must be safe for that.
type Observer interface {
	OnSend(m *Mailbox, tok Token)
	OnReceive(m *Mailbox, tok Token)
}

// Bus is the set of mailboxes of a job, addressed by name.
type Bus struct {
	mu       sync.Mutex
	boxes    map[string]*Mailbox
	observer Observer
}

// Option configures a Bus.
type Option func(*Bus)

// WithObserver installs an observer on every mailbox of the bus.
func WithObserver(o Observer) Option {
	return func(b *Bus) { b.observer = o }
}

// NewEmptyBus returns a bus with no mailboxes. Use Provision to add them.
func NewEmptyBus(opts ...Option) *Bus {
	b := &Bus{boxes: make(map[string]*Mailbox)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBus returns a bus with the in and out mailboxes of every secondary of cfg.
func NewBus(cfg mc.Config, opts ...Option) *Bus {
	b := NewEmptyBus(opts...)
	for _, id := range cfg.Secondaries() {
		b.Provision(id, In)
		b.Provision(id, Out)
	}
	return b
}

// Provision creates the mailbox of core in direction dir, if it does not exist yet.
func (b *Bus) Provision(core mc.CoreID, dir Direction) *Mailbox {
	name := Name(core, dir)
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, found := b.boxes[name]; found {
		return m
	}
	m := &Mailbox{
		name:     name,
		core:     core,
		dir:      dir,
		slot:     make(chan Token, 1),
		observer: b.observer,
	}
	b.boxes[name] = m
	return m
}

// Open returns the mailbox of core in direction dir.
func (b *Bus) Open(core mc.CoreID, dir Direction) (*Mailbox, error) {
	name := Name(core, dir)
	b.mu.Lock()
	defer b.mu.Unlock()
	m, found := b.boxes[name]
	if !found {
		return nil, errors.Wrapf(ErrNoSuchMailbox, "opening %s", name)
	}
	return m, nil
}

// Names returns the names of all mailboxes, sorted.
func (b *Bus) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := lo.Keys(b.boxes)
	slices.Sort(names)
	return names
}
