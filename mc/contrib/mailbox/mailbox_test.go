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
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/stretchr/testify/require"
)

func TestNameIsInjective(t *testing.T) {
	seen := make(map[string]bool)
	for core := range mc.CoreID(16) {
		for _, dir := range []Direction{In, Out} {
			name := Name(core, dir)
			require.False(t, seen[name], "duplicate mailbox name %q", name)
			seen[name] = true
		}
	}
	require.Equal(t, "/dev/core_1_mbox_in", Name(1, In))
	require.Equal(t, "/dev/core_12_mbox_out", Name(12, Out))
}

func TestNewBus(t *testing.T) {
	bus := NewBus(mc.Config{CoreCount: 3})
	require.Equal(t, []string{
		"/dev/core_1_mbox_in", "/dev/core_1_mbox_out",
		"/dev/core_2_mbox_in", "/dev/core_2_mbox_out",
	}, bus.Names())

	// The primary has no mailboxes of its own.
	_, err := bus.Open(mc.Primary, In)
	require.ErrorIs(t, err, ErrNoSuchMailbox)
	_, err = bus.Open(3, Out)
	require.ErrorIs(t, err, ErrNoSuchMailbox)

	m1, err := bus.Open(1, Out)
	require.NoError(t, err)
	m2, err := bus.Open(1, Out)
	require.NoError(t, err)
	require.Same(t, m1, m2)
}

func TestSendReceive(t *testing.T) {
	for _, p := range []Policy{
		{Mode: mc.WaitBlock},
		{Mode: mc.WaitPoll},
		{Mode: mc.WaitBounded, Timeout: 5 * time.Second},
	} {
		t.Run(p.Mode.String(), func(t *testing.T) {
			ctx := context.Background()
			m := NewEmptyBus().Provision(1, In)
			var wg sync.WaitGroup
			wg.Add(1)
			var got Token
			var recvErr error
			go func() {
				defer wg.Done()
				got, recvErr = m.Receive(ctx, p)
			}()
			require.NoError(t, m.Send(ctx, Token{7, 9}, p))
			wg.Wait()
			require.NoError(t, recvErr)
			require.Equal(t, Token{7, 9}, got)
		})
	}
}

func TestOneTokenInFlight(t *testing.T) {
	ctx := context.Background()
	m := NewEmptyBus().Provision(1, Out)
	p := Policy{Mode: mc.WaitBounded, Timeout: 20 * time.Millisecond}
	require.NoError(t, m.Send(ctx, Token{}, p))
	err := m.Send(ctx, Token{}, p)
	require.ErrorIs(t, err, ErrPeerUnresponsive)

	_, err = m.Receive(ctx, p)
	require.NoError(t, err)
	require.NoError(t, m.Send(ctx, Token{}, p))
}

func TestBoundedReceiveTimesOut(t *testing.T) {
	m := NewEmptyBus().Provision(2, Out)
	_, err := m.Receive(context.Background(), Policy{Mode: mc.WaitBounded, Timeout: 10 * time.Millisecond})
	require.ErrorIs(t, err, ErrPeerUnresponsive)
	require.ErrorContains(t, err, "core 2 silent")
}

func TestReceiveCanceled(t *testing.T) {
	for _, mode := range []mc.WaitMode{mc.WaitBlock, mc.WaitPoll} {
		t.Run(mode.String(), func(t *testing.T) {
			m := NewEmptyBus().Provision(1, In)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			_, err := m.Receive(ctx, Policy{Mode: mode})
			require.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

type countingObserver struct {
	mu        sync.Mutex
	sent, got []string
}

func (o *countingObserver) OnSend(m *Mailbox, _ Token) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m.Name())
}

func (o *countingObserver) OnReceive(m *Mailbox, _ Token) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, m.Name())
}

func TestObserver(t *testing.T) {
	obs := &countingObserver{}
	bus := NewBus(mc.Config{CoreCount: 2}, WithObserver(obs))
	m, err := bus.Open(1, In)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, m.Send(ctx, Token{}, Policy{}))
	_, err = m.Receive(ctx, Policy{})
	require.NoError(t, err)
	require.Equal(t, []string{"/dev/core_1_mbox_in"}, obs.sent)
	require.Equal(t, []string{"/dev/core_1_mbox_in"}, obs.got)
}
