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
	"fmt"

	"github.com/ajroetker/go-multicore/mc"
)

// State is a step of the handshake run by one core.
type State int

const (
	StateInit State = iota
	StateSeedData
	StateFlushBeforeStart
	StateDispatching
	StateWaitForStart
	StateComputing
	StateFlushAfterCompute
	StateSignalDone
	StateCollecting
	StateReporting
	StateTerminal
)

var stateNames = [...]string{
	StateInit:              "Init",
	StateSeedData:          "SeedData",
	StateFlushBeforeStart:  "FlushBeforeStart",
	StateDispatching:       "Dispatching",
	StateWaitForStart:      "WaitForStart",
	StateComputing:         "Computing",
	StateFlushAfterCompute: "FlushAfterCompute",
	StateSignalDone:        "SignalDone",
	StateCollecting:        "Collecting",
	StateReporting:         "Reporting",
	StateTerminal:          "Terminal",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sequences of states, per role. A core moves strictly along its sequence.
var (
	primarySequence = []State{
		StateInit, StateSeedData, StateFlushBeforeStart, StateDispatching, StateComputing,
		StateFlushAfterCompute, StateCollecting, StateReporting, StateTerminal,
	}
	secondarySequence = []State{
		StateInit, StateWaitForStart, StateComputing, StateFlushAfterCompute, StateSignalDone, StateTerminal,
	}
)

// Sequence returns the states a core of the given role goes through, in order.
func Sequence(role mc.Role) []State {
	if role == mc.RolePrimary {
		return primarySequence
	}
	return secondarySequence
}

// Next returns the state that follows s for the given role, and false if s is
// terminal or not part of the role's sequence.
func Next(role mc.Role, s State) (State, bool) {
	seq := Sequence(role)
	for i, st := range seq[:len(seq)-1] {
		if st == s {
			return seq[i+1], true
		}
	}
	return s, false
}
