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

package trace

import (
	"strconv"
	"strings"
)

// VectorClock is the logical time of a job, one entry per core.
type VectorClock []uint64

// NewVectorClock returns a zero clock for n cores.
func NewVectorClock(n int) VectorClock {
	return make(VectorClock, n)
}

// Clone returns a copy of the clock.
func (vc VectorClock) Clone() VectorClock {
	return append(VectorClock(nil), vc...)
}

// Tick advances the entry of one core.
func (vc VectorClock) Tick(core int) {
	vc[core]++
}

// Join sets vc to the point-wise maximum of vc and other. This is what a
// receiver does with the clock carried by a token.
func (vc VectorClock) Join(other VectorClock) {
	for i, v := range other {
		if i < len(vc) && v > vc[i] {
			vc[i] = v
		}
	}
}

// LessOrEqual reports whether vc[i] <= other[i] for every core i.
func (vc VectorClock) LessOrEqual(other VectorClock) bool {
	for i, v := range vc {
		var o uint64
		if i < len(other) {
			o = other[i]
		}
		if v > o {
			return false
		}
	}
	return true
}

// HappensBefore reports whether the event stamped vc happened before the event
// stamped other: vc <= other and the two differ.
func (vc VectorClock) HappensBefore(other VectorClock) bool {
	if !vc.LessOrEqual(other) {
		return false
	}
	for i, v := range vc {
		if i >= len(other) || v != other[i] {
			return true
		}
	}
	return len(other) > len(vc)
}

// Concurrent reports whether neither event happened before the other.
func (vc VectorClock) Concurrent(other VectorClock) bool {
	return !vc.LessOrEqual(other) && !other.LessOrEqual(vc)
}

// String formats the clock as [c0 c1 ...].
func (vc VectorClock) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range vc {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatUint(v, 10))
	}
	sb.WriteByte(']')
	return sb.String()
}
