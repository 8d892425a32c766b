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

// Package timer provides the execution timer read by the primary core: a
// monotonic counter ticking at a configured clock rate.
package timer

import (
	"math/bits"
	"time"
)

// Counter counts clock cycles since its last Reset.
//
// Only the primary core uses a Counter; it is not safe for concurrent use.
type Counter struct {
	hz    uint64
	start time.Time
	now   func() time.Time
}

// New returns a counter ticking hz times per second. It reads 0 until Reset.
func New(hz uint64) *Counter {
	return &Counter{hz: hz, now: time.Now}
}

// Hz returns the clock rate of the counter.
func (c *Counter) Hz() uint64 {
	return c.hz
}

// Reset restarts the count at zero.
func (c *Counter) Reset() {
	c.start = c.now()
}

// Elapsed returns the wall time since Reset, measured on the monotonic clock.
func (c *Counter) Elapsed() time.Duration {
	if c.start.IsZero() {
		return 0
	}
	return c.now().Sub(c.start)
}

// Capture returns the number of cycles since Reset.
func (c *Counter) Capture() uint64 {
	return Cycles(c.Elapsed(), c.hz)
}

// Cycles converts a duration to clock cycles at hz, rounding down.
func Cycles(d time.Duration, hz uint64) uint64 {
	if d <= 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(d), hz)
	if hi >= uint64(time.Second) {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, uint64(time.Second))
	return q
}
