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

package mc

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Build parameters. They are strings so they can be set with -ldflags "-X ...".
var (
	coreCount  = "4"
	matrixSize = "99"
	clockHz    = "50000000"
)

// WaitMode selects how a core waits on a mailbox.
type WaitMode int

const (
	// WaitBlock blocks until the token is transferred, with no bound.
	WaitBlock WaitMode = iota

	// WaitPoll spins on the mailbox, yielding the processor between attempts.
	WaitPoll

	// WaitBounded blocks for at most Config.Timeout and then reports the peer
	// as unresponsive.
	WaitBounded
)

// String returns the flag value for the wait mode.
func (m WaitMode) String() string {
	switch m {
	case WaitBlock:
		return "block"
	case WaitPoll:
		return "poll"
	case WaitBounded:
		return "bounded"
	default:
		return "unknown"
	}
}

// ParseWaitMode parses the flag value of a WaitMode.
func ParseWaitMode(s string) (WaitMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block", "":
		return WaitBlock, nil
	case "poll":
		return WaitPoll, nil
	case "bounded":
		return WaitBounded, nil
	}
	return WaitBlock, errors.Errorf("unknown wait mode %q, valid values are block, poll or bounded", s)
}

// Remainder selects what happens to the rows left over when the matrix size
// is not a multiple of the core count.
type Remainder int

const (
	// RemainderTruncate uses rows = size / cores for every core, leaving the
	// trailing size % cores rows unassigned.
	RemainderTruncate Remainder = iota

	// RemainderSpread gives one extra row to each of the first size % cores
	// cores, so every row is assigned.
	RemainderSpread
)

// String returns the flag value for the remainder policy.
func (r Remainder) String() string {
	switch r {
	case RemainderTruncate:
		return "truncate"
	case RemainderSpread:
		return "spread"
	default:
		return "unknown"
	}
}

// ParseRemainder parses the flag value of a Remainder.
func ParseRemainder(s string) (Remainder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "truncate", "":
		return RemainderTruncate, nil
	case "spread":
		return RemainderSpread, nil
	}
	return RemainderTruncate, errors.Errorf("unknown remainder policy %q, valid values are truncate or spread", s)
}

// Config holds the parameters of one multicore job.
type Config struct {
	// CoreCount is the total number of cores, primary included.
	CoreCount int

	// MatrixSize is the dimension N of the square matrices.
	MatrixSize int

	// ClockHz is the rate of the execution timer.
	ClockHz uint64

	// Wait is how cores wait on their mailboxes.
	Wait WaitMode

	// Timeout bounds every mailbox wait when Wait is WaitBounded.
	Timeout time.Duration

	// Remainder is the partition policy for sizes not divisible by CoreCount.
	Remainder Remainder

	// Pin locks each core to its own OS thread and CPU.
	Pin bool

	// Hold keeps the cores parked in their terminal state after the result is
	// reported, until the caller releases them.
	Hold bool
}

// DefaultConfig returns the configuration given by the build parameters.
//
// It panics if a build parameter is not a valid number, since that can only be
// a broken -ldflags setting.
func DefaultConfig() Config {
	cfg := Config{
		Wait:      WaitBlock,
		Remainder: RemainderTruncate,
		Pin:       true,
	}
	var err error
	if cfg.CoreCount, err = strconv.Atoi(coreCount); err != nil {
		panic(errors.Wrapf(err, "invalid build parameter coreCount=%q", coreCount))
	}
	if cfg.MatrixSize, err = strconv.Atoi(matrixSize); err != nil {
		panic(errors.Wrapf(err, "invalid build parameter matrixSize=%q", matrixSize))
	}
	if cfg.ClockHz, err = strconv.ParseUint(clockHz, 10, 64); err != nil {
		panic(errors.Wrapf(err, "invalid build parameter clockHz=%q", clockHz))
	}
	return cfg
}

// ConfigFromEnv returns cfg with the MC_* environment overrides applied.
func ConfigFromEnv(cfg Config) (Config, error) {
	if v := os.Getenv("MC_CORE_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "parsing MC_CORE_COUNT=%q", v)
		}
		cfg.CoreCount = n
	}
	if v := os.Getenv("MC_MATRIX_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "parsing MC_MATRIX_SIZE=%q", v)
		}
		cfg.MatrixSize = n
	}
	if v := os.Getenv("MC_CLOCK_HZ"); v != "" {
		hz, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, errors.Wrapf(err, "parsing MC_CLOCK_HZ=%q", v)
		}
		cfg.ClockHz = hz
	}
	if NoPinEnv() {
		cfg.Pin = false
	}
	return cfg, nil
}

// NoPinEnv checks if the MC_NO_PIN environment variable is set.
// When set, cores are not pinned to CPUs regardless of Config.Pin.
func NoPinEnv() bool {
	val := os.Getenv("MC_NO_PIN")
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// Validate checks that the configuration describes a runnable job.
func (c Config) Validate() error {
	if c.CoreCount < 1 {
		return errors.Errorf("CoreCount must be >= 1, got %d", c.CoreCount)
	}
	if c.MatrixSize < 1 {
		return errors.Errorf("MatrixSize must be >= 1, got %d", c.MatrixSize)
	}
	if c.ClockHz == 0 {
		return errors.New("ClockHz must be > 0")
	}
	if c.Wait == WaitBounded && c.Timeout <= 0 {
		return errors.Errorf("wait mode %s requires a positive Timeout, got %s", c.Wait, c.Timeout)
	}
	return nil
}

// Secondaries returns every core identity except Primary, in ascending order.
func (c Config) Secondaries() []CoreID {
	ids := make([]CoreID, 0, max(c.CoreCount-1, 0))
	for i := range c.CoreCount {
		if id := CoreID(i); !id.IsPrimary() {
			ids = append(ids, id)
		}
	}
	return ids
}
