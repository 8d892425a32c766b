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

//go:build linux

package mc

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// PinningSupported reports whether PinCurrentThread has an effect on this OS.
const PinningSupported = true

// PinCurrentThread restricts the calling OS thread to the given logical CPU.
//
// The caller must hold the thread with runtime.LockOSThread, otherwise the
// goroutine may migrate to an unpinned thread right after the call.
func PinCurrentThread(cpu int) error {
	if cpu < 0 {
		return errors.Errorf("invalid cpu %d", cpu)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "sched_setaffinity(cpu=%d)", cpu)
	}
	return nil
}
