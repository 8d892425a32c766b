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

// Package mc holds the parameters shared by every core of a statically
// partitioned multicore job: the core count, this core's identity, the matrix
// dimension and the clock rate of the execution timer.
//
// The parameters are fixed per build. They default to the values in
// config.go and can be overridden at link time:
//
//	go build -ldflags "-X github.com/ajroetker/go-multicore/mc.coreCount=8" ./cmd/mcmatmul
//
// or, for experiments, through the MC_CORE_COUNT, MC_MATRIX_SIZE, MC_CLOCK_HZ
// and MC_NO_PIN environment variables (see ConfigFromEnv).
//
// The components of the job live under mc/contrib:
//
//   - partition: maps a core identity to its row range of the output.
//   - store: the shared A, B, C matrices with per-core ownership zones.
//   - mailbox: one-message start/done channels between primary and secondaries.
//   - matmul: the row-range multiply kernel.
//   - handshake: the start/completion barrier run by every core.
package mc
