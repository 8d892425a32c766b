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
	"fmt"

	"golang.org/x/exp/constraints"
)

// CoreID is the ordinal of a core in [0, CoreCount).
type CoreID int

// Primary is the core that seeds the operands, times the run and collects the
// result. It is fixed at compile time.
const Primary CoreID = 0

// String implements fmt.Stringer.
func (id CoreID) String() string {
	return fmt.Sprintf("core %d", int(id))
}

// IsPrimary returns whether id is the primary core.
func (id CoreID) IsPrimary() bool {
	return id == Primary
}

// Role is the part a core plays in the start/done handshake.
type Role int

const (
	// RolePrimary seeds data, releases the secondaries and waits for them.
	RolePrimary Role = iota

	// RoleSecondary waits for a start token and reports completion.
	RoleSecondary
)

// String returns a human-readable name for the role.
func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// RoleOf returns the role of the given core.
func RoleOf(id CoreID) Role {
	if id.IsPrimary() {
		return RolePrimary
	}
	return RoleSecondary
}

// Integers is the constraint for matrix element types.
type Integers interface {
	constraints.Integer
}
