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

// Package partition maps a core identity to the contiguous rows of the output
// matrix that the core computes.
//
// The mapping is static: every core derives its own range from its identity,
// the core count and the matrix size, without talking to the other cores.
package partition

import (
	"fmt"
	"slices"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// RowRange is the half-open interval of rows [Start, Start+Len).
type RowRange struct {
	Start, Len int
}

// End returns the first row after the range.
func (r RowRange) End() int {
	return r.Start + r.Len
}

// Contains returns whether row is in the range.
func (r RowRange) Contains(row int) bool {
	return row >= r.Start && row < r.End()
}

// Empty returns whether the range has no rows.
func (r RowRange) Empty() bool {
	return r.Len <= 0
}

// Overlaps returns whether the two ranges share a row.
func (r RowRange) Overlaps(other RowRange) bool {
	if r.Empty() || other.Empty() {
		return false
	}
	return r.Start < other.End() && other.Start < r.End()
}

// String implements fmt.Stringer.
func (r RowRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End())
}

// For returns the rows owned by core when n rows are split over coreCount cores:
// every core gets n/coreCount rows, starting at core*(n/coreCount).
//
// When coreCount does not divide n, the trailing n%coreCount rows belong to no
// core. Use ForPolicy with mc.RemainderSpread to assign them.
func For(core mc.CoreID, coreCount, n int) RowRange {
	length := n / coreCount
	return RowRange{Start: int(core) * length, Len: length}
}

// ForPolicy returns the rows owned by core under the given remainder policy.
func ForPolicy(core mc.CoreID, coreCount, n int, policy mc.Remainder) RowRange {
	if policy != mc.RemainderSpread {
		return For(core, coreCount, n)
	}
	base, extra := n/coreCount, n%coreCount
	id := int(core)
	if id < extra {
		return RowRange{Start: id * (base + 1), Len: base + 1}
	}
	return RowRange{Start: extra*(base+1) + (id-extra)*base, Len: base}
}

// Plan returns the range of every core, indexed by core identity.
func Plan(coreCount, n int, policy mc.Remainder) []RowRange {
	return lo.Map(lo.Range(coreCount), func(id int, _ int) RowRange {
		return ForPolicy(mc.CoreID(id), coreCount, n, policy)
	})
}

// Unassigned returns, in ascending order, the rows in [0, n) that no range of
// the plan covers.
func Unassigned(plan []RowRange, n int) []int {
	return lo.Filter(lo.Range(n), func(row int, _ int) bool {
		return !slices.ContainsFunc(plan, func(r RowRange) bool { return r.Contains(row) })
	})
}

// Check returns an error if two ranges of the plan overlap, if a range falls
// outside [0, n), or if some row is not covered by any range.
func Check(plan []RowRange, n int) error {
	for i, r := range plan {
		if r.Len < 0 || r.Start < 0 || (!r.Empty() && r.End() > n) {
			return errors.Errorf("range %s of core %d is outside [0, %d)", r, i, n)
		}
		for j := i + 1; j < len(plan); j++ {
			if r.Overlaps(plan[j]) {
				return errors.Errorf("range %s of core %d overlaps range %s of core %d", r, i, plan[j], j)
			}
		}
	}
	if rows := Unassigned(plan, n); len(rows) > 0 {
		return errors.Errorf("%d row(s) not assigned to any core: %v", len(rows), rows)
	}
	return nil
}
