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

// Package store holds the matrices shared by every core of a job: the operands
// A and B and the result C, all N×N and row-major.
//
// The store does no locking. Instead, write access is handed out as ownership
// zones: a single OperandWriter for A and B, and one RowWriter per disjoint
// row range of C. Reads go through a View, which is only obtained by Acquire.
//
// Writes become visible to other cores through the visibility flush: a writer's
// Flush is a release, and Acquire is the matching acquire. A core must Flush
// after writing anything another core reads, and the reading core must
// Acquire a View after it learned (through a mailbox token) that the flush
// happened.
package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/partition"
	"github.com/pkg/errors"
)

// Matrix names one of the three matrices of the store.
type Matrix int

const (
	A Matrix = iota
	B
	C
)

// String implements fmt.Stringer.
func (m Matrix) String() string {
	switch m {
	case A:
		return "A"
	case B:
		return "B"
	case C:
		return "C"
	default:
		return fmt.Sprintf("Matrix(%d)", int(m))
	}
}

var (
	// ErrAlreadyClaimed is returned when the operands are claimed twice.
	ErrAlreadyClaimed = errors.New("operands already claimed")

	// ErrOverlap is returned when a row range of C is claimed by two owners.
	ErrOverlap = errors.New("row range overlaps another owner")
)

// Store is the shared memory region of a job.
type Store[T mc.Integers] struct {
	n       int
	a, b, c []T

	// epoch is bumped by every flush. Its atomic add/load pair is the
	// release/acquire that orders writes before a flush with reads after an
	// acquire.
	epoch atomic.Uint64

	// mu guards the ownership bookkeeping only, never element access.
	mu              sync.Mutex
	operandsOwned   bool
	operandsFlushed bool
	owners          []claim
	published       []bool
}

type claim struct {
	owner mc.CoreID
	rows  partition.RowRange
}

// New allocates a store for n×n matrices, all zero.
func New[T mc.Integers](n int) *Store[T] {
	if n < 1 {
		panic(errors.Errorf("store.New: matrix size must be >= 1, got %d", n))
	}
	return &Store[T]{
		n:         n,
		a:         make([]T, n*n),
		b:         make([]T, n*n),
		c:         make([]T, n*n),
		published: make([]bool, n),
	}
}

// Size returns the dimension N of the matrices.
func (s *Store[T]) Size() int {
	return s.n
}

// Epoch returns the number of flushes so far.
func (s *Store[T]) Epoch() uint64 {
	return s.epoch.Load()
}

// Operands claims the only write handle to A and B.
func (s *Store[T]) Operands() (*OperandWriter[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.operandsOwned {
		return nil, ErrAlreadyClaimed
	}
	s.operandsOwned = true
	return &OperandWriter[T]{s: s}, nil
}

// Rows claims the write handle to rows r of C for owner.
func (s *Store[T]) Rows(owner mc.CoreID, r partition.RowRange) (*RowWriter[T], error) {
	if r.Start < 0 || r.Len < 0 || r.End() > s.n {
		return nil, errors.Errorf("%s claims rows %s outside [0, %d)", owner, r, s.n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cl := range s.owners {
		if cl.rows.Overlaps(r) {
			return nil, errors.Wrapf(ErrOverlap, "%s claims rows %s, already owned by %s as %s", owner, r, cl.owner, cl.rows)
		}
	}
	s.owners = append(s.owners, claim{owner: owner, rows: r})
	return &RowWriter[T]{s: s, owner: owner, rows: r}, nil
}

// Acquire returns a read handle that observes every write flushed before the
// flush this call synchronizes with.
//
// The operands of the view are readable only if the operand writer flushed
// before the acquire.
func (s *Store[T]) Acquire() *View[T] {
	v := &View[T]{s: s, epoch: s.epoch.Load()}
	s.mu.Lock()
	v.operandsFlushed = s.operandsFlushed
	s.mu.Unlock()
	return v
}

// release publishes all writes of the calling core.
func (s *Store[T]) release() uint64 {
	return s.epoch.Add(1)
}
