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

package store

import (
	"slices"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/partition"
	"github.com/gomlx/exceptions"
)

// OperandWriter is the write handle to A and B. Only the primary holds one.
type OperandWriter[T mc.Integers] struct {
	s *Store[T]
}

// Seed initializes the operands: A[r][c] = (r*N + c) mod 16 and B = I.
func (w *OperandWriter[T]) Seed() {
	n := w.s.n
	for row := range n {
		for col := range n {
			w.s.a[row*n+col] = T((row*n + col) % 0x10)
		}
	}
	clear(w.s.b)
	for i := range n {
		w.s.b[i*n+i] = 1
	}
}

// Set writes one element of A or B.
func (w *OperandWriter[T]) Set(m Matrix, row, col int, v T) {
	n := w.s.n
	if row < 0 || row >= n || col < 0 || col >= n {
		exceptions.Panicf("OperandWriter.Set(%s, %d, %d): out of bounds for %dx%d", m, row, col, n, n)
	}
	switch m {
	case A:
		w.s.a[row*n+col] = v
	case B:
		w.s.b[row*n+col] = v
	default:
		exceptions.Panicf("OperandWriter.Set: matrix %s is not an operand", m)
	}
}

// Load copies row-major values into A and B. Both must have N*N elements.
func (w *OperandWriter[T]) Load(a, b []T) {
	n := w.s.n
	if len(a) != n*n || len(b) != n*n {
		exceptions.Panicf("OperandWriter.Load: want %d elements, got len(a)=%d len(b)=%d", n*n, len(a), len(b))
	}
	copy(w.s.a, a)
	copy(w.s.b, b)
}

// Flush makes the operands visible to every core that acquires afterwards.
func (w *OperandWriter[T]) Flush() uint64 {
	w.s.mu.Lock()
	w.s.operandsFlushed = true
	w.s.mu.Unlock()
	return w.s.release()
}

// RowWriter is the write handle to one core's rows of C.
type RowWriter[T mc.Integers] struct {
	s     *Store[T]
	owner mc.CoreID
	rows  partition.RowRange
}

// Owner returns the core that claimed the rows.
func (w *RowWriter[T]) Owner() mc.CoreID {
	return w.owner
}

// Range returns the rows the writer owns.
func (w *RowWriter[T]) Range() partition.RowRange {
	return w.rows
}

// Data returns the owned rows of C as a row-major slice of Len*N elements.
// Row r of C is Data()[(r-Start)*N : (r-Start+1)*N].
func (w *RowWriter[T]) Data() []T {
	n := w.s.n
	return w.s.c[w.rows.Start*n : w.rows.End()*n : w.rows.End()*n]
}

// Set writes C[row][col]. It panics if row is not owned by the writer.
func (w *RowWriter[T]) Set(row, col int, v T) {
	n := w.s.n
	if !w.rows.Contains(row) {
		exceptions.Panicf("%s wrote C[%d][%d] outside its rows %s", w.owner, row, col, w.rows)
	}
	if col < 0 || col >= n {
		exceptions.Panicf("%s wrote C[%d][%d]: column out of bounds for size %d", w.owner, row, col, n)
	}
	w.s.c[row*n+col] = v
}

// Flush makes the owned rows visible to every core that acquires afterwards.
func (w *RowWriter[T]) Flush() uint64 {
	w.s.mu.Lock()
	for row := w.rows.Start; row < w.rows.End(); row++ {
		w.s.published[row] = true
	}
	w.s.mu.Unlock()
	return w.s.release()
}

// View is a read handle to the store. The slices it returns must not be
// modified.
type View[T mc.Integers] struct {
	s               *Store[T]
	epoch           uint64
	operandsFlushed bool
}

// checkOperands panics if the view was acquired before the operands were
// flushed.
func (v *View[T]) checkOperands(m Matrix) {
	if !v.operandsFlushed {
		exceptions.Panicf("read of operand %s through a view acquired before the operand flush (epoch %d)", m, v.epoch)
	}
}

// Epoch returns the flush count observed by the acquire that made the view.
func (v *View[T]) Epoch() uint64 {
	return v.epoch
}

// Size returns the dimension N of the matrices.
func (v *View[T]) Size() int {
	return v.s.n
}

// At returns m[row][col].
func (v *View[T]) At(m Matrix, row, col int) T {
	n := v.s.n
	if row < 0 || row >= n || col < 0 || col >= n {
		exceptions.Panicf("View.At(%s, %d, %d): out of bounds for %dx%d", m, row, col, n, n)
	}
	switch m {
	case A:
		v.checkOperands(m)
		return v.s.a[row*n+col]
	case B:
		v.checkOperands(m)
		return v.s.b[row*n+col]
	case C:
		return v.s.c[row*n+col]
	}
	exceptions.Panicf("View.At: unknown matrix %s", m)
	panic("unreachable")
}

// A returns the left operand, row-major. It panics if the view was acquired
// before the operand flush.
func (v *View[T]) A() []T {
	v.checkOperands(A)
	return v.s.a
}

// B returns the right operand, row-major. It panics if the view was acquired
// before the operand flush.
func (v *View[T]) B() []T {
	v.checkOperands(B)
	return v.s.b
}

// Row returns a copy of row r of C.
func (v *View[T]) Row(r int) []T {
	n := v.s.n
	return slices.Clone(v.s.c[r*n : (r+1)*n])
}

// C returns a copy of the result, row-major.
func (v *View[T]) C() []T {
	return slices.Clone(v.s.c)
}

// OperandsFlushed returns whether the operand writer had flushed when the view
// was acquired.
func (v *View[T]) OperandsFlushed() bool {
	return v.operandsFlushed
}

// Unpublished returns, in ascending order, the rows of C that no writer has
// flushed. Their contents were never computed.
func (v *View[T]) Unpublished() []int {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var rows []int
	for row, ok := range v.s.published {
		if !ok {
			rows = append(rows, row)
		}
	}
	return rows
}
