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

// Package matmul provides the square integer matrix multiply run by every core
// on its own rows of the result.
//
// All matrices are N×N and row-major. Accumulation happens in the element
// type and wraps around on overflow.
package matmul

import (
	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/partition"
)

// MulRows computes rows r of C = A * B, for r in rows.
//
// c holds only those rows: row r of C is c[(r-rows.Start)*n : (r-rows.Start+1)*n].
// It is the layout of store.RowWriter.Data.
//
//	C[r][col] = sum(A[r][k] * B[k][col]) for k in 0..n-1
func MulRows[T mc.Integers](a, b, c []T, n int, rows partition.RowRange) {
	for r := rows.Start; r < rows.End(); r++ {
		aRow := a[r*n : (r+1)*n]
		cRow := c[(r-rows.Start)*n : (r-rows.Start+1)*n]
		for col := range n {
			var sum T
			for k, aik := range aRow {
				sum += aik * b[k*n+col]
			}
			cRow[col] = sum
		}
	}
}

// MatMul computes C = A * B on the calling goroutine.
func MatMul[T mc.Integers](a, b, c []T, n int) {
	MulRows(a, b, c, n, partition.RowRange{Start: 0, Len: n})
}
