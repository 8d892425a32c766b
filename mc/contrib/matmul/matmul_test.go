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

package matmul

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/partition"
	"github.com/ajroetker/go-multicore/mc/contrib/workerpool"
	"github.com/google/go-cmp/cmp"
)

// matmulReference computes C = A * B using the textbook i-j-k loop.
// Used as reference for correctness testing.
func matmulReference(a, b, c []int64, n int) {
	for i := range n {
		for j := range n {
			var sum int64
			for p := range n {
				sum += a[i*n+p] * b[p*n+j]
			}
			c[i*n+j] = sum
		}
	}
}

func randomMatrix(rng *rand.Rand, n int) []int64 {
	m := make([]int64, n*n)
	for i := range m {
		m[i] = rng.Int63n(201) - 100
	}
	return m
}

func TestMatMulSmall(t *testing.T) {
	// [1 2; 3 4] * [5 6; 7 8] = [19 22; 43 50]
	a := []int32{1, 2, 3, 4}
	b := []int32{5, 6, 7, 8}
	c := make([]int32, 4)
	MatMul(a, b, c, 2)
	if diff := cmp.Diff([]int32{19, 22, 43, 50}, c); diff != "" {
		t.Errorf("MatMul mismatch (-want +got):\n%s", diff)
	}
}

func TestMatMulIdentity(t *testing.T) {
	n := 4
	a := make([]int32, n*n)
	identity := make([]int32, n*n)
	c := make([]int32, n*n)
	for i := range a {
		a[i] = int32(i)
	}
	for i := range n {
		identity[i*n+i] = 1
	}

	MatMul(a, identity, c, n)

	// C should equal A
	if diff := cmp.Diff(a, c); diff != "" {
		t.Errorf("A*I != A (-want +got):\n%s", diff)
	}
}

func TestMulRowsIndependentOfPartition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{1, 3, 8, 17, 32} {
		a, b := randomMatrix(rng, n), randomMatrix(rng, n)
		expected := make([]int64, n*n)
		matmulReference(a, b, expected, n)

		for coreCount := 1; coreCount <= 5; coreCount++ {
			t.Run(fmt.Sprintf("n=%d/cores=%d", n, coreCount), func(t *testing.T) {
				c := make([]int64, n*n)
				for _, rows := range partition.Plan(coreCount, n, mc.RemainderSpread) {
					MulRows(a, b, c[rows.Start*n:rows.End()*n], n, rows)
				}
				if diff := cmp.Diff(expected, c); diff != "" {
					t.Errorf("partitioned product mismatch (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestMulRowsWritesOnlyItsRows(t *testing.T) {
	n := 4
	a := make([]int32, n*n)
	b := make([]int32, n*n)
	for i := range a {
		a[i], b[i] = 1, 1
	}
	c := make([]int32, n*n)
	for i := range c {
		c[i] = -1
	}
	rows := partition.RowRange{Start: 1, Len: 2}
	MulRows(a, b, c[rows.Start*n:rows.End()*n], n, rows)
	for i, v := range c {
		row := i / n
		want := int32(-1)
		if rows.Contains(row) {
			want = int32(n)
		}
		if v != want {
			t.Errorf("c[%d] (row %d) = %d, want %d", i, row, v, want)
		}
	}
}

func TestMatMulWrapsOnOverflow(t *testing.T) {
	a := []int8{100, 0, 0, 100}
	b := []int8{2, 0, 0, 2}
	c := make([]int8, 4)
	MatMul(a, b, c, 2)
	// 200 wraps to -56 in int8.
	if c[0] != -56 || c[3] != -56 {
		t.Errorf("c = %v, want wraparound to -56 on the diagonal", c)
	}
	var big int32 = math.MaxInt32
	cc := make([]int32, 1)
	MatMul([]int32{big}, []int32{2}, cc, 1)
	if cc[0] != -2 {
		t.Errorf("MaxInt32*2 = %d, want -2", cc[0])
	}
}

func TestParallelMatMul(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	rng := rand.New(rand.NewSource(7))
	for _, n := range []int{1, 5, 64, 99} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			a, b := randomMatrix(rng, n), randomMatrix(rng, n)
			expected := make([]int64, n*n)
			c := make([]int64, n*n)
			MatMul(a, b, expected, n)
			ParallelMatMul(pool, a, b, c, n)
			if diff := cmp.Diff(expected, c); diff != "" {
				t.Errorf("ParallelMatMul mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func sizeStr(n int) string {
	return fmt.Sprintf("%dx%d", n, n)
}

func BenchmarkMatMul(b *testing.B) {
	for _, n := range []int{32, 99, 256} {
		a := make([]int32, n*n)
		bm := make([]int32, n*n)
		c := make([]int32, n*n)
		for i := range a {
			a[i] = int32(i % 16)
		}
		for i := range n {
			bm[i*n+i] = 1
		}
		b.Run(sizeStr(n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				MatMul(a, bm, c, n)
			}
		})
	}
}

func BenchmarkParallelMatMul(b *testing.B) {
	pool := workerpool.New(0)
	defer pool.Close()
	for _, n := range []int{99, 256} {
		a := make([]int32, n*n)
		bm := make([]int32, n*n)
		c := make([]int32, n*n)
		for i := range a {
			a[i] = int32(i % 16)
		}
		for i := range n {
			bm[i*n+i] = 1
		}
		b.Run(sizeStr(n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				ParallelMatMul(pool, a, bm, c, n)
			}
		})
	}
}
