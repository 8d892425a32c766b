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
	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/partition"
	"github.com/ajroetker/go-multicore/mc/contrib/workerpool"
)

// ParallelMatMul computes C = A * B by splitting the rows of C over the pool
// workers. It has no handshake and no static ownership: it is the baseline
// the multicore job is compared against.
func ParallelMatMul[T mc.Integers](pool *workerpool.Pool, a, b, c []T, n int) {
	pool.ParallelFor(n, func(start, end int) {
		rows := partition.RowRange{Start: start, Len: end - start}
		MulRows(a, b, c[start*n:end*n], n, rows)
	})
}
