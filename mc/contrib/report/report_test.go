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

package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/handshake"
	"github.com/ajroetker/go-multicore/mc/contrib/partition"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"
)

func TestWriteMatrix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, []handshake.Element{0, 1, 0xa, -1}, 2))
	require.Equal(t, "01\naffffffff\n", buf.String())
}

func TestWriteTiming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTiming(&buf, 4, 12345))
	require.Equal(t, "Execution time for 4 cores is 12345 clock cycles\n", buf.String())
}

func TestWrite(t *testing.T) {
	cfg := mc.DefaultConfig()
	cfg.CoreCount, cfg.MatrixSize, cfg.Pin = 2, 4, false
	res, err := handshake.Run(context.Background(), cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res))
	lines := strings.Split(buf.String(), "\n")
	require.Equal(t, []string{"", "Resulting Matrix:", "0123", "4567", "89ab", "cdef", ""}, lines[:7])
	require.Regexp(t, `^Execution time for 2 cores is \d+ clock cycles$`, lines[7])
}

func TestTable(t *testing.T) {
	cfg := mc.DefaultConfig()
	cfg.CoreCount, cfg.MatrixSize = 4, 99
	res := &handshake.Result{
		Config:     cfg,
		Cycles:     1234567,
		Elapsed:    25 * time.Millisecond,
		Ranges:     partition.Plan(4, 99, mc.RemainderTruncate),
		Compute:    []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 4 * time.Millisecond},
		Unassigned: []int{96, 97, 98},
	}
	out := Table(res, termenv.Ascii)
	for _, want := range []string{
		"Summary", "Cores", "1,234,567", "96-98", "truncate",
		"core 0", "primary", "core 3", "secondary", "[72, 96)", "4ms",
	} {
		require.Contains(t, out, want)
	}
	require.NotContains(t, out, "\x1b[", "the ascii profile must not emit escape sequences")
}

func TestFormatRows(t *testing.T) {
	require.Equal(t, "none", formatRows(nil))
	require.Equal(t, "7", formatRows([]int{7}))
	require.Equal(t, "0-2, 5, 8-9", formatRows([]int{0, 1, 2, 5, 8, 9}))
}
