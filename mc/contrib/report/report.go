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

// Package report prints the outcome of a multicore run: the result matrix and
// the cycle count, and optionally a per-core summary table.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/handshake"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
)

// WriteMatrix writes the n x n row-major matrix c, one line per row and one
// hexadecimal symbol per element. Negative elements are printed as their 32-bit
// two's complement.
func WriteMatrix(w io.Writer, c []handshake.Element, n int) error {
	bw := bufio.NewWriter(w)
	for row := range n {
		for col := range n {
			fmt.Fprintf(bw, "%x", uint32(c[row*n+col]))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteTiming writes the cycle count of the parallel compute window.
func WriteTiming(w io.Writer, cores int, cycles uint64) error {
	_, err := fmt.Fprintf(w, "Execution time for %d cores is %d clock cycles\n", cores, cycles)
	return err
}

// Write prints the result matrix followed by the execution time.
func Write(w io.Writer, res *handshake.Result) error {
	if _, err := io.WriteString(w, "\nResulting Matrix:\n"); err != nil {
		return err
	}
	if err := WriteMatrix(w, res.C, res.Config.MatrixSize); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	return WriteTiming(w, res.Config.CoreCount, res.Cycles)
}

// Table renders a summary of the run followed by one row per core, using the
// given color profile. Use termenv.Ascii for plain text.
func Table(res *handshake.Result, profile termenv.Profile) string {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(profile)
	st := newStyles(r)
	cfg := res.Config
	n := cfg.MatrixSize

	summary := st.newTable(false, lipgloss.Right, lipgloss.Left)
	summary.Row("run", res.RunID.String())
	summary.Row("platform", mc.PlatformName())
	summary.Row("cores", humanize.Comma(int64(cfg.CoreCount)))
	summary.Row("matrix", fmt.Sprintf("%d x %d", n, n))
	summary.Row("wait", cfg.Wait.String())
	summary.Row("remainder", cfg.Remainder.String())
	summary.Row("cycles", fmt.Sprintf("%s @ %sHz", humanize.Comma(int64(res.Cycles)), humanize.SIWithDigits(float64(cfg.ClockHz), 2, "")))
	summary.Row("elapsed", res.Elapsed.String())
	if res.Elapsed > 0 {
		macs := float64(n) * float64(n) * float64(n)
		summary.Row("throughput", humanize.SIWithDigits(macs/res.Elapsed.Seconds(), 2, "MAC/s"))
	}
	summary.Row("unassigned", formatRows(res.Unassigned))

	cores := st.newTable(true, lipgloss.Right, lipgloss.Left, lipgloss.Left, lipgloss.Right, lipgloss.Right)
	cores.Headers("Core", "Role", "Rows", "# Rows", "Compute")
	for i, rows := range res.Ranges {
		id := mc.CoreID(i)
		var compute time.Duration
		if i < len(res.Compute) {
			compute = res.Compute[i]
		}
		cores.Row(id.String(), mc.RoleOf(id).String(), rows.String(), humanize.Comma(int64(rows.Len)), compute.String())
	}

	return st.title.Render("Summary") + "\n" + summary.Render() + "\n" +
		st.title.Render("Cores") + "\n" + cores.Render() + "\n"
}

type styles struct {
	title, header, odd, even, border lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *styles {
	return &styles{
		title:  r.NewStyle().Bold(true).Padding(1, 4, 0, 4),
		header: r.NewStyle().Reverse(true).Padding(0, 2, 0, 2).Align(lipgloss.Center),
		odd:    r.NewStyle().Faint(false).PaddingLeft(1).PaddingRight(1),
		even:   r.NewStyle().Faint(true).PaddingLeft(1).PaddingRight(1),
		border: r.NewStyle().Foreground(lipgloss.Color("99")),
	}
}

func (st *styles) newTable(withHeader bool, alignments ...lipgloss.Position) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.border).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == lgtable.HeaderRow {
				return st.header
			}
			if row%2 == 0 {
				s = st.odd
			} else {
				s = st.even
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			}
			return s.Align(alignment)
		})
}

// formatRows collapses consecutive rows into ranges: [0 1 2 5] -> "0-2, 5".
func formatRows(rows []int) string {
	if len(rows) == 0 {
		return "none"
	}
	var parts []string
	for i := 0; i < len(rows); {
		j := i
		for j+1 < len(rows) && rows[j+1] == rows[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, fmt.Sprint(rows[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", rows[i], rows[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}
