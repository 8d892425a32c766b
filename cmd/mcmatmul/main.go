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

// Command mcmatmul multiplies two square matrices on a fixed number of cores,
// each computing its own rows, and prints the result matrix and the number of
// clock cycles the parallel compute took.
//
// Usage:
//
//	mcmatmul                               # build-time defaults: 4 cores, 99x99
//	mcmatmul --cores 2 --size 4 --table    # small job, with a per-core summary
//	mcmatmul --wait bounded --timeout 1s   # fail instead of hanging on a silent core
//	mcmatmul --repeat 100                  # check that repeated runs agree
//	mcmatmul --hold                        # keep the cores parked until Ctrl+C
//
// The defaults can be changed at link time:
//
//	go build -ldflags "-X github.com/ajroetker/go-multicore/mc.coreCount=8" ./cmd/mcmatmul
//
// or at run time with the MC_CORE_COUNT, MC_MATRIX_SIZE, MC_CLOCK_HZ and MC_NO_PIN
// environment variables. Flags take precedence over both.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/ajroetker/go-multicore/mc"
	"github.com/ajroetker/go-multicore/mc/contrib/handshake"
	"github.com/ajroetker/go-multicore/mc/contrib/matmul"
	"github.com/ajroetker/go-multicore/mc/contrib/report"
	"github.com/ajroetker/go-multicore/mc/contrib/store"
	"github.com/ajroetker/go-multicore/mc/contrib/timer"
	"github.com/ajroetker/go-multicore/mc/contrib/trace"
	"github.com/ajroetker/go-multicore/mc/contrib/workerpool"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

type flags struct {
	wait, remainder              string
	repeat                       int
	baseline, table, trace, hold bool
}

func main() {
	klog.InitFlags(nil)
	if err := newCommand().Execute(); err != nil {
		klog.Fatalf("%+v", err)
	}
}

func newCommand() *cobra.Command {
	// Errors in the environment are returned when the command runs.
	cfg, envErr := mc.ConfigFromEnv(mc.DefaultConfig())
	var f flags
	cmd := &cobra.Command{
		Use:          "mcmatmul",
		Short:        "Multiply two square matrices on a fixed number of cores",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		PreRunE: func(*cobra.Command, []string) error {
			return envErr
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if cfg.Wait, err = mc.ParseWaitMode(f.wait); err != nil {
				return err
			}
			if cfg.Remainder, err = mc.ParseRemainder(f.remainder); err != nil {
				return err
			}
			if err = cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, cfg, f)
		},
	}

	addFlags(cmd.Flags(), &cfg, &f)
	return cmd
}

// addFlags registers the job flags on fs, with the current values of cfg as
// defaults, and bridges the Go flags (klog's among them).
func addFlags(fs *pflag.FlagSet, cfg *mc.Config, f *flags) {
	fs.IntVar(&cfg.CoreCount, "cores", cfg.CoreCount, "Number of cores, the primary included.")
	fs.IntVar(&cfg.MatrixSize, "size", cfg.MatrixSize, "Dimension N of the N x N matrices.")
	fs.Uint64Var(&cfg.ClockHz, "clock-hz", cfg.ClockHz, "Rate of the execution timer, in Hz.")
	fs.StringVar(&f.wait, "wait", cfg.Wait.String(), "How cores wait on their mailboxes: block, poll or bounded.")
	fs.DurationVar(&cfg.Timeout, "timeout", time.Second, "Longest mailbox wait with --wait=bounded.")
	fs.StringVar(&f.remainder, "remainder", cfg.Remainder.String(),
		"What to do with the rows left over when --cores does not divide --size: truncate leaves them "+
			"uncomputed, spread gives them to the first cores.")
	fs.BoolVar(&cfg.Pin, "pin", cfg.Pin, "Pin every core to its own OS thread and CPU.")
	fs.IntVar(&f.repeat, "repeat", 1, "Run the job this many times and check that every result is identical.")
	fs.BoolVar(&f.baseline, "baseline", false, "Also time the same product computed with an even row split over the pool.")
	fs.BoolVar(&f.table, "table", false, "Print a per-core summary table.")
	fs.BoolVar(&f.trace, "trace", false, "Print the handshake events to stderr and check their ordering.")
	fs.BoolVar(&f.hold, "hold", false, "Keep the cores parked in their terminal state until interrupted.")
	fs.AddGoFlagSet(flag.CommandLine)
}

func run(ctx context.Context, cfg mc.Config, f flags) error {
	pool := workerpool.New(cfg.CoreCount, workerpool.WithPinning(cfg.Pin))
	defer pool.Close()
	if cfg.Pin {
		klog.V(1).Infof("%d of %d workers pinned", pool.NumPinned(), pool.NumWorkers())
	}

	if f.baseline {
		baseline(pool, cfg)
	}

	repeat := max(f.repeat, 1)
	var bar *progressbar.ProgressBar
	if repeat > 1 {
		bar = progressbar.NewOptions(repeat,
			progressbar.OptionSetDescription("Runs: "),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("runs"),
			progressbar.OptionSetTheme(progressbar.ThemeUnicode),
			progressbar.OptionClearOnFinish(),
		)
	}

	var (
		first, res *handshake.Result
		rec        *trace.Recorder
	)
	for i := range repeat {
		runCfg := cfg
		runCfg.Hold = f.hold && i == repeat-1
		opts := []handshake.Option{handshake.WithPool(pool)}
		if f.trace && i == 0 {
			rec = trace.NewRecorder(cfg.CoreCount)
			opts = append(opts, handshake.WithObserver(rec))
		}
		var err error
		res, err = handshake.Run(ctx, runCfg, opts...)
		if err != nil {
			return err
		}
		if first == nil {
			first = res
		} else if !slices.Equal(first.C, res.C) {
			return errors.Errorf("run %s differs from run %s", res.RunID, first.RunID)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	must.M(report.Write(os.Stdout, res))
	if f.table {
		fmt.Print(report.Table(res, termenv.NewOutput(os.Stdout).EnvColorProfile()))
	}
	if f.hold {
		fmt.Fprintln(os.Stderr, "cores parked, press Ctrl+C to exit")
		<-ctx.Done()
	}
	if err := res.Release(); err != nil {
		return err
	}

	// Every core reached its terminal state, so the trace is complete.
	if rec != nil {
		must.M1(rec.WriteTo(os.Stderr))
		return rec.Check(cfg)
	}
	return nil
}

// baseline times the product with the rows split evenly over the pool, without
// any handshake, for comparison with the multicore run.
func baseline(pool *workerpool.Pool, cfg mc.Config) {
	n := cfg.MatrixSize
	st := store.New[handshake.Element](n)
	ops := must.M1(st.Operands())
	ops.Seed()
	ops.Flush()
	view := st.Acquire()

	c := make([]handshake.Element, n*n)
	start := time.Now()
	matmul.ParallelMatMul(pool, view.A(), view.B(), c, n)
	elapsed := time.Since(start)
	fmt.Fprintf(os.Stderr, "Baseline: %d workers, %s, %d clock cycles\n",
		pool.NumWorkers(), elapsed, timer.Cycles(elapsed, cfg.ClockHz))
}
