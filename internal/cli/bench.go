package cli

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/hqp/internal/engine"
	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/metrics"
)

// BenchOptions holds flags for the bench command.
type BenchOptions struct {
	*RootOptions
	Cycles  int
	Workers int
}

// BenchResult holds the benchmark summary.
type BenchResult struct {
	Cycles          int     `json:"cycles"`
	Workers         int     `json:"workers"`
	Seconds         float64 `json:"seconds"`
	SolvesPerSecond float64 `json:"solves_per_second"`
	SolutionHash    string  `json:"solution_hash"`
	Deterministic   bool    `json:"deterministic"`
	Metrics         string  `json:"metrics"`
}

// NewBenchCommand creates the bench command.
func NewBenchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BenchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bench <stack>",
		Short: "Solve a stack repeatedly in parallel",
		Long: `Solve the same stack many times across parallel workers.

Every worker owns its solver, so solves share no state. All solutions
must hash identically; any difference is reported as non-determinism.
Prometheus metrics for the run are printed at the end.

Exit codes:
  0 - All solves agreed
  1 - Solutions differed or a solve failed
  2 - Command error (missing file, bad flags, etc.)

Examples:
  hqp bench ./arm.cue
  hqp bench ./arm.cue --cycles 10000 --workers 8`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Cycles, "cycles", 1000, "number of solves")
	cmd.Flags().IntVar(&opts.Workers, "workers", 4, "number of parallel workers")

	return cmd
}

func runBench(opts *BenchOptions, path string, cmd *cobra.Command) error {
	if opts.Cycles < 1 || opts.Workers < 1 {
		return NewExitError(ExitCommandError, "--cycles and --workers must be at least 1")
	}
	formatter := opts.formatter(cmd)
	log := opts.Logger()

	compiled, err := loadStack(path)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(metricsNamespace)
	hashes := make([]string, opts.Cycles)

	g, ctx := errgroup.WithContext(commandContext(cmd))
	start := time.Now()
	for w := 0; w < opts.Workers; w++ {
		w := w
		g.Go(func() error {
			solver := engine.New(engine.WithSettings(compiled.Settings), engine.WithLogger(log))
			for i := w; i < opts.Cycles; i += opts.Workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				t0 := time.Now()
				sol, err := solver.Solve(compiled.Stack)
				if err != nil {
					collector.ObserveError(err)
					return fmt.Errorf("cycle %d: %w", i, err)
				}
				collector.ObserveSolution(sol, time.Since(t0))
				if hashes[i], err = ir.SolutionHash(sol); err != nil {
					return fmt.Errorf("cycle %d: %w", i, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		_ = formatter.Error(ErrCodeSolve, err.Error(), nil)
		return WrapExitError(ExitFailure, "bench solve failed", err)
	}
	elapsed := time.Since(start)

	var buf bytes.Buffer
	if err := collector.WriteText(&buf); err != nil {
		return WrapExitError(ExitCommandError, "failed to write metrics", err)
	}

	result := BenchResult{
		Cycles:          opts.Cycles,
		Workers:         opts.Workers,
		Seconds:         elapsed.Seconds(),
		SolvesPerSecond: float64(opts.Cycles) / elapsed.Seconds(),
		SolutionHash:    hashes[0],
		Deterministic:   allEqual(hashes),
		Metrics:         buf.String(),
	}
	log.Info("bench complete", "cycles", result.Cycles, "workers", result.Workers, "seconds", result.Seconds)

	if formatter.JSON() {
		if !result.Deterministic {
			_ = formatter.Failure(ErrCodeDeterminism, "solutions differ between cycles", result)
			return NewExitError(ExitFailure, "solutions differ between cycles")
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Bench: %d solve(s) on %d worker(s) in %s (%.0f solves/s)\n",
		result.Cycles, result.Workers, elapsed.Round(time.Microsecond), result.SolvesPerSecond)
	fmt.Fprintf(w, "Solution: %s\n\n", result.SolutionHash)
	fmt.Fprint(w, result.Metrics)
	fmt.Fprintln(w)
	if !result.Deterministic {
		fmt.Fprintln(w, "✗ Solutions differ between cycles")
		return NewExitError(ExitFailure, "solutions differ between cycles")
	}
	fmt.Fprintln(w, "✓ All solutions identical")
	return nil
}

func allEqual(hashes []string) bool {
	for _, h := range hashes[1:] {
		if h != hashes[0] {
			return false
		}
	}
	return true
}
