package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hqp/internal/compiler"
	"github.com/roach88/hqp/internal/engine"
	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/metrics"
	"github.com/roach88/hqp/internal/store"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "hqp"

// SolveOptions holds flags for the solve command.
type SolveOptions struct {
	*RootOptions
	Database      string
	Metrics       bool
	RankThreshold float64
	Projectors    bool
}

// SolveResult is the solve command's output.
type SolveResult struct {
	ID         string           `json:"id,omitempty"` // set when recorded with --db
	Command    []float64        `json:"command"`
	Feasible   bool             `json:"feasible"`
	StackHash  string           `json:"stack_hash"`
	Levels     []ir.LevelReport `json:"levels"`
	Projectors [][][]float64    `json:"projectors,omitempty"`
	Metrics    string           `json:"metrics,omitempty"`
}

// NewSolveCommand creates the solve command.
func NewSolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "solve <stack>",
		Short: "Solve a task stack",
		Long: `Solve a CUE task stack and print the command and per-level report.

The stack may be a single .cue file or a directory of files that unify
into one stack. Settings come from the stack's solver block; flags
override them.

Exit codes:
  0 - Solved (levels may still carry diagnostics)
  1 - The stack was rejected or the engine failed
  2 - Command error (missing file, unreadable database, etc.)

Examples:
  hqp solve ./arm.cue
  hqp solve ./arm.cue --db ./hqp.db
  hqp solve ./arm.cue --rank-threshold 1e-6 --format json
  hqp solve ./arm.cue --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the solve in this SQLite database")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print Prometheus metrics after the report")
	cmd.Flags().Float64Var(&opts.RankThreshold, "rank-threshold", 0, "override the relative rank cutoff")
	cmd.Flags().BoolVar(&opts.Projectors, "projectors", false, "include each level's projector")

	return cmd
}

func runSolve(opts *SolveOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	log := opts.Logger()

	compiled, err := loadStack(path)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Loaded %d level(s) from %s", compiled.Stack.Len(), path)

	engineOpts := []engine.Option{
		engine.WithSettings(compiled.Settings),
		engine.WithLogger(log),
		engine.WithProjectors(opts.Projectors),
	}
	if cmd.Flags().Changed("rank-threshold") {
		engineOpts = append(engineOpts, engine.WithRankThreshold(opts.RankThreshold))
	}
	solver := engine.New(engineOpts...)
	collector := metrics.NewCollector(metricsNamespace)

	start := time.Now()
	sol, err := solver.Solve(compiled.Stack)
	if err != nil {
		collector.ObserveError(err)
		return outputSolveError(formatter, err)
	}
	collector.ObserveSolution(sol, time.Since(start))

	result := SolveResult{
		Command:   sol.Command,
		Feasible:  sol.Feasible(),
		StackHash: sol.StackHash,
		Levels:    sol.Levels,
	}
	if opts.Projectors {
		for _, l := range sol.Levels {
			result.Projectors = append(result.Projectors, l.Projector)
		}
	}

	if opts.Database != "" {
		id, err := recordSolve(cmd, opts.Database, compiled.Stack, solver.Settings(), sol)
		if err != nil {
			return err
		}
		result.ID = id
		log.Info("solve recorded", "id", id, "db", opts.Database)
	}

	if opts.Metrics {
		var buf bytes.Buffer
		if err := collector.WriteText(&buf); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		result.Metrics = buf.String()
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputSolveText(formatter, result)
}

// loadStack compiles the stack at path, mapping a missing path to exit
// code 2 and a compile failure to exit code 1.
func loadStack(path string) (*compiler.Compiled, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: stack not found: %s", ErrCodeNotFound, path), err)
	}
	compiled, err := compiler.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitFailure, fmt.Sprintf("%s: failed to compile stack", compiler.ErrStackSchema), err)
	}
	return compiled, nil
}

func recordSolve(cmd *cobra.Command, dbPath string, stack ir.TaskStack, settings ir.SolverSettings, sol *ir.Solution) (string, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rec, err := store.NewSolveRecord(stack, settings, sol)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to build solve record", err)
	}
	id, err := st.WriteSolve(commandContext(cmd), rec)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to record solve", err)
	}
	return id, nil
}

func outputSolveError(formatter *OutputFormatter, err error) error {
	code, ok := engine.CodeOf(err)
	if !ok {
		code = ErrCodeGeneric
	}
	var details any
	var se *engine.SolveError
	if errors.As(err, &se) && len(se.Violations) > 0 {
		details = se.Violations
	}
	_ = formatter.Error(string(code), err.Error(), details)
	return WrapExitError(ExitFailure, "solve failed", err)
}

func outputSolveText(formatter *OutputFormatter, result SolveResult) error {
	w := formatter.Writer

	status := "✓"
	if !result.Feasible {
		status = "✗"
	}
	fmt.Fprintf(w, "%s command: %s\n", status, formatVector(result.Command))
	if result.ID != "" {
		fmt.Fprintf(w, "  recorded: %s\n", result.ID)
	}
	fmt.Fprintln(w)

	if err := writeLevelTable(formatter, result.Levels); err != nil {
		return err
	}

	for i, p := range result.Projectors {
		fmt.Fprintf(w, "\nP_%d (%s):\n", i, result.Levels[i].Name)
		for _, row := range p {
			fmt.Fprintf(w, "  %s\n", formatVector(row))
		}
	}

	if result.Metrics != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, result.Metrics)
	}
	return nil
}

// writeLevelTable prints one row per level.
func writeLevelTable(formatter *OutputFormatter, levels []ir.LevelReport) error {
	tw := formatter.Table()
	fmt.Fprintln(tw, "LEVEL\tNAME\tKIND\tRANK\tNULL\tRESIDUAL\tFINAL\tSLACK\tDIAGNOSTICS")
	for _, l := range levels {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%.6g\t%.6g\t%.6g\t%s\n",
			l.Index, l.Name, l.Kind, l.Rank, l.NullRank,
			l.Residual, l.FinalResidual, l.Slack, formatDiagnostics(l.Diagnostics))
	}
	return tw.Flush()
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		if x == 0 {
			x = 0 // -0
		}
		parts[i] = fmt.Sprintf("%.6g", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatDiagnostics(diags []ir.Diagnostic) string {
	if len(diags) == 0 {
		return "-"
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}
