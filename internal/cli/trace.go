package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hqp/internal/ir"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Level    string // optional - filter to one level by name
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	ID            string           `json:"id"`
	Seq           int64            `json:"seq"`
	StackHash     string           `json:"stack_hash"`
	SolutionHash  string           `json:"solution_hash"`
	EngineVersion string           `json:"engine_version"`
	Command       []float64        `json:"command"`
	Feasible      bool             `json:"feasible"`
	Levels        []ir.LevelReport `json:"levels"`
	Timeline      []ir.TraceEvent  `json:"timeline"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <solve-id>",
		Short: "Show a recorded solve",
		Long: `Show a recorded solve: its command, per-level diagnostics and the
state transitions of the cascade.

The output includes:
- Levels: rank, null-space rank, residuals, slack and diagnostics
- Timeline: every pending -> projected -> solved transition in order

Examples:
  hqp trace --db ./hqp.db 0192f0c4-...
  hqp trace --db ./hqp.db 0192f0c4-... --level posture
  hqp trace --db ./hqp.db 0192f0c4-... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Level, "level", "", "show only the named level")

	return cmd
}

func runTrace(opts *TraceOptions, id string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.ReadSolve(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		msg := fmt.Sprintf("solve not found: %s", id)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read solve", err)
	}
	levels, err := st.ReadLevels(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read levels", err)
	}
	events, err := st.ReadTrace(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	if opts.Level != "" {
		levels, events = filterLevel(levels, events, opts.Level)
		if len(levels) == 0 {
			msg := fmt.Sprintf("level not found: %s", opts.Level)
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
	}

	result := TraceResult{
		ID:            rec.ID,
		Seq:           rec.Seq,
		StackHash:     rec.StackHash,
		SolutionHash:  rec.SolutionHash,
		EngineVersion: rec.EngineVersion,
		Command:       rec.Command,
		Feasible:      rec.Feasible,
		Levels:        levels,
		Timeline:      events,
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

// filterLevel keeps the named level and the transitions that belong to it.
func filterLevel(levels []ir.LevelReport, events []ir.TraceEvent, name string) ([]ir.LevelReport, []ir.TraceEvent) {
	var keptLevels []ir.LevelReport
	index := -1
	for _, l := range levels {
		if l.Name == name {
			keptLevels = append(keptLevels, l)
			index = l.Index
		}
	}
	keptEvents := []ir.TraceEvent{}
	for _, e := range events {
		if e.Level == index {
			keptEvents = append(keptEvents, e)
		}
	}
	return keptLevels, keptEvents
}

// outputTraceText outputs the trace as text.
func outputTraceText(formatter *OutputFormatter, result TraceResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Trace for Solve: %s (#%d)\n", result.ID, result.Seq)
	fmt.Fprintf(w, "Command: %s\n", formatVector(result.Command))
	fmt.Fprintf(w, "Status: %s\n", feasibleStatus(result.Feasible))
	if formatter.Verbose {
		fmt.Fprintf(w, "Stack:    %s\n", result.StackHash)
		fmt.Fprintf(w, "Solution: %s\n", result.SolutionHash)
		fmt.Fprintf(w, "Engine:   %s\n", result.EngineVersion)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Levels ===")
	if err := writeLevelTable(formatter, result.Levels); err != nil {
		return err
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  [%d] level %d: %s -> %s\n", e.Seq, e.Level, e.From, e.To)
	}
	return nil
}

func feasibleStatus(feasible bool) string {
	if feasible {
		return "✓ feasible"
	}
	return "✗ infeasible levels present"
}
