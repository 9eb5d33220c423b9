package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hqp/internal/engine"
	"github.com/roach88/hqp/internal/ir"
	"github.com/roach88/hqp/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplaySolveResult holds the replay result for a single stored solve.
type ReplaySolveResult struct {
	ID            string `json:"id"`
	Seq           int64  `json:"seq"`
	Expected      string `json:"expected"`
	Actual        string `json:"actual,omitempty"`
	Error         string `json:"error,omitempty"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Solves           []ReplaySolveResult `json:"solves"`
	TotalSolves      int                 `json:"total_solves"`
	AllDeterministic bool                `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-solve recorded stacks and verify determinism",
		Long: `Re-solve every recorded stack with its recorded settings and compare
solution hashes.

A solve with the same stack and settings must reproduce the same command
and level reports bit for bit. Any difference is reported as
non-determinism.

Exit codes:
  0 - Every solve reproduced
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  hqp replay --db ./hqp.db
  hqp replay --db ./hqp.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.ReplaySolves(commandContext(cmd), resolver(opts.Logger()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay solves", err)
	}

	result := ReplayResult{
		Solves:           make([]ReplaySolveResult, 0, len(results)),
		TotalSolves:      len(results),
		AllDeterministic: true,
	}
	for _, r := range results {
		entry := ReplaySolveResult{
			ID:            r.ID,
			Seq:           r.Seq,
			Expected:      r.Expected,
			Actual:        r.Actual,
			Deterministic: r.Match(),
		}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		}
		if !entry.Deterministic {
			result.AllDeterministic = false
		}
		result.Solves = append(result.Solves, entry)
	}

	if formatter.JSON() {
		if !result.AllDeterministic {
			_ = formatter.Failure(ErrCodeDeterminism, "determinism verification failed", result)
			return NewExitError(ExitFailure, "determinism verification failed")
		}
		return formatter.Success(result)
	}
	return outputReplayText(formatter, result)
}

// resolver re-solves a stored stack with a fresh solver per call.
func resolver(log *slog.Logger) store.SolveFunc {
	return func(stack ir.TaskStack, settings ir.SolverSettings) (*ir.Solution, error) {
		return engine.New(engine.WithSettings(settings), engine.WithLogger(log)).Solve(stack)
	}
}

// openExistingStore opens a database that must already exist; store.Open
// alone would silently create an empty one.
func openExistingStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("%s: database not found: %s", ErrCodeNotFound, path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	if result.TotalSolves == 0 {
		fmt.Fprintln(w, "No solves found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d solve(s)\n\n", result.TotalSolves)
	for _, s := range result.Solves {
		status := "✓"
		if !s.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s #%d %s\n", status, s.Seq, s.ID)

		switch {
		case s.Error != "":
			fmt.Fprintf(w, "  re-solve failed: %s\n", s.Error)
		case !s.Deterministic:
			fmt.Fprintf(w, "  expected %s\n  got      %s\n", s.Expected, s.Actual)
		case formatter.Verbose:
			fmt.Fprintf(w, "  solution %s\n", s.Expected)
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All solves verified deterministic")
		return nil
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
