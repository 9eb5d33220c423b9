package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/hqp/internal/ir"
)

// WriteSolve records a solve with its levels and trace in one transaction
// and returns its ID.
//
// The seq is assigned here as one more than the highest stored seq, so
// records are numbered in write order. rec.ID and rec.Seq are ignored; the
// ID comes from the store's IDGenerator.
func (s *Store) WriteSolve(ctx context.Context, rec SolveRecord) (string, error) {
	stackJSON, err := marshalCanonical("stack", rec.Stack.Canonical())
	if err != nil {
		return "", fmt.Errorf("write solve: %w", err)
	}
	settingsJSON, err := marshalCanonical("settings", rec.Settings.Canonical())
	if err != nil {
		return "", fmt.Errorf("write solve: %w", err)
	}
	command := rec.Command
	if command == nil {
		command = []float64{}
	}
	commandJSON, err := marshalCanonical("command", command)
	if err != nil {
		return "", fmt.Errorf("write solve: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write solve: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM solves`).Scan(&seq); err != nil {
		return "", fmt.Errorf("write solve: next seq: %w", err)
	}

	id := s.ids.Generate()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO solves
		(id, seq, stack_hash, settings_hash, solution_hash, stack, settings, command, feasible, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		seq,
		rec.StackHash,
		rec.SettingsHash,
		rec.SolutionHash,
		stackJSON,
		settingsJSON,
		commandJSON,
		rec.Feasible,
		rec.EngineVersion,
		rec.IRVersion,
	)
	if err != nil {
		return "", fmt.Errorf("write solve: %w", err)
	}

	for _, l := range rec.Levels {
		if err := writeLevel(ctx, tx, id, l); err != nil {
			return "", fmt.Errorf("write solve: level %d: %w", l.Index, err)
		}
	}
	for _, ev := range rec.Trace {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO trace (solve_id, seq, level, from_state, to_state)
			VALUES (?, ?, ?, ?, ?)
		`, id, ev.Seq, ev.Level, ev.From, ev.To)
		if err != nil {
			return "", fmt.Errorf("write solve: trace %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write solve: commit: %w", err)
	}
	return id, nil
}

func writeLevel(ctx context.Context, tx *sql.Tx, solveID string, l ir.LevelReport) error {
	singular := l.SingularValues
	if singular == nil {
		singular = []float64{}
	}
	singularJSON, err := marshalCanonical("singular values", singular)
	if err != nil {
		return err
	}
	diags := make([]string, len(l.Diagnostics))
	for i, d := range l.Diagnostics {
		diags[i] = string(d)
	}
	diagJSON, err := marshalCanonical("diagnostics", diags)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO levels
		(solve_id, level, name, kind, rank, null_rank, residual, final_residual, slack, final_slack,
		 feasible, fully_constrained, iterations, active_constraints, singular_values, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		solveID,
		l.Index,
		l.Name,
		string(l.Kind),
		l.Rank,
		l.NullRank,
		l.Residual,
		l.FinalResidual,
		l.Slack,
		l.FinalSlack,
		l.Feasible,
		l.FullyConstrained,
		l.Iterations,
		l.ActiveConstraints,
		singularJSON,
		diagJSON,
	)
	return err
}
